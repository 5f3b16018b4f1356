package models

// UserProfile is the signed-in employee as reported by the server.
type UserProfile struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	EmployeeID  string `json:"employeeId"`
	Department  string `json:"department"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// FirstName returns the first word of the name, or the whole name.
func (u UserProfile) FirstName() string {
	for i, r := range u.Name {
		if r == ' ' {
			return u.Name[:i]
		}
	}
	return u.Name
}

package db

// Storage keys for the persisted session.
const (
	KeyAuthToken  = "authToken"
	KeyUserID     = "userId"
	KeyUserName   = "userName"
	KeyUserEmail  = "userEmail"
	KeyUserRole   = "userRole"
	KeyEmployeeID = "employeeId"
	KeyDepartment = "department"
)

// SessionKeys lists every key cleared on logout or session expiry.
var SessionKeys = []string{
	KeyAuthToken,
	KeyUserID,
	KeyUserName,
	KeyUserEmail,
	KeyUserRole,
	KeyEmployeeID,
	KeyDepartment,
}

// timeLayout is how instants are stored: UTC, sortable as text.
const timeLayout = "2006-01-02 15:04:05"

package api

import (
	"fmt"
	"time"

	"github.com/j-veylop/attendance-tui/internal/models"
)

// Server error codes.
const (
	CodeOutOfOfficeRadius  = "OUT_OF_OFFICE_RADIUS"
	CodeOutOfWFHRadius     = "OUT_OF_WFH_RADIUS"
	CodeAlreadyCheckedIn   = "ALREADY_CHECKED_IN"
	CodeAlreadyCheckedOut  = "ALREADY_CHECKED_OUT"
	CodeNotCheckedIn       = "NOT_CHECKED_IN"
	CodeMissingCredentials = "MISSING_CREDENTIALS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
)

// envelope carries the fields every response shares.
type envelope struct {
	Distance      *float64 `json:"distance,omitempty"`
	AllowedRadius *float64 `json:"allowedRadius,omitempty"`
	Code          string   `json:"code,omitempty"`
	Message       string   `json:"message,omitempty"`
	Success       bool     `json:"success"`
}

// AttendanceRecord holds the raw instants as sent by the server.
type AttendanceRecord struct {
	CheckInTime  *string `json:"checkInTime,omitempty"`
	CheckOutTime *string `json:"checkOutTime,omitempty"`
}

// Instants parses both instants. Absent or empty fields come back nil.
func (r *AttendanceRecord) Instants() (checkIn, checkOut *time.Time, err error) {
	if r == nil {
		return nil, nil, nil
	}
	if checkIn, err = parseInstant(r.CheckInTime); err != nil {
		return nil, nil, fmt.Errorf("invalid checkInTime: %w", err)
	}
	if checkOut, err = parseInstant(r.CheckOutTime); err != nil {
		return nil, nil, fmt.Errorf("invalid checkOutTime: %w", err)
	}
	return checkIn, checkOut, nil
}

func parseInstant(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TodayResponse is the body of GET /api/attendance/today.
type TodayResponse struct {
	Attendance    *AttendanceRecord `json:"attendance,omitempty"`
	WorkMode      models.WorkMode   `json:"workMode,omitempty"`
	HasCheckedIn  bool              `json:"hasCheckedIn"`
	HasCheckedOut bool              `json:"hasCheckedOut"`
}

// CheckInRequest is the body of POST /api/attendance/checkin.
type CheckInRequest struct {
	WorkMode models.WorkMode `json:"workMode"`
	models.Coordinates
}

// AttendanceResponse is the success body of checkin and checkout.
type AttendanceResponse struct {
	Attendance *AttendanceRecord `json:"attendance,omitempty"`
	// RequestID is the X-Request-ID the client sent; it is not part of the body.
	RequestID string `json:"-"`
}

// LoginLocation is the optional position attached to a login.
type LoginLocation struct {
	Accuracy *float64 `json:"accuracy,omitempty"`
	models.Coordinates
}

// LoginRequest is the body of POST /api/auth/login. A nil Location is sent
// as JSON null.
type LoginRequest struct {
	Location *LoginLocation `json:"location"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
}

// LoginData is the data object of a successful login.
type LoginData struct {
	Token string `json:"token"`
	models.UserProfile
}

// LoginWarnings are advisory flags raised by the server's device checks.
type LoginWarnings struct {
	Message            string `json:"message,omitempty"`
	NewDevice          bool   `json:"newDevice"`
	SuspiciousLocation bool   `json:"suspiciousLocation"`
}

// Any reports whether any warning is set.
func (w *LoginWarnings) Any() bool {
	return w != nil && (w.NewDevice || w.SuspiciousLocation)
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Warnings *LoginWarnings `json:"warnings,omitempty"`
	Data     LoginData      `json:"data"`
}

type profileResponse struct {
	Data models.UserProfile `json:"data"`
}

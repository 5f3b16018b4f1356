package api

import (
	"errors"
	"fmt"
)

// ErrTransport marks failures where no usable server answer was received:
// the request could not be sent, or the body was not JSON.
var ErrTransport = errors.New("network error")

// Error is a business error reported by the server with success=false.
type Error struct {
	Distance      *float64
	AllowedRadius *float64
	Code          string
	Message       string
	Status        int
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error %s (status %d): %s", e.Code, e.Status, e.Message)
}

// IsSessionInvalid reports whether the server rejected the bearer token.
func (e *Error) IsSessionInvalid() bool {
	return e.Code == CodeTokenExpired || e.Code == CodeInvalidToken
}

// AsError extracts a server business error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsSessionInvalid reports whether err is a server token rejection.
func IsSessionInvalid(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.IsSessionInvalid()
}

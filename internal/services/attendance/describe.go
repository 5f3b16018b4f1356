package attendance

import (
	"context"
	"errors"
	"strconv"

	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/services/api"
	"github.com/j-veylop/attendance-tui/internal/services/gate"
	"github.com/j-veylop/attendance-tui/internal/services/location"
	"github.com/j-veylop/attendance-tui/internal/services/session"
)

// Describe converts a Submit or Reconcile error into what the user is shown.
// A nil error and ErrInFlight yield FeedbackNone.
func Describe(err error) models.Feedback {
	switch {
	case err == nil, errors.Is(err, ErrInFlight), errors.Is(err, context.Canceled):
		return models.Feedback{Kind: models.FeedbackNone}

	case errors.Is(err, session.ErrSessionExpired), errors.Is(err, session.ErrNoSession):
		return models.Feedback{
			Title:   "Session Expired",
			Message: "Your session has expired. Please login again.",
			Kind:    models.FeedbackSessionReset,
			Level:   models.LevelWarning,
		}

	case errors.Is(err, ErrModeNotSelected):
		return toast(models.LevelWarning, "Please select your work mode first")

	case errors.Is(err, ErrModeLocked):
		return toast(models.LevelWarning, "Work mode is locked after check-in")

	case errors.Is(err, gate.ErrPermissionRequired):
		return models.Feedback{
			Message:      "Location permission required. Press s to enable",
			Kind:         models.FeedbackToast,
			Level:        models.LevelError,
			OpenSettings: true,
		}

	case errors.Is(err, gate.ErrLocationServiceOff):
		return models.Feedback{
			Message:      "Please turn on Location",
			Kind:         models.FeedbackToast,
			Level:        models.LevelError,
			OpenSettings: true,
		}

	case errors.Is(err, location.ErrTimeout), errors.Is(err, location.ErrUnavailable):
		return toast(models.LevelError, "Unable to get your location. Please try again.")
	}

	if apiErr, ok := api.AsError(err); ok {
		return toast(models.LevelError, serverMessage(apiErr))
	}

	if errors.Is(err, api.ErrTransport) {
		return toast(models.LevelError, "Network error. Please check your connection.")
	}

	return toast(models.LevelError, "Something went wrong")
}

func serverMessage(e *api.Error) string {
	switch e.Code {
	case api.CodeOutOfOfficeRadius:
		return "You are " + meters(e.Distance) + " from the office. Must be within " + meters(e.AllowedRadius) + "."
	case api.CodeOutOfWFHRadius:
		return "You are " + meters(e.Distance) + " from your check-in location. Must be within " + meters(e.AllowedRadius) + "."
	case api.CodeAlreadyCheckedIn:
		return "You are already checked in today."
	case api.CodeAlreadyCheckedOut:
		return "You have already checked out today."
	case api.CodeNotCheckedIn:
		return "You have not checked in today."
	}
	if e.Message != "" {
		return e.Message
	}
	return "Something went wrong"
}

func meters(v *float64) string {
	if v == nil {
		return "?m"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "m"
}

func toast(level models.FeedbackLevel, msg string) models.Feedback {
	return models.Feedback{Message: msg, Kind: models.FeedbackToast, Level: level}
}

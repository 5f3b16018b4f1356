package app

import (
	"time"

	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/services"
)

// TickMsg is sent periodically to expire notifications.
type TickMsg struct {
	Time time.Time
}

// StartLoadingMsg shows the loading notification with a label.
type StartLoadingMsg struct {
	Label string
}

// StopLoadingMsg hides the loading notification.
type StopLoadingMsg struct{}

// SessionRestoredMsg carries the result of the startup session check.
// Profile is nil when the user has to log in.
type SessionRestoredMsg struct {
	Profile *models.UserProfile
	Err     error
}

// LoggedInMsg is sent by the login screen after a successful login.
type LoggedInMsg struct {
	Profile  models.UserProfile
	Warnings []models.Feedback
}

// LogoutMsg requests a logout.
type LogoutMsg struct{}

// LoggedOutMsg reports that the session has been cleared.
type LoggedOutMsg struct {
	Err error
}

// SessionExpiredMsg returns the app to the login screen after the server
// rejected the token.
type SessionExpiredMsg struct{}

// ProfileUpdatedMsg carries a freshly fetched profile.
type ProfileUpdatedMsg struct {
	Profile models.UserProfile
}

// FeedbackMsg presents an operation outcome as a toast, alert or session
// reset.
type FeedbackMsg struct {
	Feedback models.Feedback
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// RefreshMsg asks the active tab to reload its data.
type RefreshMsg struct{}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// TabActivatedMsg is delivered to a tab when it becomes visible.
type TabActivatedMsg struct{}

// TabDeactivatedMsg is delivered to a tab when it is hidden.
type TabDeactivatedMsg struct{}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

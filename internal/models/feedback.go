package models

// FeedbackKind selects how a message is presented.
type FeedbackKind int

const (
	// FeedbackToast is a transient, non-blocking notice.
	FeedbackToast FeedbackKind = iota
	// FeedbackAlert blocks until the user dismisses it.
	FeedbackAlert
	// FeedbackSessionReset clears the session and returns to login.
	FeedbackSessionReset
	// FeedbackNone means nothing should be shown.
	FeedbackNone
)

// FeedbackLevel is the severity used for styling.
type FeedbackLevel int

const (
	LevelInfo FeedbackLevel = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Feedback is a user-facing outcome of an operation.
type Feedback struct {
	Title   string
	Message string
	Kind    FeedbackKind
	Level   FeedbackLevel
	// OpenSettings offers a shortcut to the system location settings.
	OpenSettings bool
}

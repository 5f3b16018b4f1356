// Package session owns the persisted login: the bearer token and the cached
// profile of the signed-in user.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/j-veylop/attendance-tui/internal/db"
	"github.com/j-veylop/attendance-tui/internal/logger"
	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/services/api"
)

var (
	// ErrNoSession means no token is stored.
	ErrNoSession = errors.New("not authenticated")
	// ErrSessionExpired means the token was rejected or has expired. The
	// stored session has already been cleared when this is returned.
	ErrSessionExpired = errors.New("session expired")
)

// Store is the key/value storage the session lives in.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	MultiGet(ctx context.Context, keys ...string) (map[string]string, error)
	MultiSet(ctx context.Context, pairs map[string]string) error
	MultiRemove(ctx context.Context, keys ...string) error
}

// AuthClient is the subset of the API the session needs.
type AuthClient interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, token string) (*models.UserProfile, error)
}

// Credentials is the login form input.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// ValidationError is a login form problem detected before any request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// LoginResult is what a successful login yields.
type LoginResult struct {
	Warnings *api.LoginWarnings
	Profile  models.UserProfile
}

// Service manages the stored session.
type Service struct {
	store    Store
	client   AuthClient
	validate *validator.Validate
	now      func() time.Time
}

// New creates a session service.
func New(store Store, client AuthClient) *Service {
	return &Service{
		store:    store,
		client:   client,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Token returns the stored bearer token. A JWT whose exp claim has passed is
// treated as expired without asking the server; opaque tokens pass through.
func (s *Service) Token(ctx context.Context) (string, error) {
	token, ok, err := s.store.Get(ctx, db.KeyAuthToken)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	if !ok || token == "" {
		return "", ErrNoSession
	}

	if exp, ok := tokenExpiry(token); ok && !s.now().Before(exp) {
		logger.Info("stored token expired", "exp", exp)
		if err := s.Clear(ctx); err != nil {
			logger.Error("failed to clear expired session", "error", err)
		}
		return "", ErrSessionExpired
	}

	return token, nil
}

// tokenExpiry reads the exp claim without verifying the signature. The
// server is the only party that can verify it.
func tokenExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Restore checks a stored session against the server. On success the cached
// profile is refreshed. A rejected token clears the session; a network
// failure keeps it.
func (s *Service) Restore(ctx context.Context) (*models.UserProfile, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.client.Profile(ctx, token)
	if err != nil {
		if _, ok := api.AsError(err); ok {
			logger.Info("stored session rejected", "error", err)
			if clearErr := s.Clear(ctx); clearErr != nil {
				logger.Error("failed to clear session", "error", clearErr)
			}
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	if err := s.saveProfile(ctx, *profile, ""); err != nil {
		return nil, err
	}
	return profile, nil
}

// Login validates the form, authenticates and persists the session. loc may
// be nil.
func (s *Service) Login(ctx context.Context, creds Credentials, loc *api.LoginLocation) (*LoginResult, error) {
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	if err := s.validate.Struct(creds); err != nil {
		return nil, validationMessage(err)
	}

	resp, err := s.client.Login(ctx, api.LoginRequest{
		Email:    creds.Email,
		Password: creds.Password,
		Location: loc,
	})
	if err != nil {
		return nil, err
	}
	if resp.Data.Token == "" {
		return nil, fmt.Errorf("login response carried no token")
	}

	if err := s.saveProfile(ctx, resp.Data.UserProfile, resp.Data.Token); err != nil {
		return nil, err
	}

	logger.Info("logged in", "user", resp.Data.ID, "new_device", resp.Warnings != nil && resp.Warnings.NewDevice)
	return &LoginResult{Profile: resp.Data.UserProfile, Warnings: resp.Warnings}, nil
}

func validationMessage(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := fieldErrs[0]
	switch fe.Field() + "." + fe.Tag() {
	case "Email.required":
		return &ValidationError{Message: "Please enter your email"}
	case "Email.email":
		return &ValidationError{Message: "Please enter a valid email"}
	case "Password.required":
		return &ValidationError{Message: "Please enter your password"}
	case "Password.min":
		return &ValidationError{Message: "Password must be at least 6 characters"}
	default:
		return &ValidationError{Message: fmt.Sprintf("%s is invalid", fe.Field())}
	}
}

// Profile fetches the current user's profile from the server.
func (s *Service) Profile(ctx context.Context) (*models.UserProfile, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.client.Profile(ctx, token)
	if err != nil {
		if api.IsSessionInvalid(err) {
			if clearErr := s.Clear(ctx); clearErr != nil {
				logger.Error("failed to clear session", "error", clearErr)
			}
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	if err := s.saveProfile(ctx, *profile, ""); err != nil {
		logger.Warn("failed to cache profile", "error", err)
	}
	return profile, nil
}

// CachedProfile returns the profile saved at login without a network call.
func (s *Service) CachedProfile(ctx context.Context) (models.UserProfile, error) {
	values, err := s.store.MultiGet(ctx, db.SessionKeys...)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("failed to read profile: %w", err)
	}
	return models.UserProfile{
		ID:         values[db.KeyUserID],
		Name:       values[db.KeyUserName],
		Email:      values[db.KeyUserEmail],
		Role:       values[db.KeyUserRole],
		EmployeeID: values[db.KeyEmployeeID],
		Department: values[db.KeyDepartment],
	}, nil
}

// Logout notifies the server when possible and always clears the session.
func (s *Service) Logout(ctx context.Context) error {
	if token, err := s.Token(ctx); err == nil {
		if err := s.client.Logout(ctx, token); err != nil {
			logger.Warn("logout request failed", "error", err)
		}
	}
	return s.Clear(ctx)
}

// Clear removes every stored session key.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.MultiRemove(ctx, db.SessionKeys...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// saveProfile stores the profile fields, and the token when non-empty.
func (s *Service) saveProfile(ctx context.Context, p models.UserProfile, token string) error {
	pairs := map[string]string{
		db.KeyUserName:   p.Name,
		db.KeyUserEmail:  p.Email,
		db.KeyUserRole:   p.Role,
		db.KeyEmployeeID: p.EmployeeID,
		db.KeyDepartment: p.Department,
	}
	if p.ID != "" {
		pairs[db.KeyUserID] = p.ID
	}
	if token != "" {
		pairs[db.KeyAuthToken] = token
	}
	if err := s.store.MultiSet(ctx, pairs); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoginFeedback converts a login failure into what the login screen shows.
func LoginFeedback(err error) models.Feedback {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return models.Feedback{Message: verr.Message, Kind: models.FeedbackToast, Level: models.LevelWarning}
	}

	if apiErr, ok := api.AsError(err); ok {
		switch apiErr.Code {
		case api.CodeMissingCredentials:
			return models.Feedback{Message: "Please enter email and password", Kind: models.FeedbackToast, Level: models.LevelWarning}
		case api.CodeInvalidCredentials:
			return models.Feedback{Message: "Invalid email or password.", Kind: models.FeedbackToast, Level: models.LevelError}
		case api.CodeAccountInactive:
			return models.Feedback{
				Title:   "Account Deactivated",
				Message: "Your account has been deactivated. Please contact HR.",
				Kind:    models.FeedbackAlert,
				Level:   models.LevelError,
			}
		}
		msg := apiErr.Message
		if msg == "" {
			msg = "Login failed. Please try again."
		}
		return models.Feedback{Message: msg, Kind: models.FeedbackToast, Level: models.LevelError}
	}

	return models.Feedback{
		Message: "Login failed. Please check your internet connection.",
		Kind:    models.FeedbackToast,
		Level:   models.LevelError,
	}
}

// WarningFeedback returns one alert per login warning.
func WarningFeedback(w *api.LoginWarnings) []models.Feedback {
	if w == nil {
		return nil
	}
	var out []models.Feedback
	if w.NewDevice {
		out = append(out, models.Feedback{
			Title:   "New Device Detected",
			Message: "This device has been registered. If this wasn't you, contact support immediately.",
			Kind:    models.FeedbackAlert,
			Level:   models.LevelWarning,
		})
	}
	if w.SuspiciousLocation {
		msg := w.Message
		if msg == "" {
			msg = "Unusual login location detected."
		}
		out = append(out, models.Feedback{
			Title:   "Unusual Location",
			Message: msg,
			Kind:    models.FeedbackAlert,
			Level:   models.LevelWarning,
		})
	}
	return out
}

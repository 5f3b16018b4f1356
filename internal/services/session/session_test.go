package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/j-veylop/attendance-tui/internal/db"
	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/services/api"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore(pairs map[string]string) *memStore {
	s := &memStore{data: map[string]string{}}
	for k, v := range pairs {
		s.data[k] = v
	}
	return s
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) MultiGet(_ context.Context, keys ...string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memStore) MultiSet(_ context.Context, pairs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range pairs {
		m.data[k] = v
	}
	return nil
}

func (m *memStore) MultiRemove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type fakeAuth struct {
	loginReq    api.LoginRequest
	loginResp   *api.LoginResponse
	loginErr    error
	profile     *models.UserProfile
	profileErr  error
	logoutErr   error
	loginCalls  int
	logoutCalls int
}

func (f *fakeAuth) Login(_ context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	f.loginCalls++
	f.loginReq = req
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Logout(_ context.Context, _ string) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuth) Profile(_ context.Context, _ string) (*models.UserProfile, error) {
	return f.profile, f.profileErr
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
		Subject:   "u1",
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return tok
}

func TestToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		stored    map[string]string
		wantErr   error
		wantClear bool
	}{
		{"Missing", nil, ErrNoSession, false},
		{"Opaque", map[string]string{db.KeyAuthToken: "opaque-token"}, nil, false},
		{"ValidJWT", map[string]string{db.KeyAuthToken: signedToken(t, now.Add(time.Hour))}, nil, false},
		{"ExpiredJWT", map[string]string{db.KeyAuthToken: signedToken(t, now.Add(-time.Minute)), db.KeyUserName: "Asha"}, ErrSessionExpired, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(tt.stored)
			s := New(store, &fakeAuth{})
			s.now = func() time.Time { return now }

			_, err := s.Token(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Token() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantClear && len(store.data) != 0 {
				t.Errorf("expired session not cleared: %v", store.data)
			}
		})
	}
}

func TestRestore(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		store := newMemStore(map[string]string{db.KeyAuthToken: "tok"})
		s := New(store, &fakeAuth{profile: &models.UserProfile{Name: "Asha Rao", Department: "Ops"}})

		p, err := s.Restore(context.Background())
		if err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if p.Name != "Asha Rao" || store.data[db.KeyDepartment] != "Ops" {
			t.Errorf("profile not cached: %+v %v", p, store.data)
		}
		if store.data[db.KeyAuthToken] != "tok" {
			t.Error("token must survive restore")
		}
	})

	t.Run("Rejected", func(t *testing.T) {
		store := newMemStore(map[string]string{db.KeyAuthToken: "tok", db.KeyUserName: "Asha"})
		s := New(store, &fakeAuth{profileErr: &api.Error{Status: 401, Code: api.CodeInvalidToken}})

		if _, err := s.Restore(context.Background()); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("Restore error = %v, want ErrSessionExpired", err)
		}
		if len(store.data) != 0 {
			t.Errorf("rejected session not cleared: %v", store.data)
		}
	})

	t.Run("NetworkError", func(t *testing.T) {
		store := newMemStore(map[string]string{db.KeyAuthToken: "tok"})
		s := New(store, &fakeAuth{profileErr: api.ErrTransport})

		if _, err := s.Restore(context.Background()); !errors.Is(err, api.ErrTransport) {
			t.Fatalf("Restore error = %v, want ErrTransport", err)
		}
		if store.data[db.KeyAuthToken] != "tok" {
			t.Error("network failure must keep the session")
		}
	})
}

func TestLogin_Validation(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  string
	}{
		{"NoEmail", Credentials{Email: "  ", Password: "secret1"}, "Please enter your email"},
		{"BadEmail", Credentials{Email: "asha@", Password: "secret1"}, "Please enter a valid email"},
		{"NoPassword", Credentials{Email: "asha@example.com"}, "Please enter your password"},
		{"ShortPassword", Credentials{Email: "asha@example.com", Password: "12345"}, "Password must be at least 6 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{}
			s := New(newMemStore(nil), auth)

			_, err := s.Login(context.Background(), tt.creds, nil)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Message != tt.want {
				t.Errorf("message = %q, want %q", verr.Message, tt.want)
			}
			if auth.loginCalls != 0 {
				t.Error("invalid form must not reach the server")
			}
		})
	}
}

func TestLogin_Success(t *testing.T) {
	store := newMemStore(nil)
	auth := &fakeAuth{loginResp: &api.LoginResponse{
		Data: api.LoginData{
			Token:       "jwt",
			UserProfile: models.UserProfile{ID: "u1", Name: "Asha Rao", Email: "asha@example.com", EmployeeID: "E7"},
		},
		Warnings: &api.LoginWarnings{NewDevice: true},
	}}
	s := New(store, auth)

	acc := 8.0
	loc := &api.LoginLocation{Coordinates: models.Coordinates{Latitude: 1, Longitude: 2}, Accuracy: &acc}
	res, err := s.Login(context.Background(), Credentials{Email: " Asha@Example.COM ", Password: "secret1"}, loc)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if auth.loginReq.Email != "asha@example.com" {
		t.Errorf("email not normalised: %q", auth.loginReq.Email)
	}
	if auth.loginReq.Location != loc {
		t.Error("location not forwarded")
	}
	if store.data[db.KeyAuthToken] != "jwt" || store.data[db.KeyUserID] != "u1" || store.data[db.KeyEmployeeID] != "E7" {
		t.Errorf("session not persisted: %v", store.data)
	}
	if len(WarningFeedback(res.Warnings)) != 1 {
		t.Error("expected one warning alert")
	}
}

func TestLogout(t *testing.T) {
	store := newMemStore(map[string]string{db.KeyAuthToken: "tok", db.KeyUserName: "Asha"})
	auth := &fakeAuth{logoutErr: api.ErrTransport}
	s := New(store, auth)

	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if auth.logoutCalls != 1 {
		t.Errorf("logout calls = %d, want 1", auth.logoutCalls)
	}
	if len(store.data) != 0 {
		t.Errorf("session not cleared after failed logout request: %v", store.data)
	}
}

func TestProfile_TokenExpired(t *testing.T) {
	store := newMemStore(map[string]string{db.KeyAuthToken: "tok"})
	s := New(store, &fakeAuth{profileErr: &api.Error{Code: api.CodeTokenExpired}})

	if _, err := s.Profile(context.Background()); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Profile error = %v, want ErrSessionExpired", err)
	}
	if _, ok := store.data[db.KeyAuthToken]; ok {
		t.Error("token should be cleared")
	}
}

func TestProfile_OtherServerErrorKeepsSession(t *testing.T) {
	store := newMemStore(map[string]string{db.KeyAuthToken: "tok"})
	s := New(store, &fakeAuth{profileErr: &api.Error{Code: "INTERNAL"}})

	if _, err := s.Profile(context.Background()); err == nil || errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Profile error = %v", err)
	}
	if store.data[db.KeyAuthToken] != "tok" {
		t.Error("token should be kept")
	}
}

func TestCachedProfile(t *testing.T) {
	store := newMemStore(map[string]string{db.KeyUserName: "Asha Rao", db.KeyUserRole: "manager"})
	s := New(store, &fakeAuth{})

	p, err := s.CachedProfile(context.Background())
	if err != nil {
		t.Fatalf("CachedProfile failed: %v", err)
	}
	if p.Name != "Asha Rao" || p.Role != "manager" {
		t.Errorf("unexpected profile %+v", p)
	}
}

func TestLoginFeedback(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantMsg  string
		wantKind models.FeedbackKind
	}{
		{"Invalid", &api.Error{Code: api.CodeInvalidCredentials}, "Invalid email or password.", models.FeedbackToast},
		{"Missing", &api.Error{Code: api.CodeMissingCredentials}, "Please enter email and password", models.FeedbackToast},
		{"Inactive", &api.Error{Code: api.CodeAccountInactive}, "Your account has been deactivated. Please contact HR.", models.FeedbackAlert},
		{"ServerMessage", &api.Error{Code: "X", Message: "Maintenance"}, "Maintenance", models.FeedbackToast},
		{"Default", &api.Error{Code: "X"}, "Login failed. Please try again.", models.FeedbackToast},
		{"Network", api.ErrTransport, "Login failed. Please check your internet connection.", models.FeedbackToast},
		{"Validation", &ValidationError{Message: "Please enter your email"}, "Please enter your email", models.FeedbackToast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := LoginFeedback(tt.err)
			if fb.Message != tt.wantMsg || fb.Kind != tt.wantKind {
				t.Errorf("LoginFeedback() = %+v", fb)
			}
		})
	}
}

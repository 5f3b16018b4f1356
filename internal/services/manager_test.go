package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/j-veylop/attendance-tui/internal/config"
	"github.com/j-veylop/attendance-tui/internal/db"
	"github.com/j-veylop/attendance-tui/internal/device"
	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/services/attendance"
	"github.com/j-veylop/attendance-tui/internal/services/gate"
	"github.com/j-veylop/attendance-tui/internal/services/session"
)

// MockRoundTripper for testing
type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// fakeServer answers the attendance API from canned bodies.
type fakeServer struct {
	mu    sync.Mutex
	calls []string
	body  map[string]string
}

func (s *fakeServer) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req.Method+" "+req.URL.Path)
	if body, ok := s.body[req.URL.Path]; ok {
		return jsonResponse(http.StatusOK, body), nil
	}
	return jsonResponse(http.StatusNotFound, `{"success":false,"message":"not found"}`), nil
}

func (s *fakeServer) count(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()

	state := device.DefaultState()
	state.FixDelay = 0
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	devicePath := filepath.Join(tmpDir, "device.json")
	if err := os.WriteFile(devicePath, data, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	return &config.Config{
		APIBaseURL:      "https://attendance.example.com",
		DatabasePath:    filepath.Join(tmpDir, "test.db"),
		DevicePath:      devicePath,
		ExportDir:       filepath.Join(tmpDir, "exports"),
		Platform:        config.PlatformAndroid,
		DisplayTimezone: time.FixedZone("IST", 5*3600+1800),
		HTTPTimeout:     time.Second,
		GPSProbeTimeout: time.Second,
	}
}

func newTestManager(t *testing.T, rt http.RoundTripper) *Manager {
	t.Helper()
	mgr, err := newManager(testConfig(t), &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestNewManager(t *testing.T) {
	mgr, err := NewManager(testConfig(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer mgr.Close()

	if mgr.Session() == nil || mgr.Tracker() == nil || mgr.Gate() == nil {
		t.Error("services should be initialized")
	}
	if mgr.Location() == nil || mgr.Device() == nil || mgr.Database() == nil {
		t.Error("infrastructure should be initialized")
	}
}

func TestNewManager_BadDatabasePath(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	cfg.DatabasePath = filepath.Join(blocker, "test.db")

	if _, err := NewManager(cfg); err == nil {
		t.Error("expected error for unusable database path")
	}
}

func TestManager_AttendanceFlow(t *testing.T) {
	server := &fakeServer{body: map[string]string{
		"/api/auth/login": `{"success":true,"data":{"token":"test-token","_id":"u1","name":"Asha Rao",
			"email":"asha@example.com","role":"employee","employeeId":"E-7","department":"QA"}}`,
		"/api/attendance/today":    `{"success":true,"hasCheckedIn":false,"hasCheckedOut":false}`,
		"/api/attendance/checkin":  `{"success":true,"attendance":{"checkInTime":"2024-01-01T03:30:00Z"}}`,
		"/api/attendance/checkout": `{"success":true,"attendance":{"checkInTime":"2024-01-01T03:30:00Z","checkOutTime":"2024-01-01T12:00:00Z"}}`,
		"/api/auth/logout":         `{"success":true}`,
	}}
	mgr := newTestManager(t, server)
	mgr.cfg.DesktopNotifications = true
	var notified []string
	mgr.notify = func(title, body string) error {
		notified = append(notified, title+": "+body)
		return nil
	}
	mgr.now = func() time.Time { return time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	res, err := mgr.Login(ctx, session.Credentials{Email: " Asha@Example.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Profile.FirstName() != "Asha" {
		t.Errorf("profile = %+v", res.Profile)
	}

	if _, err := mgr.Tracker().Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if err := mgr.Tracker().SetWorkMode(models.WorkModeOffice); err != nil {
		t.Fatalf("SetWorkMode failed: %v", err)
	}

	in, err := mgr.SubmitAttendance(ctx)
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if !in.Snapshot.CheckedIn || in.Snapshot.Stats.FirstCheckIn != "09:00 AM" {
		t.Errorf("unexpected check-in snapshot %+v", in.Snapshot)
	}

	out, err := mgr.SubmitAttendance(ctx)
	if err != nil {
		t.Fatalf("check-out failed: %v", err)
	}
	if out.Snapshot.CheckedIn || out.Snapshot.Stats.TotalHours != "08:30" {
		t.Errorf("unexpected check-out snapshot %+v", out.Snapshot)
	}

	if len(notified) != 2 || notified[0] != "Checked in: Checked in at 09:00 AM" {
		t.Errorf("notifications = %v", notified)
	}

	history, err := mgr.History(ctx)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history.Events) != 2 || history.Events[0].Action != models.ActionCheckOut {
		t.Errorf("unexpected history events %+v", history.Events)
	}
	if len(history.Totals) != HistoryDays || history.Totals[HistoryDays-1].Minutes != 510 {
		t.Errorf("unexpected daily totals %+v", history.Totals)
	}

	path, err := mgr.Export(ctx)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file missing: %v", err)
	}

	if err := mgr.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if server.count("POST /api/auth/logout") != 1 {
		t.Error("logout should notify the server")
	}
	if _, err := mgr.Session().Token(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("token after logout = %v", err)
	}
	if mgr.Tracker().Snapshot().Loaded {
		t.Error("tracker should be reset after logout")
	}
}

func TestManager_SubmitGateFailure(t *testing.T) {
	server := &fakeServer{body: map[string]string{}}
	mgr := newTestManager(t, server)

	if err := mgr.Device().Update(func(s *device.State) { s.LocationEnabled = false }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	_ = mgr.Tracker().SetWorkMode(models.WorkModeWFH)

	_, err := mgr.SubmitAttendance(context.Background())
	if !errors.Is(err, gate.ErrLocationServiceOff) {
		t.Fatalf("expected ErrLocationServiceOff, got %v", err)
	}
	if fb := attendance.Describe(err); !fb.OpenSettings {
		t.Error("location off should offer the settings shortcut")
	}
	if server.count("POST /api/attendance/checkin") != 0 {
		t.Error("no check-in request may be sent when location is off")
	}
}

func TestManager_DeviceChangeEvent(t *testing.T) {
	mgr := newTestManager(t, &MockRoundTripper{RoundTripFunc: func(*http.Request) (*http.Response, error) {
		return nil, errors.New("offline")
	}})

	ch, _ := mgr.Subscribe()
	defer mgr.Unsubscribe(ch)

	if err := mgr.Device().Update(func(s *device.State) { s.Latitude += 0.01 }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if _, ok := e.(DeviceChangedEvent); ok {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for DeviceChangedEvent")
		}
	}
}

func TestManager_Subscription(t *testing.T) {
	mgr := newTestManager(t, &MockRoundTripper{})

	ch, cmd := mgr.Subscribe()
	if ch == nil {
		t.Error("Subscribe returned nil channel")
	}
	if cmd == nil {
		t.Error("Subscribe returned nil command")
	}

	mgr.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Channel should be closed")
		}
	default:
		t.Error("Unsubscribe should close the channel")
	}
}

func TestManager_Broadcast(t *testing.T) {
	mgr := newTestManager(t, &MockRoundTripper{})

	ch, _ := mgr.Subscribe()
	defer mgr.Unsubscribe(ch)

	_ = mgr.Tracker().SetWorkMode(models.WorkModeWFH)

	select {
	case e := <-ch:
		changed, ok := e.(AttendanceChangedEvent)
		if !ok || changed.Snapshot.WorkMode != models.WorkModeWFH {
			t.Errorf("got event %#v", e)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestManager_CloseTwice(t *testing.T) {
	mgr, err := newManager(testConfig(t), &http.Client{Transport: &MockRoundTripper{}})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestManager_CloseCompactsAndKeepsEvents(t *testing.T) {
	cfg := testConfig(t)
	mgr, err := newManager(cfg, &http.Client{Transport: &MockRoundTripper{}})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	event := &models.AttendanceEvent{
		OccurredAt: time.Date(2024, 1, 1, 3, 30, 0, 0, time.UTC),
		Action:     models.ActionCheckIn,
		WorkMode:   models.WorkModeOffice,
		RequestID:  "req-1",
	}
	if err := mgr.Database().InsertAttendanceEvent(context.Background(), event); err != nil {
		t.Fatalf("InsertAttendanceEvent failed: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := db.New(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	events, err := reopened.RecentAttendanceEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentAttendanceEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].RequestID != "req-1" {
		t.Errorf("events after close = %+v", events)
	}
}

func TestWaitForEvent(t *testing.T) {
	ch := make(chan ServiceEvent, 1)
	ch <- DeviceChangedEvent{}

	cmd := WaitForEvent(ch)
	if msg := cmd(); msg == nil {
		t.Error("WaitForEvent cmd returned nil msg")
	}
}

func TestServiceEvent_Interface(t *testing.T) {
	var _ ServiceEvent = AttendanceChangedEvent{}
	var _ ServiceEvent = DeviceChangedEvent{}
	var _ ServiceEvent = ErrorEvent{}
}

func TestManager_RestoreSession(t *testing.T) {
	loginBody := `{"success":true,"data":{"token":"test-token","_id":"u1","name":"Asha Rao","email":"asha@example.com"}}`
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		mgr := newTestManager(t, &fakeServer{body: map[string]string{}})
		if _, err := mgr.RestoreSession(ctx); !errors.Is(err, session.ErrNoSession) {
			t.Errorf("RestoreSession error = %v, want ErrNoSession", err)
		}
	})

	t.Run("offline uses cached profile", func(t *testing.T) {
		online := true
		mgr := newTestManager(t, &MockRoundTripper{RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			if !online {
				return nil, errors.New("offline")
			}
			return jsonResponse(http.StatusOK, loginBody), nil
		}})
		if _, err := mgr.Login(ctx, session.Credentials{Email: "asha@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		online = false
		p, err := mgr.RestoreSession(ctx)
		if err != nil {
			t.Fatalf("RestoreSession failed: %v", err)
		}
		if p.Name != "Asha Rao" {
			t.Errorf("profile = %+v", p)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		mgr := newTestManager(t, &MockRoundTripper{RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			if req.URL.Path == "/api/auth/login" {
				return jsonResponse(http.StatusOK, loginBody), nil
			}
			return jsonResponse(http.StatusUnauthorized, `{"success":false,"message":"Invalid token"}`), nil
		}})
		if _, err := mgr.Login(ctx, session.Credentials{Email: "asha@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if _, err := mgr.RestoreSession(ctx); !errors.Is(err, session.ErrSessionExpired) {
			t.Errorf("RestoreSession error = %v, want ErrSessionExpired", err)
		}
	})
}

func TestManager_EndSession(t *testing.T) {
	server := &fakeServer{body: map[string]string{
		"/api/auth/login": `{"success":true,"data":{"token":"test-token","name":"Asha Rao"}}`,
	}}
	mgr := newTestManager(t, server)
	ctx := context.Background()

	if _, err := mgr.Login(ctx, session.Credentials{Email: "asha@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := mgr.SetWorkMode(models.WorkModeOffice); err != nil {
		t.Fatalf("SetWorkMode failed: %v", err)
	}

	if err := mgr.EndSession(ctx); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if server.count("POST /api/auth/logout") != 0 {
		t.Error("EndSession must not call the server")
	}
	if snap := mgr.Snapshot(); snap.WorkMode != models.WorkModeNone {
		t.Errorf("tracker should be reset, got %+v", snap)
	}
	if _, err := mgr.Session().Token(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("token after EndSession = %v", err)
	}
}

func TestManager_CheckLocation(t *testing.T) {
	mgr := newTestManager(t, &MockRoundTripper{})
	ctx := context.Background()

	avail, err := mgr.CheckLocation(ctx)
	if err != nil {
		t.Fatalf("CheckLocation failed: %v", err)
	}
	if !avail.OK() {
		t.Errorf("default device should allow location, got %+v", avail)
	}

	if err := mgr.Device().Update(func(s *device.State) { s.Permissions[device.PermissionFineLocation] = device.StatusDenied }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	avail, err = mgr.CheckLocation(ctx)
	if err != nil {
		t.Fatalf("CheckLocation failed: %v", err)
	}
	if avail.Permitted {
		t.Error("denied permission should be reported")
	}
}

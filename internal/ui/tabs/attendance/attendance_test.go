package attendance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/attendance-tui/internal/app"
	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/services"
	tracker "github.com/j-veylop/attendance-tui/internal/services/attendance"
	"github.com/j-veylop/attendance-tui/internal/services/gate"
	"github.com/j-veylop/attendance-tui/internal/services/session"
)

type fakeBackend struct {
	submitRes    *tracker.Result
	submitErr    error
	reconcileErr error
	checkErr     error
	recoverErr   error
	modeErr      error
	modes        []models.WorkMode
	recovered    []error
	snap         tracker.Snapshot
	avail        gate.Availability
	reconciles   int
	submits      int
	warmups      int
	stops        int
	ticks        int
	rollovers    int
}

func (f *fakeBackend) Snapshot() tracker.Snapshot { return f.snap }

func (f *fakeBackend) Reconcile(context.Context) (tracker.Snapshot, error) {
	f.reconciles++
	return f.snap, f.reconcileErr
}

func (f *fakeBackend) SetWorkMode(mode models.WorkMode) error {
	f.modes = append(f.modes, mode)
	if f.modeErr != nil {
		return f.modeErr
	}
	f.snap.WorkMode = mode
	return nil
}

func (f *fakeBackend) SubmitAttendance(context.Context) (*tracker.Result, error) {
	f.submits++
	return f.submitRes, f.submitErr
}

func (f *fakeBackend) CheckLocation(context.Context) (gate.Availability, error) {
	return f.avail, f.checkErr
}

func (f *fakeBackend) RecoverLocation(_ context.Context, err error) error {
	f.recovered = append(f.recovered, err)
	return f.recoverErr
}

func (f *fakeBackend) StartWarmup() { f.warmups++ }

func (f *fakeBackend) StopWarmup() { f.stops++ }

func (f *fakeBackend) TickHours(time.Time) bool {
	f.ticks++
	return true
}

func (f *fakeBackend) Rollover(time.Time) bool {
	f.rollovers++
	return false
}

func (f *fakeBackend) DisplayLocation() *time.Location { return time.UTC }

func newTestTab(t *testing.T) (*Model, *fakeBackend) {
	t.Helper()
	state := app.NewState()
	state.SetProfile(models.UserProfile{Name: "Asha Rao"})
	b := &fakeBackend{avail: gate.Availability{Permitted: true, GPSOn: true}}
	m := New(state, b)
	m.clock = func() time.Time { return time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC) }
	m.SetSize(100, 35)
	return m, b
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and feeds the result back into the tab, returning the
// command produced by that message.
func run(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	_, next := m.Update(cmd())
	return next
}

func TestModel_Activation(t *testing.T) {
	m, b := newTestTab(t)

	_, cmd := m.Update(app.TabActivatedMsg{})
	if cmd == nil {
		t.Fatal("activation should schedule work")
	}
	if !m.active || m.gen != 1 || b.warmups != 1 {
		t.Errorf("active=%v gen=%d warmups=%d", m.active, m.gen, b.warmups)
	}

	m.pickingMode = true
	m.Update(app.TabDeactivatedMsg{})
	if m.active || m.pickingMode || b.stops != 1 {
		t.Errorf("deactivation should stop warmup and close the picker")
	}

	// Ticks scheduled before deactivation are dropped.
	if _, cmd := m.Update(clockTickMsg{time: time.Now(), gen: 1}); cmd != nil {
		t.Error("stale clock tick should not reschedule")
	}
	if _, cmd := m.Update(hoursTickMsg{time: time.Now(), gen: 1}); cmd != nil {
		t.Error("stale hours tick should not reschedule")
	}
	if b.rollovers != 0 || b.ticks != 0 {
		t.Error("stale ticks should not reach the backend")
	}
}

func TestModel_Ticks(t *testing.T) {
	m, b := newTestTab(t)
	m.Update(app.TabActivatedMsg{})

	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	if _, cmd := m.Update(clockTickMsg{time: now, gen: m.gen}); cmd == nil {
		t.Error("clock tick should reschedule")
	}
	if !m.now.Equal(now) || b.rollovers != 1 {
		t.Errorf("now=%v rollovers=%d", m.now, b.rollovers)
	}

	if _, cmd := m.Update(hoursTickMsg{time: now, gen: m.gen}); cmd == nil {
		t.Error("hours tick should reschedule")
	}
	if b.ticks != 1 {
		t.Errorf("ticks = %d, want 1", b.ticks)
	}
}

func TestModel_Submit(t *testing.T) {
	m, b := newTestTab(t)
	b.submitRes = &tracker.Result{
		At:     time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		Action: models.ActionCheckIn,
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next := run(t, m, cmd)
	if b.submits != 1 {
		t.Fatalf("submits = %d, want 1", b.submits)
	}

	msg, ok := next().(app.AddNotificationMsg)
	if !ok {
		t.Fatalf("expected AddNotificationMsg, got %T", msg)
	}
	if msg.Type != app.NotificationSuccess || msg.Message != "Checked in at 09:00 AM" {
		t.Errorf("unexpected notification %+v", msg)
	}
}

func TestModel_SubmitWhileBusy(t *testing.T) {
	m, b := newTestTab(t)
	b.snap.Phase = tracker.PhaseAcquiringLocation

	if _, cmd := m.Update(keyRunes(" ")); cmd != nil {
		t.Error("submit should be ignored while busy")
	}
}

func TestModel_SubmitErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantPrompt bool
		wantKind   models.FeedbackKind
	}{
		{"mode missing", tracker.ErrModeNotSelected, false, models.FeedbackToast},
		{"permission", gate.ErrPermissionRequired, true, models.FeedbackToast},
		{"gps off", gate.ErrLocationServiceOff, true, models.FeedbackToast},
		{"session", session.ErrSessionExpired, false, models.FeedbackSessionReset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, b := newTestTab(t)
			b.submitErr = tt.err

			_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
			next := run(t, m, cmd)

			msg, ok := next().(app.FeedbackMsg)
			if !ok {
				t.Fatalf("expected FeedbackMsg, got %T", msg)
			}
			if msg.Feedback.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", msg.Feedback.Kind, tt.wantKind)
			}
			if m.showPrompt != tt.wantPrompt {
				t.Errorf("showPrompt = %v, want %v", m.showPrompt, tt.wantPrompt)
			}
		})
	}
}

func TestModel_SubmitInFlight(t *testing.T) {
	m, b := newTestTab(t)
	b.submitErr = tracker.ErrInFlight

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if next := run(t, m, cmd); next != nil {
		t.Error("an in-flight submission should produce no feedback")
	}
}

func TestModel_LocationPrompt(t *testing.T) {
	m, b := newTestTab(t)
	b.submitErr = gate.ErrPermissionRequired

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(t, m, cmd)
	if !strings.Contains(m.View(), "Permission Required") {
		t.Error("view should show the permission prompt")
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if next := run(t, m, cmd); next != nil {
		t.Error("successful recovery should be silent")
	}
	if len(b.recovered) != 1 || !errors.Is(b.recovered[0], gate.ErrPermissionRequired) {
		t.Errorf("recovered = %v", b.recovered)
	}
	if m.showPrompt {
		t.Error("prompt should close after opening settings")
	}
	if b.submits != 1 {
		t.Error("enter on the prompt must not submit")
	}
}

func TestModel_LocationPromptCancel(t *testing.T) {
	m, _ := newTestTab(t)
	m.handleAvailability(availabilityMsg{avail: gate.Availability{Permitted: true}})
	if !m.showPrompt || !errors.Is(m.locationErr, gate.ErrLocationServiceOff) {
		t.Fatalf("gps off should prompt, got showPrompt=%v err=%v", m.showPrompt, m.locationErr)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.showPrompt {
		t.Error("esc should dismiss the prompt")
	}
}

func TestModel_Availability(t *testing.T) {
	tests := []struct {
		name       string
		avail      gate.Availability
		err        error
		wantPrompt bool
		wantErr    error
	}{
		{"ok", gate.Availability{Permitted: true, GPSOn: true}, nil, false, nil},
		{"denied", gate.Availability{GPSOn: true}, nil, true, gate.ErrPermissionRequired},
		{"gps off", gate.Availability{Permitted: true}, nil, true, gate.ErrLocationServiceOff},
		{"check failed", gate.Availability{}, errors.New("boom"), false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestTab(t)
			m.Update(availabilityMsg{avail: tt.avail, err: tt.err})
			if m.showPrompt != tt.wantPrompt {
				t.Errorf("showPrompt = %v, want %v", m.showPrompt, tt.wantPrompt)
			}
			if !errors.Is(m.locationErr, tt.wantErr) {
				t.Errorf("locationErr = %v, want %v", m.locationErr, tt.wantErr)
			}
		})
	}
}

func TestModel_DeviceChangedRechecks(t *testing.T) {
	m, b := newTestTab(t)
	m.Update(app.TabActivatedMsg{})
	m.showPrompt = true

	_, cmd := m.Update(app.ServiceEventMsg{Event: services.DeviceChangedEvent{}})
	run(t, m, cmd)
	if m.showPrompt {
		t.Error("prompt should hide once location is available")
	}

	b.avail = gate.Availability{Permitted: true}
	_, cmd = m.Update(app.ServiceEventMsg{Event: services.DeviceChangedEvent{}})
	run(t, m, cmd)
	if !m.showPrompt {
		t.Error("prompt should show when the location service is off")
	}
}

func TestModel_FocusAndBlur(t *testing.T) {
	m, b := newTestTab(t)

	if _, cmd := m.Update(tea.FocusMsg{}); cmd != nil || b.warmups != 0 {
		t.Error("inactive tab should ignore focus")
	}

	m.Update(app.TabActivatedMsg{})
	m.Update(tea.BlurMsg{})
	if b.stops != 1 {
		t.Errorf("blur should stop warmup, stops = %d", b.stops)
	}

	_, cmd := m.Update(tea.FocusMsg{})
	if cmd == nil {
		t.Fatal("focus should schedule a recheck")
	}
	if b.warmups != 2 {
		t.Errorf("focus should restart warmup, warmups = %d", b.warmups)
	}

	if _, cmd := m.Update(recheckMsg{}); cmd == nil {
		t.Error("recheck should check location")
	}
}

func TestModel_ReconcileFeedback(t *testing.T) {
	m, b := newTestTab(t)
	b.reconcileErr = session.ErrSessionExpired

	_, cmd := m.Update(app.RefreshMsg{})
	next := run(t, m, cmd)
	if b.reconciles != 1 {
		t.Fatalf("reconciles = %d, want 1", b.reconciles)
	}

	msg, ok := next().(app.FeedbackMsg)
	if !ok || msg.Feedback.Kind != models.FeedbackSessionReset {
		t.Errorf("expected session reset feedback, got %#v", msg)
	}

	b.reconcileErr = nil
	_, cmd = m.Update(app.RefreshMsg{})
	if next := run(t, m, cmd); next != nil {
		t.Error("successful reconcile should be silent")
	}
}

func TestModel_ModePicker(t *testing.T) {
	m, b := newTestTab(t)

	m.Update(keyRunes("m"))
	if !m.pickingMode {
		t.Fatal("m should open the picker")
	}
	if !strings.Contains(m.View(), "Select work mode") {
		t.Error("view should show the picker")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.pickingMode {
		t.Error("picker should close after selection")
	}
	if len(b.modes) != 1 || b.modes[0] != models.WorkModeOffice {
		t.Errorf("modes = %v, want [Office]", b.modes)
	}
	if b.submits != 0 {
		t.Error("selecting a mode must not submit")
	}

	m.Update(keyRunes("m"))
	if m.modeCursor != 1 {
		t.Errorf("cursor should start on the current mode, got %d", m.modeCursor)
	}
	m.Update(keyRunes("w"))
	if b.snap.WorkMode != models.WorkModeWFH {
		t.Errorf("WorkMode = %q, want WFH", b.snap.WorkMode)
	}

	m.Update(keyRunes("m"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.pickingMode || len(b.modes) != 2 {
		t.Error("esc should close without selecting")
	}
}

func TestModel_ModeLocked(t *testing.T) {
	m, b := newTestTab(t)
	b.snap.ModeLocked = true

	_, cmd := m.Update(keyRunes("m"))
	if m.pickingMode {
		t.Error("locked mode should not open the picker")
	}
	msg, ok := cmd().(app.FeedbackMsg)
	if !ok || msg.Feedback.Message != "Work mode is locked after check-in" {
		t.Errorf("unexpected feedback %#v", msg)
	}
}

func TestModel_ModeError(t *testing.T) {
	m, b := newTestTab(t)
	b.modeErr = tracker.ErrModeLocked

	m.Update(keyRunes("m"))
	_, cmd := m.Update(keyRunes("o"))
	if cmd == nil {
		t.Fatal("failed selection should produce feedback")
	}
	if _, ok := cmd().(app.FeedbackMsg); !ok {
		t.Error("expected FeedbackMsg")
	}
}

func TestModel_OpenSettings(t *testing.T) {
	m, b := newTestTab(t)
	b.recoverErr = errors.New("no handler")

	_, cmd := m.Update(keyRunes("s"))
	next := run(t, m, cmd)
	if len(b.recovered) != 1 || b.recovered[0] != nil {
		t.Errorf("recovered = %v, want [nil]", b.recovered)
	}

	msg, ok := next().(app.AddNotificationMsg)
	if !ok || msg.Type != app.NotificationError {
		t.Errorf("expected error notification, got %#v", msg)
	}
}

func TestModel_View(t *testing.T) {
	m, b := newTestTab(t)
	m.now = time.Date(2024, 3, 4, 13, 15, 0, 0, time.UTC)

	in := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	b.snap = tracker.Snapshot{
		Stats:      models.NewAttendanceStats(&in, nil, time.UTC).WithLiveHours(m.now),
		WorkMode:   models.WorkModeOffice,
		CheckedIn:  true,
		ModeLocked: true,
	}

	view := m.View()
	for _, want := range []string{
		"Good Afternoon, Asha",
		"01:15 PM",
		"Mar 4, 2024",
		"Check Out",
		"09:00 AM",
		"04:15",
		"In Office (locked)",
		"4h 15m / 9h 00m",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	b.snap.Phase = tracker.PhaseSubmitting
	b.snap.Progress = tracker.LabelSaving
	if !strings.Contains(m.View(), tracker.LabelSaving) {
		t.Error("busy view should show progress")
	}
}

func TestWorkedDuration(t *testing.T) {
	in := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	out := in.Add(8 * time.Hour)
	now := in.Add(3 * time.Hour)

	tests := []struct {
		now   time.Time
		name  string
		stats models.AttendanceStats
		want  time.Duration
	}{
		{now, "empty", models.EmptyStats(), 0},
		{now, "open", models.NewAttendanceStats(&in, nil, time.UTC), 3 * time.Hour},
		{now, "closed", models.NewAttendanceStats(&in, &out, time.UTC), 8 * time.Hour},
		{in.Add(-time.Minute), "clock skew", models.NewAttendanceStats(&in, nil, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workedDuration(tt.stats, tt.now); got != tt.want {
				t.Errorf("workedDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModel_Help(t *testing.T) {
	m, _ := newTestTab(t)
	if len(m.ShortHelp()) == 0 || len(m.FullHelp()) == 0 {
		t.Error("help bindings should not be empty")
	}
}

// Package attendance keeps the day's attendance state in step with the server
// and runs check-in and check-out submissions.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/attendance-tui/internal/logger"
	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/services/api"
	"github.com/j-veylop/attendance-tui/internal/services/session"
)

var (
	// ErrModeNotSelected means a check-in was attempted without a work mode.
	ErrModeNotSelected = errors.New("work mode not selected")
	// ErrInFlight means another submission is still running.
	ErrInFlight = errors.New("submission already in progress")
	// ErrModeLocked means the work mode cannot change after checking in.
	ErrModeLocked = errors.New("work mode locked for today")
	// ErrInvalidMode means the work mode is not one of the known modes.
	ErrInvalidMode = errors.New("invalid work mode")
)

// Phase is the step a submission is in.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseAcquiringLocation
	PhaseSubmitting
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseAcquiringLocation:
		return "acquiring location"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Busy reports whether a submission is between start and finish.
func (p Phase) Busy() bool {
	return p == PhaseValidating || p == PhaseAcquiringLocation || p == PhaseSubmitting
}

// Progress labels shown while busy. Location steps use the labels reported by
// the locator.
const (
	LabelProcessing = "Processing..."
	LabelSaving     = "Saving attendance..."
)

// API is the attendance part of the server API.
type API interface {
	Today(ctx context.Context, token string) (*api.TodayResponse, error)
	CheckIn(ctx context.Context, token string, req api.CheckInRequest) (*api.AttendanceResponse, error)
	CheckOut(ctx context.Context, token string, coords models.Coordinates) (*api.AttendanceResponse, error)
}

// Gatekeeper checks that location can be used.
type Gatekeeper interface {
	Validate(ctx context.Context) error
}

// Locator produces the position sent with a submission.
type Locator interface {
	Acquire(ctx context.Context, report func(string)) (models.LocationSample, error)
}

// Session supplies the bearer token and drops it when the server rejects it.
type Session interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// EventLog records successful submissions locally.
type EventLog interface {
	InsertAttendanceEvent(ctx context.Context, event *models.AttendanceEvent) error
}

// Deps are the collaborators of a Tracker. EventLog and OnChange are optional.
type Deps struct {
	API      API
	Gate     Gatekeeper
	Locator  Locator
	Session  Session
	EventLog EventLog
	// OnChange is called after every state change, outside the lock.
	OnChange func(Snapshot)
	Location *time.Location
}

// Snapshot is a consistent copy of the tracker state.
type Snapshot struct {
	Stats      models.AttendanceStats
	WorkMode   models.WorkMode
	Progress   string
	Phase      Phase
	CheckedIn  bool
	ModeLocked bool
	// Loaded is set once a reconcile has succeeded.
	Loaded bool
}

// Result describes a successful submission.
type Result struct {
	At       time.Time
	Event    models.AttendanceEvent
	Action   models.AttendanceAction
	Snapshot Snapshot
}

// Message is the success notice for the result.
func (r *Result) Message(loc *time.Location) string {
	if r.Action == models.ActionCheckOut {
		return "Checked out at " + models.FormatClock(r.At, loc)
	}
	return "Checked in at " + models.FormatClock(r.At, loc)
}

// Tracker owns the day's attendance state. Only Reconcile and Submit write
// the stats and the checked-in flag; a submission in flight excludes
// reconciles, and the in-flight flag excludes concurrent submissions.
type Tracker struct {
	deps     Deps
	now      func() time.Time
	loc      *time.Location
	inFlight atomic.Bool

	mu         sync.Mutex
	stats      models.AttendanceStats
	workMode   models.WorkMode
	progress   string
	phase      Phase
	checkedIn  bool
	modeLocked bool
	loaded     bool
	// version increments on every successful submission so a reconcile
	// that started earlier does not overwrite its result.
	version uint64
}

// NewTracker creates a tracker with empty state.
func NewTracker(deps Deps) *Tracker {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{
		deps:  deps,
		now:   time.Now,
		loc:   loc,
		stats: models.EmptyStats(),
	}
}

// Location returns the display time zone.
func (t *Tracker) Location() *time.Location {
	return t.loc
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		Stats:      t.stats,
		WorkMode:   t.workMode,
		Progress:   t.progress,
		Phase:      t.phase,
		CheckedIn:  t.checkedIn,
		ModeLocked: t.modeLocked,
		Loaded:     t.loaded,
	}
}

// update applies fn under the lock and reports the new state.
func (t *Tracker) update(fn func()) Snapshot {
	t.mu.Lock()
	fn()
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if t.deps.OnChange != nil {
		t.deps.OnChange(snap)
	}
	return snap
}

func (t *Tracker) setPhase(phase Phase, progress string) {
	t.update(func() {
		t.phase = phase
		t.progress = progress
	})
}

// SetWorkMode selects the day's work mode.
func (t *Tracker) SetWorkMode(mode models.WorkMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if t.inFlight.Load() {
		return ErrInFlight
	}

	var err error
	t.update(func() {
		if t.modeLocked {
			err = ErrModeLocked
			return
		}
		t.workMode = mode
	})
	return err
}

// Reconcile loads today's attendance from the server. Failures are logged
// and leave the state as it was; only a rejected session is returned, as
// session.ErrSessionExpired or session.ErrNoSession.
func (t *Tracker) Reconcile(ctx context.Context) (Snapshot, error) {
	if t.inFlight.Load() {
		return t.Snapshot(), nil
	}

	t.mu.Lock()
	version := t.version
	t.mu.Unlock()

	token, err := t.deps.Session.Token(ctx)
	if err != nil {
		if errors.Is(err, session.ErrSessionExpired) || errors.Is(err, session.ErrNoSession) {
			return t.Snapshot(), err
		}
		logger.Warn("reconcile: failed to read token", "error", err)
		return t.Snapshot(), nil
	}

	resp, err := t.deps.API.Today(ctx, token)
	if err != nil {
		if api.IsSessionInvalid(err) {
			return t.Snapshot(), t.expire(ctx, err)
		}
		logger.Warn("reconcile: failed to load today's attendance", "error", err)
		return t.Snapshot(), nil
	}

	checkIn, checkOut, err := resp.Attendance.Instants()
	if err != nil {
		logger.Warn("reconcile: invalid attendance instants", "error", err)
		return t.Snapshot(), nil
	}
	if (resp.HasCheckedIn && checkIn == nil) || (resp.HasCheckedOut && checkOut == nil) {
		logger.Warn("reconcile: attendance flags without instants",
			"hasCheckedIn", resp.HasCheckedIn, "hasCheckedOut", resp.HasCheckedOut)
		return t.Snapshot(), nil
	}

	applied := false
	snap := t.update(func() {
		if t.inFlight.Load() || t.version != version {
			return
		}
		applied = true

		stats := models.NewAttendanceStats(checkIn, checkOut, t.loc)
		// Keep the live total computed by Tick for the same open day.
		if stats.Open() && t.stats.Open() && t.stats.CheckInInstant.Equal(*stats.CheckInInstant) {
			stats.TotalHours = t.stats.TotalHours
		}
		t.stats = stats
		t.checkedIn = resp.HasCheckedIn && !resp.HasCheckedOut
		switch {
		case resp.WorkMode.Valid():
			t.workMode = resp.WorkMode
		case !resp.HasCheckedIn && t.modeLocked:
			// The server has started a new day; the mode must be chosen again.
			t.workMode = models.WorkModeNone
		}
		t.modeLocked = resp.HasCheckedIn
		t.loaded = true
	})
	if !applied {
		logger.Debug("reconcile result discarded, submission in progress")
	}
	return snap, nil
}

// Submit checks in or out depending on the current state. It validates the
// location gate, acquires a position, calls the server and applies the
// returned instants. A concurrent call returns ErrInFlight at once. On any
// failure the attendance state is left unchanged.
func (t *Tracker) Submit(ctx context.Context) (*Result, error) {
	if !t.inFlight.CompareAndSwap(false, true) {
		return nil, ErrInFlight
	}
	defer t.inFlight.Store(false)

	snap := t.Snapshot()
	action := models.ActionCheckIn
	if snap.CheckedIn {
		action = models.ActionCheckOut
	}
	if action == models.ActionCheckIn && !snap.WorkMode.Valid() {
		return nil, ErrModeNotSelected
	}

	res, err := t.submit(ctx, action, snap.WorkMode)
	if err != nil {
		t.setPhase(PhaseFailed, "")
		t.setPhase(PhaseIdle, "")
		logger.Warn("attendance submission failed", "action", action, "error", err)
		return nil, err
	}

	t.setPhase(PhaseSuccess, "")
	res.Snapshot = t.update(func() {
		t.phase = PhaseIdle
		t.progress = ""
	})
	return res, nil
}

func (t *Tracker) submit(ctx context.Context, action models.AttendanceAction, mode models.WorkMode) (*Result, error) {
	t.setPhase(PhaseValidating, LabelProcessing)
	if err := t.deps.Gate.Validate(ctx); err != nil {
		return nil, err
	}

	t.setPhase(PhaseAcquiringLocation, LabelProcessing)
	sample, err := t.deps.Locator.Acquire(ctx, func(label string) {
		t.setPhase(PhaseAcquiringLocation, label)
	})
	if err != nil {
		return nil, err
	}

	t.setPhase(PhaseSubmitting, LabelSaving)
	token, err := t.deps.Session.Token(ctx)
	if err != nil {
		return nil, err
	}

	var resp *api.AttendanceResponse
	if action == models.ActionCheckIn {
		resp, err = t.deps.API.CheckIn(ctx, token, api.CheckInRequest{
			Coordinates: sample.Coordinates,
			WorkMode:    mode,
		})
	} else {
		resp, err = t.deps.API.CheckOut(ctx, token, sample.Coordinates)
	}
	if err != nil {
		if api.IsSessionInvalid(err) {
			return nil, t.expire(ctx, err)
		}
		return nil, err
	}

	checkIn, checkOut, err := resp.Attendance.Instants()
	if err != nil {
		logger.Warn("submission response carried invalid instants", "error", err)
		checkIn, checkOut = nil, nil
	}

	now := t.now()
	var at time.Time
	t.update(func() {
		t.version++
		in, out := t.stats.CheckInInstant, t.stats.CheckOutInstant
		if action == models.ActionCheckIn {
			if checkIn == nil {
				checkIn = &now
			}
			// A new check-in opens the day again.
			in, out = checkIn, nil
			at = *checkIn
			t.checkedIn = true
			t.modeLocked = true
		} else {
			if checkOut == nil {
				checkOut = &now
			}
			if checkIn != nil {
				in = checkIn
			}
			out = checkOut
			at = *checkOut
			t.checkedIn = false
		}
		t.stats = models.NewAttendanceStats(in, out, t.loc)
		t.loaded = true
	})

	event := models.AttendanceEvent{
		OccurredAt:  at,
		Action:      action,
		WorkMode:    mode,
		RequestID:   resp.RequestID,
		Coordinates: sample.Coordinates,
	}
	if event.RequestID == "" {
		event.RequestID = uuid.NewString()
	}
	if t.deps.EventLog != nil {
		if err := t.deps.EventLog.InsertAttendanceEvent(ctx, &event); err != nil {
			logger.Error("failed to record attendance event", "error", err)
		}
	}

	logger.Info("attendance submitted", "action", action, "mode", mode, "at", at)
	return &Result{Action: action, At: at, Event: event}, nil
}

// expire clears the stored session after the server rejected the token.
func (t *Tracker) expire(ctx context.Context, cause error) error {
	if err := t.deps.Session.Clear(ctx); err != nil {
		logger.Error("failed to clear rejected session", "error", err)
	}
	return fmt.Errorf("%w: %w", session.ErrSessionExpired, cause)
}

// Tick refreshes the live total hours of an open day. It reports whether
// anything changed.
func (t *Tracker) Tick(now time.Time) bool {
	changed := false
	t.mu.Lock()
	if t.checkedIn && t.stats.Open() {
		live := t.stats.WithLiveHours(now)
		if live.TotalHours != t.stats.TotalHours {
			t.stats = live
			changed = true
		}
	}
	t.mu.Unlock()

	if changed && t.deps.OnChange != nil {
		t.deps.OnChange(t.Snapshot())
	}
	return changed
}

// Rollover clears a completed day once the local date has moved past it and
// unlocks the work mode. Open days are kept so overnight shifts can check
// out. It reports whether the state was reset.
func (t *Tracker) Rollover(now time.Time) bool {
	if t.inFlight.Load() {
		return false
	}

	reset := false
	t.mu.Lock()
	if !t.checkedIn && t.stats.Completed() && !models.SameDay(*t.stats.CheckOutInstant, now, t.loc) {
		t.stats = models.EmptyStats()
		t.workMode = models.WorkModeNone
		t.modeLocked = false
		reset = true
	}
	t.mu.Unlock()

	if reset {
		logger.Info("new day, attendance state cleared")
		if t.deps.OnChange != nil {
			t.deps.OnChange(t.Snapshot())
		}
	}
	return reset
}

// Reset drops all state, as after logout.
func (t *Tracker) Reset() {
	t.update(func() {
		t.stats = models.EmptyStats()
		t.workMode = models.WorkModeNone
		t.progress = ""
		t.phase = PhaseIdle
		t.checkedIn = false
		t.modeLocked = false
		t.loaded = false
		t.version++
	})
}

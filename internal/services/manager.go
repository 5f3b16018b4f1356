// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/attendance-tui/internal/config"
	"github.com/j-veylop/attendance-tui/internal/db"
	"github.com/j-veylop/attendance-tui/internal/device"
	"github.com/j-veylop/attendance-tui/internal/export"
	"github.com/j-veylop/attendance-tui/internal/logger"
	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/services/api"
	"github.com/j-veylop/attendance-tui/internal/services/attendance"
	"github.com/j-veylop/attendance-tui/internal/services/gate"
	"github.com/j-veylop/attendance-tui/internal/services/location"
	"github.com/j-veylop/attendance-tui/internal/services/session"
)

// History sizes.
const (
	HistoryEventLimit = 50
	HistoryDays       = 14
)

type (
	// AttendanceChangedEvent is emitted whenever the tracker state changes,
	// including each progress step of a submission.
	AttendanceChangedEvent struct {
		Snapshot attendance.Snapshot
	}

	// DeviceChangedEvent is emitted when the device's location settings
	// change outside the app.
	DeviceChangedEvent struct{}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Error   error
		Service string
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (AttendanceChangedEvent) isServiceEvent() {}
func (DeviceChangedEvent) isServiceEvent()     {}
func (ErrorEvent) isServiceEvent()             {}

// HistoryData is what the history tab shows.
type HistoryData struct {
	Events []models.AttendanceEvent
	Totals []models.DailyTotal
}

// Manager orchestrates services and event routing.
type Manager struct {
	cfg         *config.Config
	database    *db.DB
	client      *api.Client
	session     *session.Service
	device      *device.File
	location    *location.Service
	gate        *gate.Gate
	tracker     *attendance.Tracker
	notify      func(title, body string) error
	now         func() time.Time
	eventChan   chan ServiceEvent
	stopChan    chan struct{}
	subscribers []chan<- ServiceEvent
	mu          sync.RWMutex
	closeOnce   sync.Once
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	return newManager(cfg, &http.Client{Timeout: cfg.HTTPTimeout})
}

func newManager(cfg *config.Config, httpClient *http.Client) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		eventChan: make(chan ServiceEvent, 100),
		stopChan:  make(chan struct{}),
		now:       time.Now,
		notify: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
	}

	var err error
	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	m.device, err = device.New(cfg.DevicePath)
	if err != nil {
		_ = m.database.Close()
		return nil, fmt.Errorf("failed to initialize device: %w", err)
	}

	m.client = api.NewClient(cfg.APIBaseURL, httpClient)
	m.session = session.New(m.database, m.client)

	lcfg := location.DefaultConfig()
	if cfg.LocationCacheTTL > 0 {
		lcfg.CacheTTL = cfg.LocationCacheTTL
	}
	if cfg.FastFixTimeout > 0 {
		lcfg.FastTimeout = cfg.FastFixTimeout
	}
	if cfg.PreciseFixTimeout > 0 {
		lcfg.PreciseTimeout = cfg.PreciseFixTimeout
	}
	m.location = location.NewService(m.device, lcfg)

	m.gate = gate.New(cfg.Platform, m.device, m.device, device.NewSystemSettings(cfg.DevicePath), cfg.GPSProbeTimeout)

	m.tracker = attendance.NewTracker(attendance.Deps{
		API:      m.client,
		Gate:     m.gate,
		Locator:  m.location,
		Session:  m.session,
		EventLog: m.database,
		Location: cfg.DisplayTimezone,
		OnChange: func(s attendance.Snapshot) {
			m.broadcast(AttendanceChangedEvent{Snapshot: s})
		},
	})

	go m.routeEvents()

	return m, nil
}

// routeEvents routes events from individual services to subscribers.
func (m *Manager) routeEvents() {
	for {
		select {
		case event, ok := <-m.device.Events():
			if !ok {
				return
			}
			m.handleDeviceEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleDeviceEvent(event device.Event) {
	switch event.Type {
	case device.EventChanged:
		m.broadcast(DeviceChangedEvent{})
	case device.EventError:
		m.broadcast(ErrorEvent{Service: "device", Error: event.Error})
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	select {
	case m.eventChan <- event:
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Login signs in, attaching a best-effort location.
func (m *Manager) Login(ctx context.Context, creds session.Credentials) (*session.LoginResult, error) {
	var loc *api.LoginLocation
	if sample := m.location.Optional(ctx); sample != nil {
		loc = &api.LoginLocation{Coordinates: sample.Coordinates, Accuracy: sample.Accuracy}
	}
	return m.session.Login(ctx, creds, loc)
}

// RestoreSession validates the stored session. When the server cannot be
// reached the cached profile is used so the app still opens offline.
func (m *Manager) RestoreSession(ctx context.Context) (*models.UserProfile, error) {
	profile, err := m.session.Restore(ctx)
	if err == nil {
		return profile, nil
	}
	if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrSessionExpired) {
		return nil, err
	}

	cached, cerr := m.session.CachedProfile(ctx)
	if cerr != nil || cached.Name == "" {
		return nil, err
	}
	logger.Warn("session check failed, using cached profile", "error", err)
	return &cached, nil
}

// Profile fetches the current profile from the server.
func (m *Manager) Profile(ctx context.Context) (*models.UserProfile, error) {
	return m.session.Profile(ctx)
}

// Logout ends the session and drops the day's state.
func (m *Manager) Logout(ctx context.Context) error {
	m.location.StopWarmup()
	m.tracker.Reset()
	return m.session.Logout(ctx)
}

// EndSession drops the local session without contacting the server. It is
// used after the server has rejected the token.
func (m *Manager) EndSession(ctx context.Context) error {
	m.location.StopWarmup()
	m.tracker.Reset()
	return m.session.Clear(ctx)
}

// Snapshot returns the tracker state.
func (m *Manager) Snapshot() attendance.Snapshot {
	return m.tracker.Snapshot()
}

// Reconcile refreshes today's state from the server.
func (m *Manager) Reconcile(ctx context.Context) (attendance.Snapshot, error) {
	return m.tracker.Reconcile(ctx)
}

// SetWorkMode selects the work mode for the next check-in.
func (m *Manager) SetWorkMode(mode models.WorkMode) error {
	return m.tracker.SetWorkMode(mode)
}

// TickHours refreshes the live total of an open day.
func (m *Manager) TickHours(now time.Time) bool {
	return m.tracker.Tick(now)
}

// Rollover clears a finished day once the local date changes.
func (m *Manager) Rollover(now time.Time) bool {
	return m.tracker.Rollover(now)
}

// DisplayLocation returns the zone times are shown in.
func (m *Manager) DisplayLocation() *time.Location {
	return m.tracker.Location()
}

// CheckLocation reports whether location can be used right now.
func (m *Manager) CheckLocation(ctx context.Context) (gate.Availability, error) {
	return m.gate.CheckAvailability(ctx)
}

// StartWarmup begins refreshing the location cache in the background.
func (m *Manager) StartWarmup() {
	m.location.StartWarmup()
}

// StopWarmup stops the background location watch.
func (m *Manager) StopWarmup() {
	m.location.StopWarmup()
}

// SubmitAttendance checks in or out and raises a desktop notification on
// success.
func (m *Manager) SubmitAttendance(ctx context.Context) (*attendance.Result, error) {
	res, err := m.tracker.Submit(ctx)
	if err != nil {
		return nil, err
	}

	if m.cfg.DesktopNotifications {
		title := "Checked in"
		if res.Action == models.ActionCheckOut {
			title = "Checked out"
		}
		if err := m.notify(title, res.Message(m.tracker.Location())); err != nil {
			logger.Debug("desktop notification failed", "error", err)
		}
	}
	return res, nil
}

// History loads the recent events and daily totals.
func (m *Manager) History(ctx context.Context) (*HistoryData, error) {
	events, err := m.database.RecentAttendanceEvents(ctx, HistoryEventLimit)
	if err != nil {
		return nil, err
	}
	totals, err := m.database.DailyTotals(ctx, HistoryDays, m.tracker.Location(), m.now())
	if err != nil {
		return nil, err
	}
	return &HistoryData{Events: events, Totals: totals}, nil
}

// Export writes the full local log to a new workbook in the export
// directory and returns its path.
func (m *Manager) Export(ctx context.Context) (string, error) {
	now := m.now()
	events, err := m.database.AttendanceEventsSince(ctx, time.Time{})
	if err != nil {
		return "", err
	}
	totals, err := m.database.DailyTotals(ctx, HistoryDays, m.tracker.Location(), now)
	if err != nil {
		return "", err
	}

	path := filepath.Join(m.cfg.ExportDir, export.FileName(now))
	if err := export.WriteXLSX(path, events, totals, m.tracker.Location()); err != nil {
		return "", err
	}
	logger.Info("attendance exported", "path", path, "events", len(events))
	return path, nil
}

// RecoverLocation opens the settings that fix a gate error. A nil error
// opens whichever settings the current availability calls for.
func (m *Manager) RecoverLocation(ctx context.Context, err error) error {
	if err == nil {
		avail, checkErr := m.gate.CheckAvailability(ctx)
		if checkErr != nil {
			return checkErr
		}
		err = gate.ErrLocationServiceOff
		if !avail.Permitted {
			err = gate.ErrPermissionRequired
		}
	}
	return m.gate.Recover(err)
}

// Session returns the session service.
func (m *Manager) Session() *session.Service {
	return m.session
}

// Tracker returns the attendance tracker.
func (m *Manager) Tracker() *attendance.Tracker {
	return m.tracker
}

// Gate returns the location gate.
func (m *Manager) Gate() *gate.Gate {
	return m.gate
}

// Location returns the location service.
func (m *Manager) Location() *location.Service {
	return m.location
}

// Device returns the device adapter.
func (m *Manager) Device() *device.File {
	return m.device
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	var errs []error
	m.closeOnce.Do(func() {
		close(m.stopChan)

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if err := m.location.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := m.device.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := m.database.Vacuum(); err != nil {
			logger.Warn("failed to compact database", "error", err)
		}
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

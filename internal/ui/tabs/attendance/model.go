// Package attendance provides the check-in and check-out tab.
package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/attendance-tui/internal/app"
	"github.com/j-veylop/attendance-tui/internal/logger"
	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/services"
	tracker "github.com/j-veylop/attendance-tui/internal/services/attendance"
	"github.com/j-veylop/attendance-tui/internal/services/gate"
	"github.com/j-veylop/attendance-tui/internal/ui/components"
)

const (
	clockInterval = time.Second
	hoursInterval = time.Minute

	// focusRecheckDelay lets the OS settle after returning from settings.
	focusRecheckDelay = 500 * time.Millisecond

	reconcileTimeout = 20 * time.Second
	submitTimeout    = 90 * time.Second
	checkTimeout     = 10 * time.Second
)

// Backend is what the tab needs from the services layer.
type Backend interface {
	Snapshot() tracker.Snapshot
	Reconcile(ctx context.Context) (tracker.Snapshot, error)
	SetWorkMode(mode models.WorkMode) error
	SubmitAttendance(ctx context.Context) (*tracker.Result, error)
	CheckLocation(ctx context.Context) (gate.Availability, error)
	RecoverLocation(ctx context.Context, err error) error
	StartWarmup()
	StopWarmup()
	TickHours(now time.Time) bool
	Rollover(now time.Time) bool
	DisplayLocation() *time.Location
}

type (
	clockTickMsg struct {
		time time.Time
		gen  int
	}

	hoursTickMsg struct {
		time time.Time
		gen  int
	}

	reconciledMsg struct {
		err error
	}

	submittedMsg struct {
		result *tracker.Result
		err    error
	}

	availabilityMsg struct {
		avail gate.Availability
		err   error
	}

	recheckMsg struct{}

	recoveredMsg struct {
		err error
	}
)

type keyMap struct {
	Submit   key.Binding
	Mode     key.Binding
	Settings key.Binding
	Up       key.Binding
	Down     key.Binding
	WFH      key.Binding
	Office   key.Binding
	Confirm  key.Binding
	Cancel   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "check in/out"),
		),
		Mode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "work mode"),
		),
		Settings: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "location settings"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		WFH: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "work from home"),
		),
		Office: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "in office"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// Model represents the attendance tab state.
type Model struct {
	now         time.Time
	backend     Backend
	locationErr error
	state       *app.State
	clock       func() time.Time
	spinner     components.LoadingSpinner
	keys        keyMap
	workday     components.WorkdayBar
	width       int
	height      int
	gen         int
	modeCursor  int
	active      bool
	pickingMode bool
	showPrompt  bool
}

// New creates a new attendance tab.
func New(state *app.State, backend Backend) *Model {
	return &Model{
		state:   state,
		backend: backend,
		clock:   time.Now,
		now:     time.Now(),
		spinner: components.NewSpinner(tracker.LabelProcessing),
		keys:    defaultKeyMap(),
		workday: components.NewWorkdayBar(40, components.DefaultWorkday),
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.TabActivatedMsg:
		return m, m.activate()

	case app.TabDeactivatedMsg:
		m.deactivate()

	case tea.FocusMsg:
		if m.active {
			m.backend.StartWarmup()
			return m, app.Delayed(focusRecheckDelay, recheckMsg{})
		}

	case tea.BlurMsg:
		if m.active {
			m.backend.StopWarmup()
		}

	case recheckMsg:
		if m.active {
			return m, m.checkLocationCmd()
		}

	case app.RefreshMsg:
		return m, m.reconcileCmd()

	case app.ServiceEventMsg:
		if _, ok := msg.Event.(services.DeviceChangedEvent); ok && m.active {
			return m, m.checkLocationCmd()
		}

	case clockTickMsg:
		return m, m.handleClockTick(msg)

	case hoursTickMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.backend.TickHours(msg.time)
		return m, hoursTickCmd(m.gen)

	case reconciledMsg:
		return m, app.Feedback(tracker.Describe(msg.err))

	case submittedMsg:
		return m, m.handleSubmitted(msg)

	case availabilityMsg:
		m.handleAvailability(msg)

	case recoveredMsg:
		if msg.err != nil {
			logger.Warn("opening settings failed", "error", msg.err)
			return m, app.NotifyError("Unable to open settings")
		}

	case tea.KeyMsg:
		return m, m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) activate() tea.Cmd {
	m.active = true
	m.gen++
	m.now = m.clock()
	m.backend.StartWarmup()
	return tea.Batch(
		m.reconcileCmd(),
		m.checkLocationCmd(),
		clockTickCmd(m.gen),
		hoursTickCmd(m.gen),
		m.spinner.Tick(),
	)
}

func (m *Model) deactivate() {
	m.active = false
	m.gen++
	m.pickingMode = false
	m.backend.StopWarmup()
}

func (m *Model) handleClockTick(msg clockTickMsg) tea.Cmd {
	if msg.gen != m.gen {
		return nil
	}
	m.now = msg.time
	m.backend.Rollover(msg.time)
	return clockTickCmd(m.gen)
}

func (m *Model) handleSubmitted(msg submittedMsg) tea.Cmd {
	if msg.err != nil {
		fb := tracker.Describe(msg.err)
		if fb.OpenSettings {
			m.showPrompt = true
			m.locationErr = msg.err
		}
		return app.Feedback(fb)
	}
	m.showPrompt = false
	return app.NotifySuccess(msg.result.Message(m.backend.DisplayLocation()))
}

func (m *Model) handleAvailability(msg availabilityMsg) {
	if msg.err != nil {
		logger.Debug("location check failed", "error", msg.err)
		return
	}
	if msg.avail.OK() {
		m.showPrompt = false
		m.locationErr = nil
		return
	}
	m.showPrompt = true
	m.locationErr = gate.ErrLocationServiceOff
	if !msg.avail.Permitted {
		m.locationErr = gate.ErrPermissionRequired
	}
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if m.pickingMode {
		return m.handleModeKey(msg)
	}
	if m.showPrompt {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.showPrompt = false
			return m.recoverCmd(m.locationErr)
		case key.Matches(msg, m.keys.Cancel):
			m.showPrompt = false
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		if m.backend.Snapshot().Phase.Busy() {
			return nil
		}
		return m.submitCmd()

	case key.Matches(msg, m.keys.Mode):
		snap := m.backend.Snapshot()
		if snap.ModeLocked {
			return app.Feedback(tracker.Describe(tracker.ErrModeLocked))
		}
		m.pickingMode = true
		m.modeCursor = 0
		for i, mode := range models.WorkModes {
			if mode == snap.WorkMode {
				m.modeCursor = i
			}
		}

	case key.Matches(msg, m.keys.Settings):
		return m.recoverCmd(nil)
	}
	return nil
}

func (m *Model) handleModeKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.pickingMode = false
	case key.Matches(msg, m.keys.Up):
		m.modeCursor = (m.modeCursor - 1 + len(models.WorkModes)) % len(models.WorkModes)
	case key.Matches(msg, m.keys.Down):
		m.modeCursor = (m.modeCursor + 1) % len(models.WorkModes)
	case key.Matches(msg, m.keys.Confirm):
		return m.selectMode(models.WorkModes[m.modeCursor])
	case key.Matches(msg, m.keys.WFH):
		return m.selectMode(models.WorkModeWFH)
	case key.Matches(msg, m.keys.Office):
		return m.selectMode(models.WorkModeOffice)
	}
	return nil
}

func (m *Model) selectMode(mode models.WorkMode) tea.Cmd {
	m.pickingMode = false
	if err := m.backend.SetWorkMode(mode); err != nil {
		return app.Feedback(tracker.Describe(err))
	}
	return nil
}

func (m *Model) reconcileCmd() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		defer cancel()
		_, err := b.Reconcile(ctx)
		return reconciledMsg{err: err}
	}
}

func (m *Model) submitCmd() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		res, err := b.SubmitAttendance(ctx)
		return submittedMsg{result: res, err: err}
	}
}

func (m *Model) checkLocationCmd() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		avail, err := b.CheckLocation(ctx)
		return availabilityMsg{avail: avail, err: err}
	}
}

func (m *Model) recoverCmd(cause error) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		err := b.RecoverLocation(ctx, cause)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		return recoveredMsg{err: err}
	}
}

func clockTickCmd(gen int) tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockTickMsg{time: t, gen: gen}
	})
}

func hoursTickCmd(gen int) tea.Cmd {
	return tea.Tick(hoursInterval, func(t time.Time) tea.Msg {
		return hoursTickMsg{time: t, gen: gen}
	})
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.workday.SetWidth(min(max(width-30, 10), 50))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Submit, m.keys.Mode, m.keys.Settings}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Submit, m.keys.Mode, m.keys.Settings},
		{m.keys.Up, m.keys.Down, m.keys.WFH, m.keys.Office},
		{m.keys.Confirm, m.keys.Cancel},
	}
}

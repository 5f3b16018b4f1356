// Package history provides the history tab: the local attendance log, daily
// hours and spreadsheet export.
package history

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/attendance-tui/internal/app"
	"github.com/j-veylop/attendance-tui/internal/logger"
	"github.com/j-veylop/attendance-tui/internal/services"
)

const (
	loadTimeout   = 10 * time.Second
	exportTimeout = 30 * time.Second
)

// Backend reads and exports the local attendance log.
type Backend interface {
	History(ctx context.Context) (*services.HistoryData, error)
	Export(ctx context.Context) (string, error)
	DisplayLocation() *time.Location
}

// keyMap defines the key bindings specific to the history tab.
type keyMap struct {
	Export key.Binding
	Up     key.Binding
	Down   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export xlsx"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// historyLoadedMsg is sent when history data is loaded.
type historyLoadedMsg struct {
	data *services.HistoryData
	err  error
}

// exportedMsg is sent when an export finishes.
type exportedMsg struct {
	path string
	err  error
}

// Model represents the history tab state.
type Model struct {
	lastRefresh time.Time
	state       *app.State
	backend     Backend
	data        *services.HistoryData
	errorMsg    string
	keys        keyMap
	viewport    viewport.Model
	width       int
	height      int
	loading     bool
	exporting   bool
}

// New creates a new history model.
func New(state *app.State, backend Backend) *Model {
	return &Model{
		state:    state,
		backend:  backend,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the history tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// loadHistoryCmd creates a command to load history data.
func (m *Model) loadHistoryCmd() tea.Cmd {
	if m.loading {
		return nil
	}
	m.loading = true
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		data, err := b.History(ctx)
		return historyLoadedMsg{data: data, err: err}
	}
}

func (m *Model) exportCmd() tea.Cmd {
	if m.exporting {
		return nil
	}
	m.exporting = true
	b := m.backend
	return tea.Batch(
		app.StartLoading("Exporting attendance..."),
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
			defer cancel()
			path, err := b.Export(ctx)
			return exportedMsg{path: path, err: err}
		},
	)
}

// Update handles messages for the history tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.TabActivatedMsg, app.RefreshMsg:
		return m, m.loadHistoryCmd()

	case historyLoadedMsg:
		m.loading = false
		if msg.err != nil {
			logger.Error("loading history failed", "error", msg.err)
			m.errorMsg = msg.err.Error()
			return m, app.NotifyError("Unable to load history")
		}
		m.data = msg.data
		m.errorMsg = ""
		m.lastRefresh = time.Now()

	case exportedMsg:
		m.exporting = false
		if msg.err != nil {
			logger.Error("export failed", "error", msg.err)
			return m, tea.Batch(app.StopLoading(), app.NotifyError("Export failed: "+msg.err.Error()))
		}
		return m, tea.Batch(app.StopLoading(), app.NotifySuccess("Exported to "+msg.path))

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Export) {
			return m, m.exportCmd()
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// SetSize sets the available size for the history tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Export}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Export},
		{m.keys.Up, m.keys.Down},
	}
}

// Package profile provides the profile tab: who is signed in, how the client
// is configured, and logout.
package profile

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/attendance-tui/internal/app"
	"github.com/j-veylop/attendance-tui/internal/config"
	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/services/attendance"
)

const profileTimeout = 15 * time.Second

// Backend loads the signed-in user's profile.
type Backend interface {
	Profile(ctx context.Context) (*models.UserProfile, error)
}

type profileLoadedMsg struct {
	profile *models.UserProfile
	err     error
}

// keyMap defines the key bindings specific to the profile tab.
type keyMap struct {
	Logout  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Up      key.Binding
	Down    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "logout"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n/esc", "cancel"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
	}
}

// Model represents the profile tab state.
type Model struct {
	state         *app.State
	config        *config.Config
	backend       Backend
	keys          keyMap
	viewport      viewport.Model
	width         int
	height        int
	loading       bool
	confirmLogout bool
}

// New creates a new profile tab.
func New(state *app.State, cfg *config.Config, backend Backend) *Model {
	return &Model{
		state:    state,
		config:   cfg,
		backend:  backend,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the profile tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the profile tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.RefreshMsg:
		return m, m.loadProfileCmd()

	case app.TabDeactivatedMsg:
		m.confirmLogout = false

	case profileLoadedMsg:
		m.loading = false
		if msg.err != nil {
			return m, app.Feedback(attendance.Describe(msg.err))
		}
		if msg.profile == nil {
			return m, nil
		}
		profile := *msg.profile
		return m, func() tea.Msg { return app.ProfileUpdatedMsg{Profile: profile} }

	case tea.KeyMsg:
		return m, m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if m.confirmLogout {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirmLogout = false
			return func() tea.Msg { return app.LogoutMsg{} }
		case key.Matches(msg, m.keys.Cancel):
			m.confirmLogout = false
		}
		return nil
	}

	if key.Matches(msg, m.keys.Logout) {
		m.confirmLogout = true
		return nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

func (m *Model) loadProfileCmd() tea.Cmd {
	if m.loading || m.backend == nil {
		return nil
	}
	m.loading = true
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), profileTimeout)
		defer cancel()
		profile, err := b.Profile(ctx)
		return profileLoadedMsg{profile: profile, err: err}
	}
}

// SetSize sets the available size for the profile tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Logout}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Logout, m.keys.Confirm, m.keys.Cancel},
		{m.keys.Up, m.keys.Down},
	}
}

// Package login provides the sign-in screen shown while no session exists.
package login

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/attendance-tui/internal/app"
	"github.com/j-veylop/attendance-tui/internal/services/session"
	"github.com/j-veylop/attendance-tui/internal/ui/components"
)

const loginTimeout = 45 * time.Second

// Backend signs the user in.
type Backend interface {
	Login(ctx context.Context, creds session.Credentials) (*session.LoginResult, error)
}

type loginResultMsg struct {
	result *session.LoginResult
	err    error
}

const (
	fieldEmail = iota
	fieldPassword
	fieldCount
)

type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "login"),
		),
	}
}

// Model is the login screen.
type Model struct {
	backend    Backend
	spinner    components.LoadingSpinner
	inputs     []textinput.Model
	keys       keyMap
	width      int
	height     int
	focus      int
	submitting bool
}

// New creates the login screen.
func New(backend Backend) *Model {
	email := textinput.New()
	email.Placeholder = "you@company.com"
	email.Prompt = "  "
	email.CharLimit = 254
	email.Width = 32

	password := textinput.New()
	password.Placeholder = "Password"
	password.Prompt = "  "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128
	password.Width = 32

	m := &Model{
		backend: backend,
		spinner: components.NewSpinner("Signing in..."),
		inputs:  []textinput.Model{email, password},
		keys:    defaultKeyMap(),
	}
	m.setFocus(fieldEmail)
	return m
}

// Init initializes the login screen.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the login screen.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.TabActivatedMsg:
		m.submitting = false
		m.inputs[fieldPassword].Reset()
		start := fieldEmail
		if m.inputs[fieldEmail].Value() != "" {
			start = fieldPassword
		}
		return m, tea.Batch(m.setFocus(start), m.spinner.Tick())

	case loginResultMsg:
		return m, m.handleResult(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Next):
			return m, m.setFocus((m.focus + 1) % fieldCount)
		case key.Matches(msg, m.keys.Prev):
			return m, m.setFocus((m.focus - 1 + fieldCount) % fieldCount)
		case key.Matches(msg, m.keys.Submit):
			if m.focus == fieldEmail && m.inputs[fieldPassword].Value() == "" {
				return m, m.setFocus(fieldPassword)
			}
			return m, m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) setFocus(field int) tea.Cmd {
	m.focus = field
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == field {
			cmd = m.inputs[i].Focus()
			continue
		}
		m.inputs[i].Blur()
	}
	return cmd
}

func (m *Model) submit() tea.Cmd {
	creds := session.Credentials{
		Email:    strings.TrimSpace(m.inputs[fieldEmail].Value()),
		Password: m.inputs[fieldPassword].Value(),
	}
	m.submitting = true
	b := m.backend
	return tea.Batch(m.spinner.Tick(), func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
		defer cancel()
		res, err := b.Login(ctx, creds)
		return loginResultMsg{result: res, err: err}
	})
}

func (m *Model) handleResult(msg loginResultMsg) tea.Cmd {
	m.submitting = false
	if msg.err != nil {
		return app.Feedback(session.LoginFeedback(msg.err))
	}

	m.inputs[fieldPassword].Reset()
	res := msg.result
	return func() tea.Msg {
		return app.LoggedInMsg{
			Profile:  res.Profile,
			Warnings: session.WarningFeedback(res.Warnings),
		}
	}
}

// SetSize sets the available size for the login screen.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Next, m.keys.Submit}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.keys.Next, m.keys.Prev, m.keys.Submit}}
}

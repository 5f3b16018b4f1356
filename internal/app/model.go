// Package app implements the main Bubble Tea application with tab-based navigation.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/services"
	"github.com/j-veylop/attendance-tui/internal/services/session"
	"github.com/j-veylop/attendance-tui/internal/ui/components"
	"github.com/j-veylop/attendance-tui/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabAttendance is the ID for the check-in/out tab.
	TabAttendance TabID = iota
	// TabProfile is the ID for the profile tab.
	TabProfile
	// TabHistory is the ID for the history tab.
	TabHistory
)

// String returns the string representation of the TabID.
func (t TabID) String() string {
	switch t {
	case TabAttendance:
		return "Attendance"
	case TabProfile:
		return "Profile"
	case TabHistory:
		return "History"
	default:
		return "Unknown"
	}
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding

	// FullHelp returns key bindings for the full help view.
	FullHelp() [][]key.Binding
}

// Services is the part of the service manager the root model drives.
type Services interface {
	Subscribe() (chan services.ServiceEvent, tea.Cmd)
	RestoreSession(ctx context.Context) (*models.UserProfile, error)
	Logout(ctx context.Context) error
	EndSession(ctx context.Context) error
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1      key.Binding
	Tab2      key.Binding
	Tab3      key.Binding
	NextTab   key.Binding
	PrevTab   key.Binding
	Refresh   key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Dismiss   key.Binding
	Escape    key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	km := KeyMap{}
	km = setTabKeys(km)
	km = setActionKeys(km)
	return km
}

func setTabKeys(k KeyMap) KeyMap {
	k.Tab1 = key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "attendance"))
	k.Tab2 = key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "profile"))
	k.Tab3 = key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "history"))
	k.NextTab = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab"))
	k.PrevTab = key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab"))
	return k
}

func setActionKeys(k KeyMap) KeyMap {
	k.Refresh = key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh"))
	k.Help = key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help"))
	k.Quit = key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit"))
	k.ForceQuit = key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit"))
	k.Dismiss = key.NewBinding(key.WithKeys("enter", "esc", " "), key.WithHelp("enter", "dismiss"))
	k.Escape = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	return k
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Refresh, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3},
		{k.NextTab, k.PrevTab},
		{k.Refresh, k.Help, k.Quit},
	}
}

// Styles defines the application styles.
type Styles struct {
	// Tab bar styles
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	User        lipgloss.Style

	// Notification styles
	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	// Content styles
	Content lipgloss.Style
	Help    lipgloss.Style
	Spinner lipgloss.Style
	Toast   lipgloss.Style
	Alert   lipgloss.Style

	// Common styles
	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	success := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warning := lipgloss.AdaptiveColor{Light: "#FF8C00", Dark: "#FF8C00"}
	errorColor := lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"}
	info := lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}

	s := Styles{}
	s.TabBar = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(subtle)
	s.ActiveTab = lipgloss.NewStyle().Bold(true).Foreground(highlight).Padding(0, 2)
	s.InactiveTab = lipgloss.NewStyle().Foreground(subtle).Padding(0, 2)
	s.User = lipgloss.NewStyle().Foreground(info).Padding(0, 2)

	s.NotificationSuccess = lipgloss.NewStyle().Foreground(success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(errorColor).Bold(true).Padding(0, 1)
	s.NotificationWarning = lipgloss.NewStyle().Foreground(warning).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(info).Padding(0, 1)

	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Help = lipgloss.NewStyle().Foreground(subtle).Padding(0, 1)
	s.Spinner = lipgloss.NewStyle().Foreground(highlight)
	s.Toast = styles.ToastStyle
	s.Alert = styles.ModalContentStyle.Width(52)

	s.Title = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	s.Subtle = lipgloss.NewStyle().Foreground(subtle)
	s.Highlight = lipgloss.NewStyle().Foreground(highlight)
	s.Error = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	s.Success = lipgloss.NewStyle().Foreground(success).Bold(true)
	s.Warning = lipgloss.NewStyle().Foreground(warning).Bold(true)

	return s
}

// Model is the main application model.
type Model struct {
	// Tab management
	activeTab TabID
	tabs      []Tab
	tabNames  []string
	login     Tab

	// Shared state
	state    *State
	services Services
	keymap   KeyMap
	styles   Styles

	// UI components
	spinner components.LoadingSpinner

	// Window dimensions
	width  int
	height int

	// UI state
	showHelp bool
	ready    bool

	// Service subscription
	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model. svc may be nil in tests.
func NewModel(svc Services) *Model {
	state := NewState()
	state.SetRestoring(svc != nil)

	return &Model{
		activeTab: TabAttendance,
		tabNames:  []string{TabAttendance.String(), TabProfile.String(), TabHistory.String()},
		tabs:      make([]Tab, 3), // set by SetTabs
		state:     state,
		services:  svc,
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   components.NewSpinner("Restoring session..."),
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// SetLogin sets the screen shown while no session exists.
func (m *Model) SetLogin(login Tab) {
	m.login = login
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// IsReady returns true if the model is ready (window size received).
func (m *Model) IsReady() bool {
	return m.ready
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick(),
		defaultTickCmd(),
	}

	if m.services != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.services))
		cmds = append(cmds, restoreSessionCmd(m.services))
	}

	if m.login != nil {
		cmds = append(cmds, m.login.Init())
	}
	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd, handled := m.handleKeyMsg(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		if handled {
			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		if appCmds := m.handleAppMsg(msg); len(appCmds) > 0 {
			cmds = append(cmds, appCmds...)
		}
	}

	if cmd := m.updateScreen(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEventMsg(msg)...)
	case SessionRestoredMsg:
		cmds = append(cmds, m.handleSessionRestored(msg))
	case LoggedInMsg:
		cmds = append(cmds, m.startSession(msg.Profile, msg.Warnings, true))
	case LogoutMsg:
		if m.services != nil {
			cmds = append(cmds, StartLoading("Logging out..."), logoutCmd(m.services))
		} else {
			cmds = append(cmds, func() tea.Msg { return LoggedOutMsg{} })
		}
	case LoggedOutMsg:
		cmds = append(cmds, m.handleLoggedOut(msg))
	case SessionExpiredMsg:
		cmds = append(cmds, m.endSession("Your session has expired. Please login again."))
	case ProfileUpdatedMsg:
		if m.state.LoggedIn() {
			m.state.SetProfile(msg.Profile)
		}
	case FeedbackMsg:
		cmds = append(cmds, m.handleFeedback(msg.Feedback))
	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case ClearExpiredNotificationsMsg:
		m.state.ClearExpiredNotifications()
	case StartLoadingMsg:
		m.state.SetLoadingNotification(msg.Label)
	case StopLoadingMsg:
		m.state.ClearLoadingNotification()
	case ErrorMsg:
		cmds = append(cmds, NotifyError(fmt.Sprintf("Failed to %s: %v", msg.Context, msg.Error)))
	case TabSwitchMsg:
		cmds = append(cmds, m.switchTab(msg.Tab))
	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return cmds
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.updateTabSizes()
}

func (m *Model) handleServiceEventMsg(msg ServiceEventMsg) []tea.Cmd {
	var cmds []tea.Cmd
	if e, ok := msg.Event.(services.ErrorEvent); ok {
		cmds = append(cmds, NotifyError(fmt.Sprintf("[%s] %v", e.Service, e.Error)))
	}
	if m.eventChannel != nil {
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	}
	return cmds
}

func (m *Model) handleSessionRestored(msg SessionRestoredMsg) tea.Cmd {
	m.state.SetRestoring(false)

	if msg.Profile != nil {
		return m.startSession(*msg.Profile, nil, false)
	}

	cmds := []tea.Cmd{m.activateLogin()}
	switch {
	case msg.Err == nil, errors.Is(msg.Err, session.ErrNoSession):
	case errors.Is(msg.Err, session.ErrSessionExpired):
		cmds = append(cmds, NotifyWarning("Your session has expired. Please login again."))
	default:
		cmds = append(cmds, NotifyError("Unable to reach the server. Please login again."))
	}
	return tea.Batch(cmds...)
}

// startSession enters the tabbed screen for profile.
func (m *Model) startSession(profile models.UserProfile, warnings []models.Feedback, greet bool) tea.Cmd {
	m.state.SetProfile(profile)
	for _, w := range warnings {
		m.state.PushAlert(w)
	}

	var cmds []tea.Cmd
	if m.login != nil {
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(TabDeactivatedMsg{})
		cmds = append(cmds, cmd)
	}

	m.activeTab = TabAttendance
	m.updateTabSizes()
	cmds = append(cmds, m.sendToTab(m.activeTab, TabActivatedMsg{}))

	if greet && profile.FirstName() != "" {
		cmds = append(cmds, NotifySuccess("Welcome, "+profile.FirstName()))
	}
	return tea.Batch(cmds...)
}

// endSession returns to the login screen after the server rejected the
// session.
func (m *Model) endSession(message string) tea.Cmd {
	if !m.state.LoggedIn() {
		return nil
	}
	cmds := []tea.Cmd{m.leaveTabs()}
	if m.services != nil {
		cmds = append(cmds, endSessionCmd(m.services))
	}
	if message != "" {
		cmds = append(cmds, NotifyWarning(message))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleLoggedOut(msg LoggedOutMsg) tea.Cmd {
	m.state.ClearLoadingNotification()
	cmds := []tea.Cmd{m.leaveTabs()}
	if msg.Err != nil {
		cmds = append(cmds, NotifyWarning(fmt.Sprintf("Logged out, but failed to clear local data: %v", msg.Err)))
	} else {
		cmds = append(cmds, NotifyInfo("Logged out"))
	}
	return tea.Batch(cmds...)
}

// leaveTabs hides the tabs and shows the login screen.
func (m *Model) leaveTabs() tea.Cmd {
	cmd := m.sendToTab(m.activeTab, TabDeactivatedMsg{})
	m.state.ClearSession()
	m.showHelp = false
	m.activeTab = TabAttendance
	return tea.Batch(cmd, m.activateLogin())
}

func (m *Model) activateLogin() tea.Cmd {
	if m.login == nil {
		return nil
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.Update(TabActivatedMsg{})
	return cmd
}

func (m *Model) handleFeedback(fb models.Feedback) tea.Cmd {
	switch fb.Kind {
	case models.FeedbackNone:
		return nil
	case models.FeedbackAlert:
		m.state.PushAlert(fb)
		return nil
	case models.FeedbackSessionReset:
		return m.endSession(fb.Message)
	}

	t := NotificationTypeFor(fb.Level)
	duration := DefaultNotificationDuration
	if t == NotificationError {
		duration = LongNotificationDuration
	}
	return notifyCmd(t, fb.Message, duration)
}

// switchTab moves to id, telling the old tab it was hidden and the new one
// that it is visible.
func (m *Model) switchTab(id TabID) tea.Cmd {
	if id == m.activeTab || int(id) < 0 || int(id) >= len(m.tabs) || !m.state.LoggedIn() {
		return nil
	}
	deactivate := m.sendToTab(m.activeTab, TabDeactivatedMsg{})
	m.activeTab = id
	m.updateTabSizes()
	activate := m.sendToTab(id, TabActivatedMsg{})
	return tea.Batch(deactivate, activate)
}

func (m *Model) sendToTab(id TabID, msg tea.Msg) tea.Cmd {
	if int(id) >= len(m.tabs) || m.tabs[id] == nil {
		return nil
	}
	var cmd tea.Cmd
	m.tabs[id], cmd = m.tabs[id].Update(msg)
	return cmd
}

// updateScreen forwards msg to whatever is on screen.
func (m *Model) updateScreen(msg tea.Msg) tea.Cmd {
	if !m.state.LoggedIn() {
		if m.login == nil || m.state.IsRestoring() {
			return nil
		}
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return cmd
	}
	return m.sendToTab(m.activeTab, msg)
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-5)

	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
	if m.login != nil {
		m.login.SetSize(m.width, max(0, m.height-2))
	}
}

// handleKeyMsg handles global keys. handled reports that the key must not
// reach the screen below.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Cmd, bool) {
	if key.Matches(msg, m.keymap.ForceQuit) {
		return tea.Quit, true
	}

	// An alert blocks all other input until dismissed.
	if _, ok := m.state.CurrentAlert(); ok {
		if key.Matches(msg, m.keymap.Dismiss) {
			m.state.DismissAlert()
		}
		return nil, true
	}

	if m.state.IsRestoring() {
		return nil, true
	}
	if !m.state.LoggedIn() {
		return nil, false
	}

	if m.showHelp {
		if key.Matches(msg, m.keymap.Help, m.keymap.Escape) {
			m.showHelp = false
		} else if key.Matches(msg, m.keymap.Quit) {
			return tea.Quit, true
		}
		return nil, true
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true
		return nil, true

	case key.Matches(msg, m.keymap.Tab1):
		return m.switchTab(TabAttendance), true

	case key.Matches(msg, m.keymap.Tab2):
		return m.switchTab(TabProfile), true

	case key.Matches(msg, m.keymap.Tab3):
		return m.switchTab(TabHistory), true

	case key.Matches(msg, m.keymap.NextTab):
		return m.switchTab(TabID((int(m.activeTab) + 1) % len(m.tabs))), true

	case key.Matches(msg, m.keymap.PrevTab):
		return m.switchTab(TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs))), true

	case key.Matches(msg, m.keymap.Refresh):
		return m.sendToTab(m.activeTab, RefreshMsg{}), true
	}

	return nil, false
}

// View renders the application UI.
func (m *Model) View() string {
	if !m.ready {
		return m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View()))
	}

	var mainView string
	switch {
	case m.state.IsRestoring():
		mainView = components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	case !m.state.LoggedIn():
		if m.login != nil {
			mainView = "\n" + m.login.View()
		} else {
			mainView = m.renderPlaceholder("Login")
		}
	default:
		var b strings.Builder
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
		if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
			b.WriteString(m.tabs[m.activeTab].View())
		} else {
			b.WriteString(m.renderPlaceholder(m.activeTab.String()))
		}
		mainView = b.String()
	}

	if fb, ok := m.state.CurrentAlert(); ok {
		mainView = m.overlayCentered(mainView, m.renderAlert(fb))
	} else if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if notifications := m.renderNotifications(); len(notifications) > 0 {
		return m.overlayToasts(mainView, notifications)
	}

	return mainView
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")

	y := max((m.height-len(overlayLines))/2, 0)
	x := max((m.width-lipgloss.Width(overlay))/2, 0)
	overlayWidth := lipgloss.Width(overlay)

	for len(mainLines) < y+len(overlayLines) {
		mainLines = append(mainLines, "")
	}

	for i, overlayLine := range overlayLines {
		mainLine := mainLines[y+i]

		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")

		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}

		mainLines[y+i] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderNavbar() string {
	var tabs []string

	for i, name := range m.tabNames {
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
		}
	}
	if p := m.state.Profile(); p != nil && p.Name != "" {
		tabs = append(tabs, m.styles.User.Render(p.Name))
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	return m.styles.TabBar.Width(m.width).Render(tabBar)
}

func (m *Model) renderAlert(fb models.Feedback) string {
	titleStyle := m.styles.Title
	switch fb.Level {
	case models.LevelError:
		titleStyle = m.styles.Error
	case models.LevelWarning:
		titleStyle = m.styles.Warning
	case models.LevelSuccess:
		titleStyle = m.styles.Success
	}

	title := fb.Title
	if title == "" {
		title = "Notice"
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		"",
		lipgloss.NewStyle().Width(46).Render(fb.Message),
		"",
		m.styles.Subtle.Render("Press enter to dismiss"),
	)
	return m.styles.Alert.Render(body)
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	var toasts []string
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
			prefix = "[OK]"
		case NotificationError:
			style = m.styles.NotificationError
			prefix = "[ERR]"
		case NotificationWarning:
			style = m.styles.NotificationWarning
			prefix = "[WARN]"
		case NotificationInfo:
			style = m.styles.NotificationInfo
			prefix = "[INFO]"
		case NotificationLoading:
			style = m.styles.NotificationInfo
			prefix = m.spinner.View()
		}

		content := style.Render(fmt.Sprintf("%s %s", prefix, n.Message))
		toasts = append(toasts, m.styles.Toast.Render(content))
	}

	return toasts
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	if len(toasts) == 0 {
		return mainView
	}

	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := strings.Split(mainView, "\n")

	toastWidth := lipgloss.Width(toastStack)
	startX := max(m.width-toastWidth-2, 0)

	startY := 2

	for i, toastLine := range toastLines {
		lineIdx := startY + i
		if lineIdx >= len(mainLines) {
			break
		}

		mainLine := mainLines[lineIdx]
		mainLineWidth := lipgloss.Width(mainLine)

		if mainLineWidth < startX {
			padding := strings.Repeat(" ", startX-mainLineWidth)
			mainLines[lineIdx] = mainLine + padding + toastLine
		} else {
			truncated := ansi.Truncate(mainLine, startX, "")
			mainLines[lineIdx] = truncated + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	var lines []string

	lines = append(lines, m.styles.Title.Render("Keyboard Shortcuts"))
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Navigation"))
	lines = append(lines, "  1-3        Switch tabs")
	lines = append(lines, "  Tab        Next tab")
	lines = append(lines, "  Shift+Tab  Previous tab")
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Actions"))
	lines = append(lines, "  r          Refresh data")
	lines = append(lines, "  ?          Toggle help")
	lines = append(lines, "  q/Ctrl+C   Quit")
	lines = append(lines, "")

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		tabHelp := m.tabs[m.activeTab].ShortHelp()
		if len(tabHelp) > 0 {
			lines = append(lines, m.styles.Highlight.Render(fmt.Sprintf("%s Tab", m.tabNames[m.activeTab])))
			for _, binding := range tabHelp {
				lines = append(lines, fmt.Sprintf("  %-10s %s", binding.Help().Key, binding.Help().Desc))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPlaceholder(name string) string {
	content := fmt.Sprintf(
		"%s\n\n%s",
		name,
		m.styles.Subtle.Render("This screen is not available."),
	)
	return m.styles.Content.Render(content)
}

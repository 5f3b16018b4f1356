package profile

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/attendance-tui/internal/ui/styles"
	"github.com/j-veylop/attendance-tui/internal/version"
)

// View renders the profile tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderProfileCard(),
		m.renderConfigCard(),
	}
	if m.confirmLogout {
		sections = append(sections, m.renderLogoutPrompt())
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Profile")
	subtitle := styles.HelpStyle.Render("Your account and client settings")
	if m.loading {
		subtitle = styles.HelpStyle.Render("Refreshing profile...")
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 80)
}

func (m *Model) renderProfileCard() string {
	rows := []string{styles.CardTitleStyle.Render("Employee"), ""}

	p := m.state.Profile()
	if p == nil {
		rows = append(rows, styles.HelpStyle.Render("Not signed in"))
	} else {
		rows = append(rows,
			renderRow("Name", p.Name),
			renderRow("Email", p.Email),
			renderRow("Employee ID", orDash(p.EmployeeID)),
			renderRow("Department", orDash(p.Department)),
			renderRow("Role", orDash(p.Role)),
		)
		if p.PhoneNumber != "" {
			rows = append(rows, renderRow("Phone", p.PhoneNumber))
		}
	}

	rows = append(rows, "", styles.HelpStyle.Render("Press 'r' to refresh • 'L' to logout"))

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration"), ""}

	if m.config != nil {
		tz := "local"
		if m.config.DisplayTimezone != nil {
			tz = m.config.DisplayTimezone.String()
		}
		rows = append(rows,
			renderRow("Server", m.config.APIBaseURL),
			renderRow("Platform", string(m.config.Platform)),
			renderRow("Timezone", tz),
			renderRow("Device File", m.config.DevicePath),
			renderRow("Database", m.config.DatabasePath),
			renderRow("Exports", m.config.ExportDir),
		)
	} else {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	}

	rows = append(rows, "",
		renderRow("Version", version.Short()),
		renderRow("Runtime", fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)),
	)

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderLogoutPrompt() string {
	return styles.ModalContentStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.WarningTextStyle.Bold(true).Render("Logout"),
		"",
		"Are you sure you want to logout?",
		"",
		styles.HelpStyle.Render("y confirm • n/esc cancel"),
	))
}

// renderRow renders a key-value row.
func renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(14).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

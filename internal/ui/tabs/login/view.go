package login

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/attendance-tui/internal/ui/styles"
)

// View renders the login form.
func (m *Model) View() string {
	button := styles.CheckInButtonStyle.Render("Login")
	if m.submitting {
		button = styles.BusyButtonStyle.Render(m.spinner.ViewWithLabel())
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("Attendance"),
		styles.HelpStyle.Render("Sign in to continue"),
		"",
		m.renderField("Email", fieldEmail),
		"",
		m.renderField("Password", fieldPassword),
		"",
		button,
		"",
		styles.HelpStyle.Render("tab switch field • enter login • ctrl+c quit"),
	)

	card := styles.CardStyle.Width(44).Render(form)
	return styles.CenterBoth(card, m.width, m.height)
}

func (m *Model) renderField(label string, field int) string {
	border := styles.BlurredBorderStyle
	if field == m.focus {
		border = styles.FocusedBorderStyle
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.StatLabelStyle.Render(label),
		border.Width(38).Render(m.inputs[field].View()),
	)
}

package attendance

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/attendance-tui/internal/models"
	tracker "github.com/j-veylop/attendance-tui/internal/services/attendance"
	"github.com/j-veylop/attendance-tui/internal/services/gate"
	"github.com/j-veylop/attendance-tui/internal/ui/styles"
)

// View renders the attendance tab.
func (m *Model) View() string {
	snap := m.backend.Snapshot()
	loc := m.backend.DisplayLocation()

	sections := []string{
		m.renderHeader(loc),
		"",
		m.renderMode(snap),
		"",
		m.renderAction(snap),
		"",
		m.renderStats(snap.Stats),
		"",
		m.workday.View(workedDuration(snap.Stats, m.now)),
	}

	switch {
	case m.pickingMode:
		sections = append(sections, "", m.renderModePicker())
	case m.showPrompt:
		sections = append(sections, "", m.renderLocationPrompt())
	}

	content := lipgloss.JoinVertical(lipgloss.Center, sections...)
	return styles.DocStyle.Render(styles.CenterBoth(content, max(m.width-4, 0), max(m.height-2, 0)))
}

func (m *Model) renderHeader(loc *time.Location) string {
	hour := m.now.In(orLocal(loc)).Hour()
	greeting := models.Greeting(hour)
	if p := m.state.Profile(); p != nil && p.FirstName() != "" {
		greeting += ", " + p.FirstName()
	}

	return lipgloss.JoinVertical(lipgloss.Center,
		styles.GreetingStyle.Render(greeting),
		styles.HelpStyle.Render(models.FormatDate(m.now, loc)),
		styles.ClockStyle.Render(models.FormatClock(m.now, loc)),
	)
}

func (m *Model) renderMode(snap tracker.Snapshot) string {
	label := styles.StatLabelStyle.Render("Work mode ")
	if snap.ModeLocked {
		return label + styles.LockedBadgeStyle.Render(snap.WorkMode.Label()+" (locked)")
	}
	return label + styles.ModeBadgeStyle.Render(snap.WorkMode.Label())
}

func (m *Model) renderAction(snap tracker.Snapshot) string {
	busy := snap.Phase.Busy()
	style := styles.ActionStyle(snap.CheckedIn, busy)

	if busy {
		return style.Render(m.spinner.WithLabel(snap.Progress).ViewWithLabel())
	}

	label := "Check In"
	if snap.CheckedIn {
		label = "Check Out"
	}
	return style.Render(label)
}

func (m *Model) renderStats(stats models.AttendanceStats) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Check In", stats.FirstCheckIn),
		statBox("Check Out", stats.LastCheckOut),
		statBox("Total Hours", stats.TotalHours),
	)
}

func statBox(label, value string) string {
	return styles.StatBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		styles.StatLabelStyle.Render(label),
		styles.StatValueStyle.Render(value),
	))
}

func (m *Model) renderModePicker() string {
	lines := []string{styles.CardTitleStyle.Render("Select work mode"), ""}
	for i, mode := range models.WorkModes {
		if i == m.modeCursor {
			lines = append(lines, styles.SelectedListItemStyle.Render("> "+mode.Label()))
			continue
		}
		lines = append(lines, styles.ListItemStyle.Render("  "+mode.Label()))
	}
	lines = append(lines, "", styles.HelpStyle.Render("enter select • w/o shortcut • esc cancel"))
	return styles.ModalContentStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderLocationPrompt() string {
	title := "Location Required"
	message := "Please turn on Location to check in or out."
	if errors.Is(m.locationErr, gate.ErrPermissionRequired) {
		title = "Permission Required"
		message = "Location permission is needed to check in or out."
	}

	return styles.ModalContentStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.WarningTextStyle.Bold(true).Render(title),
		"",
		message,
		"",
		styles.HelpStyle.Render("enter open settings • esc dismiss"),
	))
}

// workedDuration is the span from check-in to check-out, or to now while the
// day is open.
func workedDuration(stats models.AttendanceStats, now time.Time) time.Duration {
	if stats.CheckInInstant == nil {
		return 0
	}
	end := now
	if stats.CheckOutInstant != nil {
		end = *stats.CheckOutInstant
	}
	return max(end.Sub(*stats.CheckInInstant), 0)
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

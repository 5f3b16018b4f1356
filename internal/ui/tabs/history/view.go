package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/ui/components"
	"github.com/j-veylop/attendance-tui/internal/ui/styles"
)

// weekDays is how many recent days the bar chart shows.
const weekDays = 7

// View renders the history tab.
func (m *Model) View() string {
	if m.loading && m.data == nil {
		return m.renderLoading()
	}
	if m.errorMsg != "" {
		return m.renderError()
	}
	if m.data == nil || (len(m.data.Events) == 0 && !hasHours(m.data.Totals)) {
		return m.renderEmpty()
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderHoursChart(),
		m.renderWeek(),
		m.renderEvents(),
	)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderLoading() string {
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(styles.HelpStyle.Render("Loading history..."))
}

func (m *Model) renderError() string {
	content := fmt.Sprintf("%s %s",
		styles.ErrorTextStyle.Render("Error:"),
		m.errorMsg,
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("History"),
		"",
		styles.HelpStyle.Render("No attendance recorded on this device yet."),
		styles.HelpStyle.Render("Check-ins and check-outs will appear here."),
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func (m *Model) renderHeader() string {
	title := styles.TitleStyle.Render("History")

	exportStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)
	label := "[e] Export"
	if m.exporting {
		label = "Exporting..."
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", exportStyle.Render(label))

	totals := m.data.Totals
	var worked int
	days := 0
	for _, t := range totals {
		worked += t.Minutes
		if t.Minutes > 0 {
			days++
		}
	}
	summary := fmt.Sprintf("%d events • %d days worked • %dh %02dm total",
		len(m.data.Events), days, worked/60, worked%60)
	if spark := components.RenderSparkline(hours(totals), len(totals)); spark != "" {
		summary += "  " + spark
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, styles.HelpStyle.Render(summary), "")
}

func (m *Model) renderHoursChart() string {
	cardWidth := m.cardWidth()
	rows := []string{styles.CardTitleStyle.Render("Daily Hours"), ""}

	chart := components.RenderHoursChart(m.data.Totals, max(cardWidth-12, 30), 8)
	for line := range strings.SplitSeq(chart, "\n") {
		rows = append(rows, "  "+line)
	}
	rows = append(rows, "")

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderWeek() string {
	cardWidth := m.cardWidth()
	rows := []string{styles.CardTitleStyle.Render("This Week"), ""}

	totals := m.data.Totals
	if len(totals) > weekDays {
		totals = totals[len(totals)-weekDays:]
	}
	labels := make([]string, len(totals))
	for i, t := range totals {
		labels[i] = t.Day.Format("Mon 02")
	}

	chart := components.RenderBarChart(hours(totals), labels, max(cardWidth-12, 30))
	for line := range strings.SplitSeq(chart, "\n") {
		rows = append(rows, "  "+line)
	}
	rows = append(rows, "")

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderEvents() string {
	cardWidth := m.cardWidth()
	rows := []string{styles.CardTitleStyle.Render("Recent Activity"), ""}

	if len(m.data.Events) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No events recorded"))
	} else {
		rows = append(rows, styles.TableHeaderStyle.Render(
			fmt.Sprintf("%-14s %-9s %-10s %-7s %s", "Date", "Time", "Action", "Mode", "Location")))
		loc := m.backend.DisplayLocation()
		for _, e := range m.data.Events {
			rows = append(rows, styles.TableCellStyle.Render(eventRow(e, loc)))
		}
	}

	if !m.lastRefresh.IsZero() {
		rows = append(rows, "", styles.HelpStyle.Render("Updated "+m.lastRefresh.Format("15:04:05")))
	}

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func eventRow(e models.AttendanceEvent, loc *time.Location) string {
	action := "Check in"
	if e.Action == models.ActionCheckOut {
		action = "Check out"
	}
	mode := string(e.WorkMode)
	if mode == "" {
		mode = "-"
	}
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("%-14s %-9s %-10s %-7s %.5f, %.5f",
		e.OccurredAt.In(loc).Format("Mon Jan 02"),
		models.FormatClock(e.OccurredAt, loc),
		action,
		mode,
		e.Latitude,
		e.Longitude,
	)
}

func hours(totals []models.DailyTotal) []float64 {
	out := make([]float64, len(totals))
	for i, t := range totals {
		out[i] = t.Hours()
	}
	return out
}

func hasHours(totals []models.DailyTotal) bool {
	for _, t := range totals {
		if t.Minutes > 0 {
			return true
		}
	}
	return false
}

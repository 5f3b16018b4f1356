package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/attendance-tui/internal/ui/styles"
)

// DefaultWorkday is the target length of a working day.
const DefaultWorkday = 9 * time.Hour

// Gradient endpoints; progress needs hex colors.
const (
	workdayStartColor = "#7D56F4"
	workdayEndColor   = "#04B575"
)

// WorkdayBar shows time worked against the target workday.
type WorkdayBar struct {
	progress progress.Model
	target   time.Duration
	width    int
}

// NewWorkdayBar creates a bar of the given width. A non-positive target
// falls back to DefaultWorkday.
func NewWorkdayBar(width int, target time.Duration) WorkdayBar {
	if target <= 0 {
		target = DefaultWorkday
	}
	if width < 10 {
		width = 10
	}
	p := progress.New(
		progress.WithScaledGradient(workdayStartColor, workdayEndColor),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	return WorkdayBar{progress: p, target: target, width: width}
}

// SetWidth resizes the bar.
func (w *WorkdayBar) SetWidth(width int) {
	if width < 10 {
		width = 10
	}
	w.width = width
	w.progress.Width = width
}

// Target returns the workday length.
func (w WorkdayBar) Target() time.Duration {
	return w.target
}

// Percent returns the worked fraction of the target, clamped to [0, 1].
func (w WorkdayBar) Percent(worked time.Duration) float64 {
	if worked <= 0 {
		return 0
	}
	return min(float64(worked)/float64(w.target), 1)
}

// View renders the bar followed by worked and target times.
func (w WorkdayBar) View(worked time.Duration) string {
	bar := w.progress.ViewAs(w.Percent(worked))
	label := styles.HelpStyle.Render(fmt.Sprintf(" %s / %s", formatSpan(worked), formatSpan(w.target)))
	return lipgloss.JoinHorizontal(lipgloss.Center, bar, label)
}

func formatSpan(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

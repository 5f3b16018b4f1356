// Package export writes the local attendance log to a spreadsheet.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/j-veylop/attendance-tui/internal/models"
)

// Sheet names.
const (
	SheetEvents = "Events"
	SheetDaily  = "Daily"
)

var (
	eventHeader = []any{"Date", "Time", "Action", "Work Mode", "Latitude", "Longitude", "Request ID"}
	dailyHeader = []any{"Date", "Hours", "Minutes"}
)

// FileName returns the default export file name for now.
func FileName(now time.Time) string {
	return "attendance-" + now.Format("20060102-150405") + ".xlsx"
}

// WriteXLSX writes events and daily totals to path, with times shown in loc.
func WriteXLSX(path string, events []models.AttendanceEvent, totals []models.DailyTotal, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetEvents); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetDaily); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeRows(f, SheetEvents, eventHeader, bold, len(events), func(i int) []any {
		e := events[i]
		t := e.OccurredAt.In(loc)
		return []any{
			t.Format("2006-01-02"),
			models.FormatClock(e.OccurredAt, loc),
			e.Action.Verb(),
			string(e.WorkMode),
			e.Latitude,
			e.Longitude,
			e.RequestID,
		}
	}); err != nil {
		return err
	}

	if err := writeRows(f, SheetDaily, dailyHeader, bold, len(totals), func(i int) []any {
		d := totals[i]
		return []any{
			d.Day.In(loc).Format("2006-01-02"),
			fmt.Sprintf("%02d:%02d", d.Minutes/60, d.Minutes%60),
			d.Minutes,
		}
	}); err != nil {
		return err
	}

	if err := f.SetColWidth(SheetEvents, "A", "G", 16); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []any, headerStyle, n int, row func(int) []any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

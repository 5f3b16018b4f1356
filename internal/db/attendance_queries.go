package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/attendance-tui/internal/models"
)

// InsertAttendanceEvent records a successful check-in or check-out.
func (db *DB) InsertAttendanceEvent(ctx context.Context, event *models.AttendanceEvent) error {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO attendance_events (occurred_at, action, work_mode, latitude, longitude, request_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		occurred.UTC().Format(timeLayout),
		string(event.Action),
		nullString(string(event.WorkMode)),
		event.Latitude,
		event.Longitude,
		nullString(event.RequestID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert attendance event: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// RecentAttendanceEvents returns up to limit events, newest first.
func (db *DB) RecentAttendanceEvents(ctx context.Context, limit int) ([]models.AttendanceEvent, error) {
	return db.queryEvents(ctx, `
		SELECT id, occurred_at, action, work_mode, latitude, longitude, request_id
		FROM attendance_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
}

// AttendanceEventsSince returns events at or after since, oldest first.
func (db *DB) AttendanceEventsSince(ctx context.Context, since time.Time) ([]models.AttendanceEvent, error) {
	return db.queryEvents(ctx, `
		SELECT id, occurred_at, action, work_mode, latitude, longitude, request_id
		FROM attendance_events
		WHERE occurred_at >= ?
		ORDER BY occurred_at ASC, id ASC
	`, since.UTC().Format(timeLayout))
}

func (db *DB) queryEvents(ctx context.Context, query string, args ...any) ([]models.AttendanceEvent, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []models.AttendanceEvent
	for rows.Next() {
		var (
			ev          models.AttendanceEvent
			occurred    string
			action      string
			mode, reqID sql.NullString
		)
		if err := rows.Scan(&ev.ID, &occurred, &action, &mode, &ev.Latitude, &ev.Longitude, &reqID); err != nil {
			return nil, fmt.Errorf("failed to scan attendance event: %w", err)
		}
		ts, err := time.ParseInLocation(timeLayout, occurred, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse occurred_at %q: %w", occurred, err)
		}
		ev.OccurredAt = ts
		ev.Action = models.AttendanceAction(action)
		ev.WorkMode = models.WorkMode(mode.String)
		ev.RequestID = reqID.String
		events = append(events, ev)
	}

	return events, rows.Err()
}

// DailyTotals returns one entry per local day for the last days days ending
// on now's date, oldest first. A check-out closes the shift opened by the
// check-in before it, and the shift counts on the day it started, so an
// overnight shift is credited to the day it began. A day's total runs from
// its first check-in to its last check-out. A shift still open at now counts
// up to now when it started today or yesterday.
func (db *DB) DailyTotals(ctx context.Context, days int, loc *time.Location, now time.Time) ([]models.DailyTotal, error) {
	if days <= 0 {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}

	today := startOfDay(now, loc)
	first := today.AddDate(0, 0, -(days - 1))

	events, err := db.AttendanceEventsSince(ctx, first)
	if err != nil {
		return nil, err
	}

	type span struct {
		in, out *time.Time
		open    bool
	}
	spans := make(map[string]*span, days)
	var openKey string
	for i := range events {
		at := events[i].OccurredAt
		switch events[i].Action {
		case models.ActionCheckIn:
			key := at.In(loc).Format("2006-01-02")
			if openKey == key {
				// A second check-in on the same day continues the shift.
				continue
			}
			// A check-in on a later day abandons a shift never checked out.
			openKey = key
			s, ok := spans[openKey]
			if !ok {
				s = &span{}
				spans[openKey] = s
			}
			if s.in == nil {
				s.in = &at
			}
			s.open = true
		case models.ActionCheckOut:
			if openKey == "" {
				continue
			}
			s := spans[openKey]
			s.out = &at
			s.open = false
			openKey = ""
		}
	}

	yesterday := today.AddDate(0, 0, -1).Format("2006-01-02")
	totals := make([]models.DailyTotal, 0, days)
	for d := 0; d < days; d++ {
		day := first.AddDate(0, 0, d)
		key := day.Format("2006-01-02")
		total := models.DailyTotal{Day: day}
		if s, ok := spans[key]; ok && s.in != nil {
			end := s.out
			if s.open && key == openKey && (day.Equal(today) || key == yesterday) {
				end = &now
			}
			if end != nil && end.After(*s.in) {
				total.Minutes = int(end.Sub(*s.in) / time.Minute)
			}
		}
		totals = append(totals, total)
	}

	return totals, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
)

const alarmColumns = "id, hour, minute, days, selected_date, enabled"

// ListAlarms returns every alarm ordered by time of day.
func (s *Store) ListAlarms(ctx context.Context) ([]domain.Alarm, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+alarmColumns+" FROM alarms ORDER BY hour, minute, id")
	if err != nil {
		return nil, fmt.Errorf("query alarms: %w", err)
	}
	return scanAlarms(rows)
}

// AlarmsAt returns alarms set for the given time of day.
func (s *Store) AlarmsAt(ctx context.Context, hour, minute int) ([]domain.Alarm, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+alarmColumns+" FROM alarms WHERE hour = ? AND minute = ? ORDER BY id", hour, minute)
	if err != nil {
		return nil, fmt.Errorf("query alarms at %02d:%02d: %w", hour, minute, err)
	}
	return scanAlarms(rows)
}

// GetAlarm returns domain.ErrAlarmNotFound when id does not exist.
func (s *Store) GetAlarm(ctx context.Context, id int64) (domain.Alarm, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+alarmColumns+" FROM alarms WHERE id = ?", id)
	a, err := scanAlarm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Alarm{}, domain.ErrAlarmNotFound
	}
	if err != nil {
		return domain.Alarm{}, fmt.Errorf("query alarm %d: %w", id, err)
	}
	return a, nil
}

// InsertAlarm stores a and returns its ID. A zero ID is auto-assigned; a
// non-zero ID replaces any existing row with that ID.
func (s *Store) InsertAlarm(ctx context.Context, a domain.Alarm) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO alarms (id, hour, minute, days, selected_date, enabled)
		VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?)`,
		a.ID, a.Hour, a.Minute, domain.FormatWeekdays(a.Days), formatDate(a.Date), a.Enabled)
	if err != nil {
		return 0, fmt.Errorf("insert alarm: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert alarm id: %w", err)
	}
	return id, nil
}

// UpdateAlarm overwrites the row with a.ID.
func (s *Store) UpdateAlarm(ctx context.Context, a domain.Alarm) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alarms SET hour = ?, minute = ?, days = ?, selected_date = ?, enabled = ?
		WHERE id = ?`,
		a.Hour, a.Minute, domain.FormatWeekdays(a.Days), formatDate(a.Date), a.Enabled, a.ID)
	if err != nil {
		return fmt.Errorf("update alarm %d: %w", a.ID, err)
	}
	return requireAffected(res, domain.ErrAlarmNotFound)
}

// DisableAlarm switches a off only if its stored row still matches a, so an
// edit saved after a was read is never overwritten. It reports whether the
// row changed.
func (s *Store) DisableAlarm(ctx context.Context, a domain.Alarm) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alarms SET enabled = 0
		WHERE id = ? AND hour = ? AND minute = ? AND days = ? AND selected_date IS ? AND enabled = 1`,
		a.ID, a.Hour, a.Minute, domain.FormatWeekdays(a.Days), formatDate(a.Date))
	if err != nil {
		return false, fmt.Errorf("disable alarm %d: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteAlarm removes the alarm with id.
func (s *Store) DeleteAlarm(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM alarms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete alarm %d: %w", id, err)
	}
	return requireAffected(res, domain.ErrAlarmNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlarm(r rowScanner) (domain.Alarm, error) {
	var (
		a    domain.Alarm
		days string
		date sql.NullString
	)
	if err := r.Scan(&a.ID, &a.Hour, &a.Minute, &days, &date, &a.Enabled); err != nil {
		return domain.Alarm{}, err
	}

	var err error
	if a.Days, err = domain.ParseWeekdays(days); err != nil {
		return domain.Alarm{}, fmt.Errorf("alarm %d days: %w", a.ID, err)
	}
	if date.Valid && date.String != "" {
		d, err := time.ParseInLocation(domain.DateLayout, date.String, time.Local)
		if err != nil {
			return domain.Alarm{}, fmt.Errorf("alarm %d date: %w", a.ID, err)
		}
		a.Date = &d
	}
	return a, nil
}

func scanAlarms(rows *sql.Rows) ([]domain.Alarm, error) {
	defer func() { _ = rows.Close() }()

	alarms := []domain.Alarm{}
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}
		alarms = append(alarms, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarms: %w", err)
	}
	return alarms, nil
}

func formatDate(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.Format(domain.DateLayout)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

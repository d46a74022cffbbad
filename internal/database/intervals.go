package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Viishveesh/mediconnect/internal/model"
)

// PutInterval validates, normalizes and stores an interval, returning its id.
// For external-busy intervals the write is idempotent: an interval with the
// same (doctor, start, end, source) is not duplicated and the existing id is
// returned with created=false.
func (db *DB) PutInterval(ctx context.Context, interval *model.Interval) (string, bool, error) {
	if err := interval.Validate(); err != nil {
		return "", false, err
	}
	interval.Normalize()

	now := time.Now().UTC()
	if interval.ID == "" {
		interval.ID = uuid.NewString()
	}
	if interval.CreatedAt.IsZero() {
		interval.CreatedAt = now
	}
	interval.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO intervals (id, doctor_id, start_time, end_time, kind, reason, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		interval.ID, interval.DoctorID, interval.StartTime, interval.EndTime,
		interval.Kind, interval.Reason, interval.Source, interval.CreatedAt, interval.UpdatedAt,
	)
	if err != nil {
		if interval.Kind == model.IntervalExternalBusy && isUniqueViolation(err) {
			existing, lookupErr := db.findExternalDuplicate(ctx, interval)
			if lookupErr != nil {
				return "", false, storeErr("find duplicate interval", lookupErr)
			}
			interval.ID = existing
			return existing, false, nil
		}
		return "", false, storeErr("insert interval", err)
	}
	return interval.ID, true, nil
}

func (db *DB) findExternalDuplicate(ctx context.Context, interval *model.Interval) (string, error) {
	var id string
	err := db.QueryRowContext(ctx, `
		SELECT id FROM intervals
		WHERE doctor_id = ? AND start_time = ? AND end_time = ? AND source = ? AND kind = ?`,
		interval.DoctorID, interval.StartTime, interval.EndTime, interval.Source, model.IntervalExternalBusy,
	).Scan(&id)
	return id, err
}

// FindIntervals returns intervals of the given kinds overlapping [from, to),
// ordered by start time ascending. With no kinds given, all kinds match.
func (db *DB) FindIntervals(ctx context.Context, doctorID string, from, to time.Time, kinds ...model.IntervalKind) ([]model.Interval, error) {
	query := `
		SELECT id, doctor_id, start_time, end_time, kind, reason, source, created_at, updated_at
		FROM intervals
		WHERE doctor_id = ? AND start_time < ? AND end_time > ?`
	args := []any{doctorID, to.UTC(), from.UTC()}

	if len(kinds) > 0 {
		query += " AND kind IN (?" + strings.Repeat(", ?", len(kinds)-1) + ")"
		for _, k := range kinds {
			args = append(args, k)
		}
	}
	query += " ORDER BY start_time ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("find intervals", err)
	}
	defer rows.Close()

	var intervals []model.Interval
	for rows.Next() {
		var i model.Interval
		var reason, source sql.NullString
		if err := rows.Scan(&i.ID, &i.DoctorID, &i.StartTime, &i.EndTime, &i.Kind,
			&reason, &source, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, storeErr("scan interval", err)
		}
		i.Reason = reason.String
		i.Source = model.IntervalSource(source.String)
		i.Normalize()
		intervals = append(intervals, i)
	}
	return intervals, rows.Err()
}

// ListIntervals returns all intervals of a kind for a doctor, ordered by
// start time. Used by the combined schedule view.
func (db *DB) ListIntervals(ctx context.Context, doctorID string, kind model.IntervalKind) ([]model.Interval, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, doctor_id, start_time, end_time, kind, reason, source, created_at, updated_at
		FROM intervals
		WHERE doctor_id = ? AND kind = ?
		ORDER BY start_time ASC`, doctorID, kind)
	if err != nil {
		return nil, storeErr("list intervals", err)
	}
	defer rows.Close()

	var intervals []model.Interval
	for rows.Next() {
		var i model.Interval
		var reason, source sql.NullString
		if err := rows.Scan(&i.ID, &i.DoctorID, &i.StartTime, &i.EndTime, &i.Kind,
			&reason, &source, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, storeErr("scan interval", err)
		}
		i.Reason = reason.String
		i.Source = model.IntervalSource(source.String)
		i.Normalize()
		intervals = append(intervals, i)
	}
	return intervals, rows.Err()
}

// DeleteInterval removes an interval by id. Returns false when no row matched.
func (db *DB) DeleteInterval(ctx context.Context, id string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM intervals WHERE id = ?`, id)
	if err != nil {
		return false, storeErr("delete interval", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, storeErr("delete interval", err)
	}
	return affected > 0, nil
}

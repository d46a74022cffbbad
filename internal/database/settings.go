package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Viishveesh/mediconnect/internal/model"
)

// GetScheduleSettings returns the settings for a doctor.
// Returns model.ErrNotFound when the doctor has never saved settings.
func (db *DB) GetScheduleSettings(ctx context.Context, doctorID string) (*model.ScheduleSettings, error) {
	row := db.QueryRowContext(ctx, `
		SELECT doctor_id, work_start, work_end, working_days, consultation_minutes,
		       created_at, updated_at
		FROM schedule_settings
		WHERE doctor_id = ?`, doctorID)

	var s model.ScheduleSettings
	var days string
	err := row.Scan(&s.DoctorID, &s.WorkStart, &s.WorkEnd, &days,
		&s.ConsultationDuration, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, storeErr("get schedule settings", err)
	}
	if days != "" {
		s.WorkingDays = strings.Split(days, ",")
	}
	return &s, nil
}

// UpsertScheduleSettings creates or replaces a doctor's settings.
func (db *DB) UpsertScheduleSettings(ctx context.Context, s *model.ScheduleSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO schedule_settings (doctor_id, work_start, work_end, working_days,
			consultation_minutes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doctor_id) DO UPDATE SET
			work_start = excluded.work_start,
			work_end = excluded.work_end,
			working_days = excluded.working_days,
			consultation_minutes = excluded.consultation_minutes,
			updated_at = excluded.updated_at`,
		s.DoctorID, s.WorkStart, s.WorkEnd, strings.Join(s.WorkingDays, ","),
		s.ConsultationDuration, now, now,
	)
	if err != nil {
		return storeErr("upsert schedule settings", err)
	}
	return nil
}

package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Viishveesh/mediconnect/internal/model"
)

// InsertAppointment performs the conflict-checked insert that arbitrates
// booking. The UNIQUE(doctor_id, date, time) constraint decides the winner
// under concurrency; a losing insert returns model.ErrConflict.
func (db *DB) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.BookedAt.IsZero() {
		a.BookedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO appointments (id, doctor_id, doctor_name, patient_email, patient_name,
			date, time, booked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DoctorID, a.DoctorName, a.PatientEmail, a.PatientName,
		a.Date, a.Time, a.BookedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrConflict
		}
		return storeErr("insert appointment", err)
	}
	return nil
}

// ListAppointmentsForDay returns a doctor's appointments on a date
// (YYYY-MM-DD), ordered by time.
func (db *DB) ListAppointmentsForDay(ctx context.Context, doctorID, date string) ([]model.Appointment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, doctor_id, doctor_name, patient_email, patient_name, date, time, booked_at
		FROM appointments
		WHERE doctor_id = ? AND date = ?
		ORDER BY time ASC`, doctorID, date)
	if err != nil {
		return nil, storeErr("list appointments", err)
	}
	defer rows.Close()

	var appointments []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.DoctorName, &a.PatientEmail,
			&a.PatientName, &a.Date, &a.Time, &a.BookedAt); err != nil {
			return nil, storeErr("scan appointment", err)
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

// ListAppointments returns all appointments for a doctor, ordered by date
// and time. Used by the export report.
func (db *DB) ListAppointments(ctx context.Context, doctorID string) ([]model.Appointment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, doctor_id, doctor_name, patient_email, patient_name, date, time, booked_at
		FROM appointments
		WHERE doctor_id = ?
		ORDER BY date ASC, time ASC`, doctorID)
	if err != nil {
		return nil, storeErr("list appointments", err)
	}
	defer rows.Close()

	var appointments []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.DoctorName, &a.PatientEmail,
			&a.PatientName, &a.Date, &a.Time, &a.BookedAt); err != nil {
			return nil, storeErr("scan appointment", err)
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

// BookedTimes returns the taken HH:MM values for a doctor on a date.
// Clients use this to grey out slots before resolving availability.
func (db *DB) BookedTimes(ctx context.Context, doctorID, date string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT time FROM appointments
		WHERE doctor_id = ? AND date = ?
		ORDER BY time ASC`, doctorID, date)
	if err != nil {
		return nil, storeErr("booked times", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, storeErr("scan time", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

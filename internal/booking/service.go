package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Viishveesh/mediconnect/internal/metrics"
	"github.com/Viishveesh/mediconnect/internal/model"
	"github.com/Viishveesh/mediconnect/internal/reminders"
)

// Request is a booking attempt for a single slot.
type Request struct {
	DoctorID     string `json:"doctor_id"`
	DoctorName   string `json:"doctor_name"`
	PatientEmail string `json:"patient_email"`
	PatientName  string `json:"patient_name"`
	Date         string `json:"date"` // "2026-03-02"
	Time         string `json:"time"` // "09:00"
}

// Result is the outcome of a successful booking. ConfirmationSent is false
// on degraded success, when the appointment exists but the email failed.
type Result struct {
	Appointment        model.Appointment `json:"appointment"`
	ConfirmationSent   bool              `json:"confirmation_sent"`
	RemindersScheduled int               `json:"reminders_scheduled"`
}

// Service is the booking coordinator. The store's unique constraint on
// (doctor_id, date, time) is the sole arbiter of slot ownership; this
// service never pre-checks availability before inserting.
type Service struct {
	store     AppointmentStore
	directory Directory
	notifier  Notifier
	scheduler ReminderScheduler
	offsets   []time.Duration
	logger    zerolog.Logger
}

// NewService creates the booking coordinator. With no offsets given, the
// standard 30 and 15 minute reminders apply.
func NewService(store AppointmentStore, directory Directory, notifier Notifier,
	scheduler ReminderScheduler, logger zerolog.Logger, offsets ...time.Duration) *Service {
	if len(offsets) == 0 {
		offsets = reminders.DefaultConfig().Offsets
	}
	return &Service{
		store:     store,
		directory: directory,
		notifier:  notifier,
		scheduler: scheduler,
		offsets:   offsets,
		logger:    logger.With().Str("component", "booking").Logger(),
	}
}

// Book attempts to claim a slot. On conflict the caller gets
// model.ErrConflict and must re-resolve availability rather than retry the
// same slot. On success, the confirmation email and reminders are fired
// best-effort; their failures never undo the appointment.
func (s *Service) Book(ctx context.Context, req Request) (*Result, error) {
	appt := model.Appointment{
		DoctorID:     req.DoctorID,
		DoctorName:   req.DoctorName,
		PatientEmail: strings.ToLower(strings.TrimSpace(req.PatientEmail)),
		PatientName:  req.PatientName,
		Date:         req.Date,
		Time:         req.Time,
	}

	if appt.PatientName == "" {
		user, err := s.directory.Resolve(ctx, appt.PatientEmail)
		if err == nil {
			appt.PatientName = user.FullName()
		} else if !errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("resolve patient: %w", err)
		}
	}

	if err := s.store.InsertAppointment(ctx, &appt); err != nil {
		switch {
		case errors.Is(err, model.ErrConflict):
			metrics.IncBooking(metrics.BookingConflict)
			s.logger.Info().
				Str("doctor_id", appt.DoctorID).
				Str("date", appt.Date).
				Str("time", appt.Time).
				Msg("slot already taken")
		case errors.Is(err, model.ErrValidation):
			metrics.IncBooking(metrics.BookingError)
		default:
			metrics.IncBooking(metrics.BookingError)
			s.logger.Error().Err(err).Msg("appointment insert failed")
		}
		return nil, err
	}

	result := &Result{Appointment: appt, ConfirmationSent: true}

	if err := s.notifier.SendConfirmation(ctx, appt); err != nil {
		result.ConfirmationSent = false
		metrics.IncBooking(metrics.BookingDegraded)
		s.logger.Error().Err(err).
			Str("appointment_id", appt.ID).
			Str("patient_email", appt.PatientEmail).
			Msg("confirmation email failed, appointment stands")
	} else {
		metrics.IncBooking(metrics.BookingBooked)
	}

	result.RemindersScheduled = s.scheduleReminders(appt)

	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("doctor_id", appt.DoctorID).
		Str("date", appt.Date).
		Str("time", appt.Time).
		Bool("confirmation_sent", result.ConfirmationSent).
		Int("reminders", result.RemindersScheduled).
		Msg("appointment booked")

	return result, nil
}

// scheduleReminders registers the pre-appointment reminders. An appointment
// whose date or time fails to parse gets none; this is unreachable after a
// successful validated insert.
func (s *Service) scheduleReminders(appt model.Appointment) int {
	start, err := appt.StartTime()
	if err != nil {
		s.logger.Error().Err(err).Str("appointment_id", appt.ID).Msg("unparseable appointment start")
		return 0
	}
	return s.scheduler.Schedule(reminders.Payload{
		AppointmentID: appt.ID,
		DoctorName:    appt.DoctorName,
		PatientEmail:  appt.PatientEmail,
		PatientName:   appt.PatientName,
		Date:          appt.Date,
		Time:          appt.Time,
		StartTime:     start,
	}, s.offsets...)
}

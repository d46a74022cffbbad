package booking

import (
	"context"
	"time"

	"github.com/Viishveesh/mediconnect/internal/model"
	"github.com/Viishveesh/mediconnect/internal/reminders"
)

// AppointmentStore performs the conflict-checked appointment insert.
type AppointmentStore interface {
	InsertAppointment(ctx context.Context, a *model.Appointment) error
}

// Directory resolves users by email.
type Directory interface {
	Resolve(ctx context.Context, email string) (*model.User, error)
}

// Notifier sends the booking confirmation. Best-effort: a failure degrades
// the result but never rolls back the appointment.
type Notifier interface {
	SendConfirmation(ctx context.Context, a model.Appointment) error
}

// ReminderScheduler registers the pre-appointment reminders.
type ReminderScheduler interface {
	Schedule(payload reminders.Payload, offsets ...time.Duration) int
}

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Viishveesh/mediconnect/internal/metrics"
	"github.com/Viishveesh/mediconnect/internal/model"
	"github.com/Viishveesh/mediconnect/internal/reminders"
)

// Notifier composes and sends the patient-facing emails: the booking
// confirmation with its calendar invite, and the pre-appointment reminders.
type Notifier struct {
	sender   EmailSender
	duration time.Duration // consultation length used in the invite
	logger   zerolog.Logger
	now      func() time.Time
}

// NewNotifier creates a notifier sending through the given sender.
func NewNotifier(sender EmailSender, consultationDuration time.Duration, logger zerolog.Logger) *Notifier {
	if consultationDuration <= 0 {
		consultationDuration = 30 * time.Minute
	}
	return &Notifier{
		sender:   sender,
		duration: consultationDuration,
		logger:   logger.With().Str("component", "notify").Logger(),
		now:      time.Now,
	}
}

// SendConfirmation emails the booking confirmation with an attached
// calendar invite.
func (n *Notifier) SendConfirmation(ctx context.Context, a model.Appointment) error {
	start, err := a.StartTime()
	if err != nil {
		return fmt.Errorf("appointment start: %w", err)
	}

	body := fmt.Sprintf(`Hi %s,

Your appointment with %s is confirmed.

Date: %s
Time: %s
Location: MediConnect Website

An invitation has been attached to add this to your calendar.

Thank you,
MediConnect Team
`, a.PatientName, a.DoctorName, a.Date, a.Time)

	invite := BuildInvite(a.ID, a.DoctorName, start, n.duration, n.now())

	return n.sender.Send(ctx, Message{
		To:      a.PatientEmail,
		ToName:  a.PatientName,
		Subject: "Appointment Confirmation - MediConnect",
		Body:    body,
		Attachment: &Attachment{
			Filename: "appointment.ics",
			MIMEType: "text/calendar",
			Content:  []byte(invite),
		},
	})
}

// SendReminder emails a pre-appointment reminder. Implements
// reminders.Notifier.
func (n *Notifier) SendReminder(ctx context.Context, p reminders.Payload, kind reminders.Kind) error {
	label := "30-minute"
	if kind == reminders.Kind15m {
		label = "15-minute"
	}

	body := fmt.Sprintf(`Dear %s,

This is a %s reminder for your appointment with %s.

Date: %s
Time: %s
Location: MediConnect Website

Please ensure you are available for your appointment. You can join the
video session through your MediConnect dashboard.

Thank you,
MediConnect Team
`, p.PatientName, label, p.DoctorName, p.Date, p.Time)

	err := n.sender.Send(ctx, Message{
		To:      p.PatientEmail,
		ToName:  p.PatientName,
		Subject: fmt.Sprintf("MediConnect: %s reminder for your upcoming appointment", label),
		Body:    body,
	})
	if err != nil {
		metrics.IncReminderFired(string(kind), "failed")
		return err
	}
	metrics.IncReminderFired(string(kind), "sent")
	return nil
}

package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Viishveesh/mediconnect/internal/model"
	"github.com/Viishveesh/mediconnect/internal/reminders"
)

type capturingSender struct {
	messages []Message
}

func (c *capturingSender) Send(ctx context.Context, msg Message) error {
	c.messages = append(c.messages, msg)
	return nil
}

func testAppointment() model.Appointment {
	return model.Appointment{
		ID:           "apt-1",
		DoctorID:     "doc-1",
		DoctorName:   "Dr. Grey",
		PatientEmail: "alice@example.com",
		PatientName:  "Alice",
		Date:         "2026-03-02",
		Time:         "09:00",
	}
}

func TestSendConfirmationAttachesInvite(t *testing.T) {
	sender := &capturingSender{}
	n := NewNotifier(sender, 30*time.Minute, zerolog.Nop())
	n.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, n.SendConfirmation(context.Background(), testAppointment()))
	require.Len(t, sender.messages, 1)

	msg := sender.messages[0]
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Contains(t, msg.Subject, "Confirmation")
	assert.Contains(t, msg.Body, "Dr. Grey")
	assert.Contains(t, msg.Body, "2026-03-02")

	require.NotNil(t, msg.Attachment)
	assert.Equal(t, "appointment.ics", msg.Attachment.Filename)
	assert.Equal(t, "text/calendar", msg.Attachment.MIMEType)

	ics := string(msg.Attachment.Content)
	assert.Contains(t, ics, "UID:apt-1@mediconnect")
	assert.Contains(t, ics, "DTSTART:20260302T090000Z")
	assert.Contains(t, ics, "DTEND:20260302T093000Z")
	assert.Contains(t, ics, "DTSTAMP:20260301T120000Z")
	assert.Contains(t, ics, "SUMMARY:Appointment with Dr. Grey")
}

func TestSendConfirmationBadStart(t *testing.T) {
	sender := &capturingSender{}
	n := NewNotifier(sender, 30*time.Minute, zerolog.Nop())

	appt := testAppointment()
	appt.Time = "9am"
	assert.Error(t, n.SendConfirmation(context.Background(), appt))
	assert.Empty(t, sender.messages)
}

func TestSendReminderKinds(t *testing.T) {
	sender := &capturingSender{}
	n := NewNotifier(sender, 30*time.Minute, zerolog.Nop())

	payload := reminders.Payload{
		AppointmentID: "apt-1",
		DoctorName:    "Dr. Grey",
		PatientEmail:  "alice@example.com",
		PatientName:   "Alice",
		Date:          "2026-03-02",
		Time:          "09:00",
	}

	require.NoError(t, n.SendReminder(context.Background(), payload, reminders.Kind30m))
	require.NoError(t, n.SendReminder(context.Background(), payload, reminders.Kind15m))
	require.Len(t, sender.messages, 2)

	assert.Contains(t, sender.messages[0].Subject, "30-minute")
	assert.Contains(t, sender.messages[0].Body, "30-minute reminder")
	assert.Contains(t, sender.messages[1].Subject, "15-minute")
	assert.Contains(t, sender.messages[1].Body, "Dr. Grey")
}

func TestBuildInviteEscaping(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ics := BuildInvite("apt-1", "Grey; Sloan, MD", start, 30*time.Minute, start)

	assert.Contains(t, ics, "SUMMARY:Appointment with Grey\\; Sloan\\, MD")
	assert.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(ics, "END:VCALENDAR\r\n"))
}

func TestStubSender(t *testing.T) {
	stub := NewStubSender(zerolog.Nop())
	assert.NoError(t, stub.Send(context.Background(), Message{To: "x@example.com"}))
}

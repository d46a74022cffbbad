package notify

import (
	"fmt"
	"strings"
	"time"
)

const icsTimeLayout = "20060102T150405Z"

// BuildInvite renders an iCalendar invite for an appointment so the patient
// can add it to their own calendar. All timestamps are UTC.
func BuildInvite(uid, doctorName string, start time.Time, duration time.Duration, stamp time.Time) string {
	end := start.Add(duration)

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//MediConnect//EN\r\n")
	b.WriteString("METHOD:REQUEST\r\n")
	b.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(&b, "UID:%s@mediconnect\r\n", uid)
	fmt.Fprintf(&b, "DTSTAMP:%s\r\n", stamp.UTC().Format(icsTimeLayout))
	fmt.Fprintf(&b, "DTSTART:%s\r\n", start.UTC().Format(icsTimeLayout))
	fmt.Fprintf(&b, "DTEND:%s\r\n", end.UTC().Format(icsTimeLayout))
	fmt.Fprintf(&b, "SUMMARY:Appointment with %s\r\n", escapeICS(doctorName))
	fmt.Fprintf(&b, "DESCRIPTION:Your appointment with %s.\r\n", escapeICS(doctorName))
	b.WriteString("LOCATION:Online / Clinic\r\n")
	b.WriteString("STATUS:CONFIRMED\r\n")
	b.WriteString("END:VEVENT\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

// escapeICS escapes the characters RFC 5545 treats as special in text
// values.
func escapeICS(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
	)
	return r.Replace(s)
}

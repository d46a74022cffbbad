package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleSettings holds a doctor's working pattern. At most one settings
// document exists per doctor; writes replace the previous one.
type ScheduleSettings struct {
	DoctorID             string    `json:"doctor_id"`
	WorkStart            string    `json:"work_start"` // "09:00"
	WorkEnd              string    `json:"work_end"`   // "17:00"
	WorkingDays          []string  `json:"working_days"`
	ConsultationDuration int       `json:"consultation_duration"` // minutes
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

var weekdayNames = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

// Validate checks the settings invariants.
func (s *ScheduleSettings) Validate() error {
	if s.DoctorID == "" {
		return fmt.Errorf("%w: doctor id is required", ErrValidation)
	}
	start, err := ParseClock(s.WorkStart)
	if err != nil {
		return fmt.Errorf("%w: invalid work start %q", ErrValidation, s.WorkStart)
	}
	end, err := ParseClock(s.WorkEnd)
	if err != nil {
		return fmt.Errorf("%w: invalid work end %q", ErrValidation, s.WorkEnd)
	}
	if start >= end {
		return fmt.Errorf("%w: work start must be before work end", ErrValidation)
	}
	if s.ConsultationDuration <= 0 {
		return fmt.Errorf("%w: consultation duration must be positive", ErrValidation)
	}
	if len(s.WorkingDays) == 0 {
		return fmt.Errorf("%w: at least one working day is required", ErrValidation)
	}
	for _, day := range s.WorkingDays {
		if _, ok := weekdayNames[day]; !ok {
			return fmt.Errorf("%w: unknown weekday %q", ErrValidation, day)
		}
	}
	return nil
}

// IsWorkingDay reports whether the given weekday is part of the schedule.
func (s *ScheduleSettings) IsWorkingDay(day time.Weekday) bool {
	for _, name := range s.WorkingDays {
		if weekdayNames[name] == day {
			return true
		}
	}
	return false
}

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %s", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour: %s", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute: %s", value)
	}
	return hour*60 + minute, nil
}

package model

import (
	"fmt"
	"time"
)

// IntervalKind classifies a stored time range.
type IntervalKind string

const (
	IntervalAvailable    IntervalKind = "available"
	IntervalBusy         IntervalKind = "busy"
	IntervalExternalBusy IntervalKind = "external-busy"
)

// IntervalSource identifies where an external-busy interval came from.
type IntervalSource string

const (
	SourceManual  IntervalSource = "manual"
	SourceGoogle  IntervalSource = "google"
	SourceOutlook IntervalSource = "outlook"
)

// Interval is a typed time range on a doctor's calendar.
// All timestamps are stored in UTC.
type Interval struct {
	ID        string         `json:"id"`
	DoctorID  string         `json:"doctor_id"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Kind      IntervalKind   `json:"kind"`
	Reason    string         `json:"reason,omitempty"`
	Source    IntervalSource `json:"source,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Validate checks the interval invariants before persistence.
func (i *Interval) Validate() error {
	if i.DoctorID == "" {
		return fmt.Errorf("%w: doctor id is required", ErrValidation)
	}
	switch i.Kind {
	case IntervalAvailable, IntervalBusy, IntervalExternalBusy:
	default:
		return fmt.Errorf("%w: unknown interval kind %q", ErrValidation, i.Kind)
	}
	if !i.StartTime.Before(i.EndTime) {
		return fmt.Errorf("%w: start time must be before end time", ErrValidation)
	}
	if i.Kind == IntervalExternalBusy && i.Source == "" {
		return fmt.Errorf("%w: external-busy interval requires a source", ErrValidation)
	}
	return nil
}

// Normalize converts both endpoints to UTC.
func (i *Interval) Normalize() {
	i.StartTime = i.StartTime.UTC()
	i.EndTime = i.EndTime.UTC()
}

// Overlaps reports whether the interval overlaps [start, end) using the
// half-open overlap test.
func (i *Interval) Overlaps(start, end time.Time) bool {
	return i.StartTime.Before(end) && start.Before(i.EndTime)
}

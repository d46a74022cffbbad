package slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Viishveesh/mediconnect/internal/model"
)

// Slot is a bookable consultation window.
type Slot struct {
	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// SlotView is the wire representation of a slot.
type SlotView struct {
	Date  string `json:"date"`  // "2026-03-02"
	Start string `json:"start"` // "09:00"
	End   string `json:"end"`   // "09:30"
}

// ScheduleStore supplies the inputs the resolver combines: the doctor's
// working-hours settings, blocking intervals and already-taken times.
type ScheduleStore interface {
	GetScheduleSettings(ctx context.Context, doctorID string) (*model.ScheduleSettings, error)
	FindIntervals(ctx context.Context, doctorID string, from, to time.Time, kinds ...model.IntervalKind) ([]model.Interval, error)
	BookedTimes(ctx context.Context, doctorID, date string) ([]string, error)
}

// Resolver computes free consultation slots for a doctor on a date.
type Resolver struct {
	store ScheduleStore
}

// NewResolver creates a new availability resolver.
func NewResolver(store ScheduleStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the free slots for a doctor on a date (YYYY-MM-DD).
// A doctor without saved settings, or whose settings exclude the weekday,
// has no slots. A slot is free only when no busy or external-busy interval
// overlaps it and no appointment holds its start time.
func (r *Resolver) Resolve(ctx context.Context, doctorID, date string) ([]Slot, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", model.ErrValidation, date)
	}

	settings, err := r.store.GetScheduleSettings(ctx, doctorID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.IsWorkingDay(day.Weekday()) {
		return nil, nil
	}

	startMin, err := model.ParseClock(settings.WorkStart)
	if err != nil {
		return nil, fmt.Errorf("work start: %w", err)
	}
	endMin, err := model.ParseClock(settings.WorkEnd)
	if err != nil {
		return nil, fmt.Errorf("work end: %w", err)
	}
	if startMin >= endMin {
		return nil, nil
	}

	workStart := day.Add(time.Duration(startMin) * time.Minute)
	workEnd := day.Add(time.Duration(endMin) * time.Minute)

	blocking, err := r.store.FindIntervals(ctx, doctorID, workStart, workEnd,
		model.IntervalBusy, model.IntervalExternalBusy)
	if err != nil {
		return nil, fmt.Errorf("load intervals: %w", err)
	}

	bookedTimes, err := r.store.BookedTimes(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load booked times: %w", err)
	}
	booked := make(map[string]bool, len(bookedTimes))
	for _, t := range bookedTimes {
		booked[t] = true
	}

	duration := time.Duration(settings.ConsultationDuration) * time.Minute

	// The grid never emits a partial trailing slot: the last slot ends
	// exactly at or before the end of the working window.
	var free []Slot
	for cursor := workStart; !cursor.Add(duration).After(workEnd); cursor = cursor.Add(duration) {
		slotStart := cursor
		slotEnd := cursor.Add(duration)

		if booked[slotStart.Format("15:04")] {
			continue
		}
		if blockedBy(blocking, slotStart, slotEnd) {
			continue
		}

		free = append(free, Slot{Start: slotStart, End: slotEnd})
	}
	return free, nil
}

// blockedBy reports whether any interval overlaps [start, end).
// Intervals touching only at an edge do not block.
func blockedBy(intervals []model.Interval, start, end time.Time) bool {
	for _, iv := range intervals {
		if iv.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// ToView converts slots to their wire representation.
func ToView(slots []Slot) []SlotView {
	views := make([]SlotView, len(slots))
	for i, s := range slots {
		views[i] = SlotView{
			Date:  s.Start.Format("2006-01-02"),
			Start: s.Start.Format("15:04"),
			End:   s.End.Format("15:04"),
		}
	}
	return views
}

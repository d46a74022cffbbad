package reminders

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Kind identifies which of the two reminders for an appointment a job is.
type Kind string

const (
	Kind30m Kind = "30m"
	Kind15m Kind = "15m"
)

// Offset returns how long before the appointment the reminder fires.
func (k Kind) Offset() time.Duration {
	if k == Kind15m {
		return 15 * time.Minute
	}
	return 30 * time.Minute
}

// Payload carries everything a notifier needs to compose a reminder.
type Payload struct {
	AppointmentID string
	DoctorName    string
	PatientEmail  string
	PatientName   string
	Date          string // "2026-03-02"
	Time          string // "09:00"
	StartTime     time.Time
}

// Notifier delivers a due reminder.
type Notifier interface {
	SendReminder(ctx context.Context, payload Payload, kind Kind) error
}

type jobKey struct {
	appointmentID string
	kind          Kind
}

type job struct {
	key       jobKey
	payload   Payload
	fireAt    time.Time
	heapIndex int
	cancelled bool
}

// jobQueue is a min-heap ordered by fire time.
type jobQueue []*job

func (q jobQueue) Len() int            { return len(q) }
func (q jobQueue) Less(i, j int) bool  { return q[i].fireAt.Before(q[j].fireAt) }
func (q jobQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].heapIndex = i; q[j].heapIndex = j }
func (q *jobQueue) Push(x any)         { j := x.(*job); j.heapIndex = len(*q); *q = append(*q, j) }
func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return j
}

// Config holds scheduler settings.
type Config struct {
	// Offsets before the appointment start at which reminders fire.
	Offsets []time.Duration
}

// DefaultConfig returns the standard 30 and 15 minute offsets.
func DefaultConfig() Config {
	return Config{Offsets: []time.Duration{30 * time.Minute, 15 * time.Minute}}
}

// Scheduler keeps pending reminder jobs in memory and fires them at their
// due time. Jobs do not survive a restart. Scheduling again for the same
// appointment replaces its pending jobs.
type Scheduler struct {
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	queue jobQueue
	index map[jobKey]*job

	// lifecycle serializes Start and Stop against each other so a Start
	// racing a Stop can never attach to a channel mid-swap.
	lifecycle sync.Mutex
	running   bool
	stopCh    chan struct{}
	wakeCh    chan struct{}
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler delivering through the given notifier.
func NewScheduler(notifier Notifier, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		notifier: notifier,
		logger:   logger.With().Str("component", "reminders").Logger(),
		now:      time.Now,
		index:    make(map[jobKey]*job),
		stopCh:   make(chan struct{}),
		wakeCh:   make(chan struct{}, 1),
	}
}

// SetNow overrides the clock. Tests use this with a fixed time.
func (s *Scheduler) SetNow(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Schedule registers reminders for an appointment at the given offsets
// before its start time. Offsets already in the past are skipped. Any
// pending jobs for the same appointment are replaced. Returns the number
// of jobs scheduled.
func (s *Scheduler) Schedule(payload Payload, offsets ...time.Duration) int {
	if len(offsets) == 0 {
		offsets = DefaultConfig().Offsets
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(payload.AppointmentID)

	now := s.now()
	scheduled := 0
	for _, offset := range offsets {
		kind := kindForOffset(offset)
		// Two offsets mapping to the same kind would collide in the index
		// and orphan the first job. The first configured offset wins.
		if _, ok := s.index[jobKey{appointmentID: payload.AppointmentID, kind: kind}]; ok {
			s.logger.Warn().
				Str("appointment_id", payload.AppointmentID).
				Str("kind", string(kind)).
				Dur("offset", offset).
				Msg("duplicate reminder kind, skipping offset")
			continue
		}
		fireAt := payload.StartTime.Add(-offset)
		if !fireAt.After(now) {
			s.logger.Debug().
				Str("appointment_id", payload.AppointmentID).
				Str("kind", string(kind)).
				Time("fire_at", fireAt).
				Msg("reminder is past due, skipping")
			continue
		}
		j := &job{
			key:     jobKey{appointmentID: payload.AppointmentID, kind: kind},
			payload: payload,
			fireAt:  fireAt,
		}
		heap.Push(&s.queue, j)
		s.index[j.key] = j
		scheduled++
	}

	if scheduled > 0 {
		s.logger.Info().
			Str("appointment_id", payload.AppointmentID).
			Int("jobs", scheduled).
			Msg("reminders scheduled")
		s.wake()
	}
	return scheduled
}

// Cancel drops all pending jobs for an appointment. Returns how many were
// pending.
func (s *Scheduler) Cancel(appointmentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(appointmentID)
}

// CancelAll drops every pending job.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for _, j := range s.index {
		j.cancelled = true
		dropped++
	}
	s.index = make(map[jobKey]*job)
	if dropped > 0 {
		s.logger.Info().Int("jobs", dropped).Msg("all reminders cancelled")
	}
	return dropped
}

// Pending returns the number of jobs waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// cancelLocked marks an appointment's jobs cancelled. They stay in the heap
// and are discarded when they surface.
func (s *Scheduler) cancelLocked(appointmentID string) int {
	dropped := 0
	for _, kind := range []Kind{Kind30m, Kind15m} {
		key := jobKey{appointmentID: appointmentID, kind: kind}
		if j, ok := s.index[key]; ok {
			j.cancelled = true
			delete(s.index, key)
			dropped++
		}
	}
	return dropped
}

// Start begins the delivery loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.running {
		return
	}
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx, s.stopCh)

	s.logger.Info().Msg("reminder scheduler started")
}

// Stop stops the delivery loop and waits for it to exit. Pending jobs are
// kept, so a later Start resumes them.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.running {
		return
	}
	s.running = false

	close(s.stopCh)
	s.wg.Wait()
	s.stopCh = make(chan struct{})

	s.logger.Info().Msg("reminder scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		wait := s.untilNext()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-s.wakeCh:
			// New job may be due sooner, recompute the wait.
		case <-timer.C:
			s.FireDue(ctx)
		}
	}
}

// untilNext returns how long until the earliest pending job, skipping
// cancelled entries on the way.
func (s *Scheduler) untilNext() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.cancelled {
			heap.Pop(&s.queue)
			continue
		}
		wait := next.fireAt.Sub(s.now())
		if wait < 0 {
			return 0
		}
		return wait
	}
	return time.Hour
}

// FireDue delivers every job whose fire time has passed. Each job fires at
// most once; a failed delivery is logged and the job is still consumed.
// Returns the number of jobs fired.
func (s *Scheduler) FireDue(ctx context.Context) int {
	fired := 0
	for {
		j := s.popDue()
		if j == nil {
			return fired
		}
		fired++
		if err := s.notifier.SendReminder(ctx, j.payload, j.key.kind); err != nil {
			s.logger.Error().Err(err).
				Str("appointment_id", j.key.appointmentID).
				Str("kind", string(j.key.kind)).
				Msg("reminder delivery failed")
			continue
		}
		s.logger.Info().
			Str("appointment_id", j.key.appointmentID).
			Str("kind", string(j.key.kind)).
			Msg("reminder sent")
	}
}

// popDue removes and returns the earliest due job, or nil when none is due.
func (s *Scheduler) popDue() *job {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.cancelled {
			heap.Pop(&s.queue)
			continue
		}
		if next.fireAt.After(s.now()) {
			return nil
		}
		heap.Pop(&s.queue)
		delete(s.index, next.key)
		return next
	}
	return nil
}

func (s *Scheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func kindForOffset(offset time.Duration) Kind {
	if offset <= 15*time.Minute {
		return Kind15m
	}
	return Kind30m
}

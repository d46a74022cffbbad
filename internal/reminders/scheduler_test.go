package reminders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentReminder struct {
	payload Payload
	kind    Kind
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentReminder
	err  error
}

func (n *recordingNotifier) SendReminder(ctx context.Context, payload Payload, kind Kind) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentReminder{payload: payload, kind: kind})
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestScheduler(t *testing.T) (*Scheduler, *recordingNotifier, *fakeClock) {
	t.Helper()
	notifier := &recordingNotifier{}
	clock := &fakeClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	s := NewScheduler(notifier, zerolog.Nop())
	s.SetNow(clock.Now)
	return s, notifier, clock
}

func payloadAt(id string, start time.Time) Payload {
	return Payload{
		AppointmentID: id,
		DoctorName:    "Dr. Grey",
		PatientEmail:  "patient@example.com",
		PatientName:   "Patient",
		Date:          start.Format("2006-01-02"),
		Time:          start.Format("15:04"),
		StartTime:     start,
	}
}

func TestScheduleBothOffsets(t *testing.T) {
	s, _, clock := newTestScheduler(t)

	// 40 minutes out: both the 30 and 15 minute reminders are still ahead.
	n := s.Schedule(payloadAt("apt-1", clock.Now().Add(40*time.Minute)))
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, s.Pending())
}

func TestScheduleSkipsPastDueOffset(t *testing.T) {
	s, _, clock := newTestScheduler(t)

	// 20 minutes out: the 30-minute mark already passed.
	n := s.Schedule(payloadAt("apt-1", clock.Now().Add(20*time.Minute)))
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Pending())
}

func TestScheduleAllPastDue(t *testing.T) {
	s, _, clock := newTestScheduler(t)

	// 10 minutes out: both marks already passed, nothing fires later.
	n := s.Schedule(payloadAt("apt-1", clock.Now().Add(10*time.Minute)))
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, s.Pending())
}

func TestScheduleDuplicateKindOffsets(t *testing.T) {
	s, notifier, clock := newTestScheduler(t)

	// 45m and 60m both map to the 30-minute kind; only the first offset
	// sticks, and the job stays cancellable.
	n := s.Schedule(payloadAt("apt-1", clock.Now().Add(2*time.Hour)), 45*time.Minute, 60*time.Minute)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Pending())

	assert.Equal(t, 1, s.Cancel("apt-1"))
	assert.Equal(t, 0, s.Pending())

	clock.Advance(3 * time.Hour)
	assert.Equal(t, 0, s.FireDue(context.Background()))
	assert.Equal(t, 0, notifier.count())
}

func TestScheduleReplacesPendingJobs(t *testing.T) {
	s, notifier, clock := newTestScheduler(t)

	first := clock.Now().Add(40 * time.Minute)
	s.Schedule(payloadAt("apt-1", first))

	// Reschedule two hours later: old jobs must not fire.
	second := clock.Now().Add(2 * time.Hour)
	s.Schedule(payloadAt("apt-1", second))
	assert.Equal(t, 2, s.Pending())

	// Past the original fire times, nothing is due yet.
	clock.Advance(time.Hour)
	assert.Equal(t, 0, s.FireDue(context.Background()))

	clock.Advance(time.Hour)
	assert.Equal(t, 2, s.FireDue(context.Background()))
	require.Equal(t, 2, notifier.count())
	for _, sent := range notifier.sent {
		assert.Equal(t, second, sent.payload.StartTime)
	}
}

func TestCancel(t *testing.T) {
	s, _, clock := newTestScheduler(t)

	s.Schedule(payloadAt("apt-1", clock.Now().Add(40*time.Minute)))
	s.Schedule(payloadAt("apt-2", clock.Now().Add(40*time.Minute)))

	dropped := s.Cancel("apt-1")
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 2, s.Pending())

	clock.Advance(time.Hour)
	fired := s.FireDue(context.Background())
	assert.Equal(t, 2, fired, "only apt-2 jobs fire")
}

func TestCancelAll(t *testing.T) {
	s, notifier, clock := newTestScheduler(t)

	s.Schedule(payloadAt("apt-1", clock.Now().Add(40*time.Minute)))
	s.Schedule(payloadAt("apt-2", clock.Now().Add(50*time.Minute)))

	dropped := s.CancelAll()
	assert.Equal(t, 4, dropped)
	assert.Equal(t, 0, s.Pending())

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 0, s.FireDue(context.Background()))
	assert.Equal(t, 0, notifier.count())
}

func TestFireDueOrderAndKinds(t *testing.T) {
	s, notifier, clock := newTestScheduler(t)

	start := clock.Now().Add(40 * time.Minute)
	s.Schedule(payloadAt("apt-1", start))

	// Only the 30-minute reminder is due at T+10.
	clock.Advance(10 * time.Minute)
	assert.Equal(t, 1, s.FireDue(context.Background()))
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, Kind30m, notifier.sent[0].kind)

	// The 15-minute reminder at T+25.
	clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, s.FireDue(context.Background()))
	require.Equal(t, 2, notifier.count())
	assert.Equal(t, Kind15m, notifier.sent[1].kind)
}

func TestFireDueAtMostOnce(t *testing.T) {
	s, notifier, clock := newTestScheduler(t)

	s.Schedule(payloadAt("apt-1", clock.Now().Add(40*time.Minute)))
	clock.Advance(time.Hour)

	assert.Equal(t, 2, s.FireDue(context.Background()))
	assert.Equal(t, 0, s.FireDue(context.Background()), "jobs fire once")
	assert.Equal(t, 2, notifier.count())
}

func TestFailedDeliveryIsConsumed(t *testing.T) {
	s, notifier, clock := newTestScheduler(t)
	notifier.err = errors.New("smtp down")

	s.Schedule(payloadAt("apt-1", clock.Now().Add(40*time.Minute)))
	clock.Advance(time.Hour)

	assert.Equal(t, 2, s.FireDue(context.Background()))
	assert.Equal(t, 0, s.Pending(), "failed jobs do not linger")
	assert.Equal(t, 0, s.FireDue(context.Background()))
}

func TestStartStopIdempotent(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx) // no-op
	s.Stop()
	s.Stop() // no-op

	// Restart keeps working.
	s.Start(ctx)
	s.Stop()
}

func TestConcurrentStartStop(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Start(ctx)
		}()
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()

	// Whatever the interleaving left behind, the scheduler must still
	// stop cleanly and restart.
	s.Stop()
	s.Start(ctx)
	s.Stop()
}

func TestLoopDeliversDueJob(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewScheduler(notifier, zerolog.Nop())

	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	// Fires almost immediately: start 30m+20ms from now.
	s.Schedule(payloadAt("apt-1", time.Now().Add(30*time.Minute+20*time.Millisecond)))

	deadline := time.After(2 * time.Second)
	for notifier.count() < 1 {
		select {
		case <-deadline:
			t.Fatal("reminder was not delivered by the loop")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

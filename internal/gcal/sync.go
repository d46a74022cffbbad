package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Viishveesh/mediconnect/internal/metrics"
	"github.com/Viishveesh/mediconnect/internal/model"
)

// Event is a remote calendar event. End is zero when the remote event had
// no parseable end time; such events are skipped, not errored.
type Event struct {
	Summary string
	Start   time.Time
	End     time.Time
}

// EventsSource fetches a doctor's remote events from a point in time
// forward. Implemented by the Google client; faked in tests.
type EventsSource interface {
	Events(ctx context.Context, cred *model.GoogleCredential, from time.Time) ([]Event, error)
}

// TokenRefresher exchanges a refresh token for a fresh credential.
type TokenRefresher interface {
	Refresh(ctx context.Context, cred *model.GoogleCredential) (*model.GoogleCredential, error)
}

// CredentialStore persists per-doctor OAuth credentials.
type CredentialStore interface {
	GetCredential(ctx context.Context, doctorID string) (*model.GoogleCredential, error)
	SaveCredential(ctx context.Context, cred *model.GoogleCredential) error
}

// IntervalStore writes the external-busy intervals. PutInterval dedup makes
// re-syncing idempotent.
type IntervalStore interface {
	PutInterval(ctx context.Context, interval *model.Interval) (string, bool, error)
}

// Result summarizes one sync run.
type Result struct {
	Added   int `json:"added"`
	Deduped int `json:"deduped"`
	Skipped int `json:"skipped"`
}

// Syncer pulls a doctor's external calendar into the interval store.
// Concurrent syncs for the same doctor are serialized through the locker;
// the interval dedup is the idempotency backstop either way.
type Syncer struct {
	credentials CredentialStore
	intervals   IntervalStore
	source      EventsSource
	refresher   TokenRefresher
	locker      Locker
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSyncer creates a calendar syncer.
func NewSyncer(credentials CredentialStore, intervals IntervalStore, source EventsSource,
	refresher TokenRefresher, locker Locker, logger zerolog.Logger) *Syncer {
	return &Syncer{
		credentials: credentials,
		intervals:   intervals,
		source:      source,
		refresher:   refresher,
		locker:      locker,
		logger:      logger.With().Str("component", "gcal").Logger(),
		now:         time.Now,
	}
}

// SetNow overrides the clock for tests.
func (s *Syncer) SetNow(now func() time.Time) { s.now = now }

// Sync fetches events from now forward and stores them as external-busy
// intervals. A doctor without a stored credential gets model.ErrNotLinked.
// An expired or rejected token is refreshed and persisted once; a failure
// after that surfaces as model.ErrSyncFailed.
func (s *Syncer) Sync(ctx context.Context, doctorID string) (*Result, error) {
	release, err := s.locker.Acquire(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	defer release()

	cred, err := s.credentials.GetCredential(ctx, doctorID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrNotLinked
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}

	now := s.now()
	if cred.Expired(now) {
		if cred, err = s.refreshAndPersist(ctx, cred); err != nil {
			return nil, err
		}
	}

	events, err := s.source.Events(ctx, cred, now)
	if err != nil {
		// One transparent refresh and retry, then give up.
		s.logger.Warn().Err(err).Str("doctor_id", doctorID).Msg("event fetch failed, refreshing token")
		if cred, err = s.refreshAndPersist(ctx, cred); err != nil {
			return nil, err
		}
		if events, err = s.source.Events(ctx, cred, now); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrSyncFailed, err)
		}
	}

	result := &Result{}
	for _, ev := range events {
		if ev.End.IsZero() || !ev.Start.Before(ev.End) {
			result.Skipped++
			metrics.IncSyncInterval(metrics.SyncSkipped)
			continue
		}
		_, created, err := s.intervals.PutInterval(ctx, &model.Interval{
			DoctorID:  doctorID,
			StartTime: ev.Start,
			EndTime:   ev.End,
			Kind:      model.IntervalExternalBusy,
			Source:    model.SourceGoogle,
			Reason:    ev.Summary,
		})
		if err != nil {
			return nil, fmt.Errorf("store interval: %w", err)
		}
		if created {
			result.Added++
			metrics.IncSyncInterval(metrics.SyncAdded)
		} else {
			result.Deduped++
			metrics.IncSyncInterval(metrics.SyncDeduped)
		}
	}

	s.logger.Info().
		Str("doctor_id", doctorID).
		Int("added", result.Added).
		Int("deduped", result.Deduped).
		Int("skipped", result.Skipped).
		Msg("calendar synced")
	return result, nil
}

func (s *Syncer) refreshAndPersist(ctx context.Context, cred *model.GoogleCredential) (*model.GoogleCredential, error) {
	fresh, err := s.refresher.Refresh(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("%w: token refresh: %v", model.ErrSyncFailed, err)
	}
	if err := s.credentials.SaveCredential(ctx, fresh); err != nil {
		return nil, fmt.Errorf("persist refreshed credential: %w", err)
	}
	return fresh, nil
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Viishveesh/mediconnect/internal/booking"
	"github.com/Viishveesh/mediconnect/internal/gcal"
	"github.com/Viishveesh/mediconnect/internal/model"
	"github.com/Viishveesh/mediconnect/internal/slots"
)

// AvailabilityResolver computes free slots for a doctor and date.
type AvailabilityResolver interface {
	Resolve(ctx context.Context, doctorID, date string) ([]slots.Slot, error)
}

// Booker attempts to claim a slot.
type Booker interface {
	Book(ctx context.Context, req booking.Request) (*booking.Result, error)
}

// CalendarSyncer pulls external events into the interval store.
type CalendarSyncer interface {
	Sync(ctx context.Context, doctorID string) (*gcal.Result, error)
}

// ReportWriter renders the appointment export.
type ReportWriter interface {
	WriteReport(ctx context.Context, doctorID string, w io.Writer) error
}

// UserDirectory registers and resolves directory users.
type UserDirectory interface {
	Register(ctx context.Context, u *model.User) error
	Resolve(ctx context.Context, email string) (*model.User, error)
}

// Store is the persistence surface the handlers touch directly.
type Store interface {
	Ping(ctx context.Context) error
	PutInterval(ctx context.Context, interval *model.Interval) (string, bool, error)
	DeleteInterval(ctx context.Context, id string) (bool, error)
	ListIntervals(ctx context.Context, doctorID string, kind model.IntervalKind) ([]model.Interval, error)
	GetScheduleSettings(ctx context.Context, doctorID string) (*model.ScheduleSettings, error)
	UpsertScheduleSettings(ctx context.Context, s *model.ScheduleSettings) error
	ListAppointmentsForDay(ctx context.Context, doctorID, date string) ([]model.Appointment, error)
	BookedTimes(ctx context.Context, doctorID, date string) ([]string, error)
}

// HTTPServer serves the scheduling API.
type HTTPServer struct {
	store     Store
	resolver  AvailabilityResolver
	booker    Booker
	syncer    CalendarSyncer
	exporter  ReportWriter
	directory UserDirectory
	logger    zerolog.Logger
	server    *http.Server
}

// NewHTTPServer wires the handlers to their collaborators.
func NewHTTPServer(store Store, resolver AvailabilityResolver, booker Booker,
	syncer CalendarSyncer, exporter ReportWriter, directory UserDirectory,
	logger zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		store:     store,
		resolver:  resolver,
		booker:    booker,
		syncer:    syncer,
		exporter:  exporter,
		directory: directory,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes builds the request mux.
func (s *HTTPServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/availability", s.handleAvailability)
	mux.HandleFunc("/api/book", s.handleBook)
	mux.HandleFunc("/api/appointments/", s.handleAppointments)
	mux.HandleFunc("/api/doctor/availability", s.handleCreateAvailability)
	mux.HandleFunc("/api/doctor/availability/", s.handleDeleteInterval)
	mux.HandleFunc("/api/doctor/busy", s.handleCreateBusy)
	mux.HandleFunc("/api/doctor/busy/", s.handleDeleteInterval)
	mux.HandleFunc("/api/doctor/schedule", s.handleSchedule)
	mux.HandleFunc("/api/doctor/schedule-settings", s.handleScheduleSettings)
	mux.HandleFunc("/api/doctor/appointments/export", s.handleExport)
	mux.HandleFunc("/api/google/sync", s.handleSync)
	mux.HandleFunc("/api/users", s.handleUsers)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	return mux
}

// Start begins serving on the given port.
func (s *HTTPServer) Start(port int) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info().Int("port", port).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, "slot already booked; re-resolve availability and pick another")
	case errors.Is(err, model.ErrNotLinked):
		writeError(w, http.StatusBadRequest, "no linked calendar account for this doctor")
	case errors.Is(err, model.ErrSyncFailed):
		writeError(w, http.StatusBadGateway, "calendar sync failed; retry later")
	case errors.Is(err, model.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable; retry later")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

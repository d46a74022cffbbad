package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Viishveesh/mediconnect/internal/booking"
	"github.com/Viishveesh/mediconnect/internal/metrics"
	"github.com/Viishveesh/mediconnect/internal/model"
	"github.com/Viishveesh/mediconnect/internal/slots"
)

// MaxAvailabilityDaysRange caps the availability query window.
const MaxAvailabilityDaysRange = 31

// handleAvailability resolves free slots over a date range.
// GET /api/availability?doctor_id=...&from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	doctorID := q.Get("doctor_id")
	if doctorID == "" {
		writeError(w, http.StatusBadRequest, "doctor_id is required")
		return
	}

	fromStr := q.Get("from")
	toStr := q.Get("to")
	if fromStr == "" {
		writeError(w, http.StatusBadRequest, "from is required")
		return
	}
	if toStr == "" {
		toStr = fromStr
	}

	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
		return
	}
	if from.After(to) {
		writeError(w, http.StatusBadRequest, "from must be before or equal to to")
		return
	}
	if int(to.Sub(from).Hours()/24) > MaxAvailabilityDaysRange {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("date range exceeds maximum of %d days", MaxAvailabilityDaysRange))
		return
	}

	var views []slots.SlotView
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		daySlots, err := s.resolver.Resolve(r.Context(), doctorID, d.Format("2006-01-02"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		views = append(views, slots.ToView(daySlots)...)
	}
	if views == nil {
		views = []slots.SlotView{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id": doctorID,
		"slots":     views,
	})
}

// handleBook claims a slot.
// POST /api/book
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req booking.Request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.booker.Book(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleAppointments lists a doctor's appointments on a date.
// GET /api/appointments/{doctorID}/{date}
func (s *HTTPServer) handleAppointments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointments")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/appointments/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, http.StatusBadRequest, "invalid path; expected /api/appointments/{doctor_id}/{date}")
		return
	}
	doctorID, date := parts[0], parts[1]
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	appointments, err := s.store.ListAppointmentsForDay(r.Context(), doctorID, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	times, err := s.store.BookedTimes(r.Context(), doctorID, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if appointments == nil {
		appointments = []model.Appointment{}
	}
	if times == nil {
		times = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id":    doctorID,
		"date":         date,
		"appointments": appointments,
		"booked_times": times,
	})
}

// intervalRequest is the body for creating availability and busy windows.
type intervalRequest struct {
	DoctorID string    `json:"doctor_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Reason   string    `json:"reason,omitempty"`
}

func (s *HTTPServer) createInterval(w http.ResponseWriter, r *http.Request, kind model.IntervalKind) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req intervalRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	interval := &model.Interval{
		DoctorID:  req.DoctorID,
		StartTime: req.Start,
		EndTime:   req.End,
		Kind:      kind,
		Reason:    req.Reason,
		Source:    model.SourceManual,
	}
	if _, _, err := s.store.PutInterval(r.Context(), interval); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, interval)
}

// handleCreateAvailability declares a window the doctor is open for booking.
// POST /api/doctor/availability
func (s *HTTPServer) handleCreateAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("doctor_availability")
	s.createInterval(w, r, model.IntervalAvailable)
}

// handleCreateBusy blocks out a window.
// POST /api/doctor/busy
func (s *HTTPServer) handleCreateBusy(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("doctor_busy")
	s.createInterval(w, r, model.IntervalBusy)
}

// handleDeleteInterval removes an interval by id.
// DELETE /api/doctor/availability/{id} and /api/doctor/busy/{id}
func (s *HTTPServer) handleDeleteInterval(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("doctor_interval_delete")
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use DELETE")
		return
	}

	id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	if id == "" {
		writeError(w, http.StatusBadRequest, "interval id is required")
		return
	}

	deleted, err := s.store.DeleteInterval(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "interval not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// handleSchedule returns the combined declared availability and busy
// windows, external ones included.
// GET /api/doctor/schedule?doctor_id=...
func (s *HTTPServer) handleSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("doctor_schedule")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	doctorID := r.URL.Query().Get("doctor_id")
	if doctorID == "" {
		writeError(w, http.StatusBadRequest, "doctor_id is required")
		return
	}

	available, err := s.store.ListIntervals(r.Context(), doctorID, model.IntervalAvailable)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	busy, err := s.store.ListIntervals(r.Context(), doctorID, model.IntervalBusy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	external, err := s.store.ListIntervals(r.Context(), doctorID, model.IntervalExternalBusy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	busy = append(busy, external...)

	if available == nil {
		available = []model.Interval{}
	}
	if busy == nil {
		busy = []model.Interval{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id":    doctorID,
		"availability": available,
		"busy":         busy,
	})
}

// handleScheduleSettings reads or upserts a doctor's settings.
// GET /api/doctor/schedule-settings?doctor_id=...
// POST /api/doctor/schedule-settings
func (s *HTTPServer) handleScheduleSettings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_settings")
	switch r.Method {
	case http.MethodGet:
		doctorID := r.URL.Query().Get("doctor_id")
		if doctorID == "" {
			writeError(w, http.StatusBadRequest, "doctor_id is required")
			return
		}
		settings, err := s.store.GetScheduleSettings(r.Context(), doctorID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				writeError(w, http.StatusNotFound, "no schedule settings for this doctor")
				return
			}
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)

	case http.MethodPost:
		var settings model.ScheduleSettings
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&settings); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.store.UpsertScheduleSettings(r.Context(), &settings); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSync pulls the doctor's external calendar.
// POST /api/google/sync?doctor_id=...
func (s *HTTPServer) handleSync(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("google_sync")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	doctorID := r.URL.Query().Get("doctor_id")
	if doctorID == "" {
		writeError(w, http.StatusBadRequest, "doctor_id is required")
		return
	}

	result, err := s.syncer.Sync(r.Context(), doctorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleExport streams the appointment report.
// GET /api/doctor/appointments/export?doctor_id=...
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointments_export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	doctorID := r.URL.Query().Get("doctor_id")
	if doctorID == "" {
		writeError(w, http.StatusBadRequest, "doctor_id is required")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="appointments.xlsx"`)
	if err := s.exporter.WriteReport(r.Context(), doctorID, w); err != nil {
		s.logger.Error().Err(err).Str("doctor_id", doctorID).Msg("report export failed")
	}
}

// handleUsers registers a directory user.
// POST /api/users
func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("users")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var user model.User
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&user); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.directory.Register(r.Context(), &user); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Viishveesh/mediconnect/internal/booking"
	"github.com/Viishveesh/mediconnect/internal/database"
	"github.com/Viishveesh/mediconnect/internal/directory"
	"github.com/Viishveesh/mediconnect/internal/gcal"
	"github.com/Viishveesh/mediconnect/internal/model"
	"github.com/Viishveesh/mediconnect/internal/reminders"
	"github.com/Viishveesh/mediconnect/internal/slots"
)

type noopNotifier struct{}

func (noopNotifier) SendConfirmation(ctx context.Context, a model.Appointment) error { return nil }

type noopReminders struct{}

func (noopReminders) Schedule(payload reminders.Payload, offsets ...time.Duration) int { return 0 }

type fakeSyncer struct {
	result *gcal.Result
	err    error
}

func (f *fakeSyncer) Sync(ctx context.Context, doctorID string) (*gcal.Result, error) {
	return f.result, f.err
}

type fakeExporter struct{}

func (fakeExporter) WriteReport(ctx context.Context, doctorID string, w io.Writer) error {
	_, err := w.Write([]byte("xlsx"))
	return err
}

type testEnv struct {
	db     *database.DB
	syncer *fakeSyncer
	mux    *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir := directory.New(db)
	resolver := slots.NewResolver(db)
	booker := booking.NewService(db, dir, noopNotifier{}, noopReminders{}, zerolog.Nop())
	syncer := &fakeSyncer{result: &gcal.Result{Added: 2, Skipped: 1}}

	server := NewHTTPServer(db, resolver, booker, syncer, fakeExporter{}, dir, zerolog.Nop())
	return &testEnv{db: db, syncer: syncer, mux: server.Routes()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedSettings(t *testing.T) {
	t.Helper()
	require.NoError(t, e.db.UpsertScheduleSettings(context.Background(), &model.ScheduleSettings{
		DoctorID:             "doc-1",
		WorkStart:            "09:00",
		WorkEnd:              "10:00",
		WorkingDays:          []string{"Monday"},
		ConsultationDuration: 30,
	}))
}

// 2026-03-02 is a Monday.
const monday = "2026-03-02"

func TestAvailabilityEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedSettings(t)

	rec := env.do(t, http.MethodGet, "/api/availability?doctor_id=doc-1&from="+monday, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		DoctorID string           `json:"doctor_id"`
		Slots    []slots.SlotView `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, 2)
	assert.Equal(t, "09:00", resp.Slots[0].Start)
	assert.Equal(t, "09:30", resp.Slots[1].Start)
}

func TestAvailabilityValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		path string
	}{
		{"missing doctor", "/api/availability?from=" + monday},
		{"missing from", "/api/availability?doctor_id=doc-1"},
		{"bad date", "/api/availability?doctor_id=doc-1&from=03/02/2026"},
		{"inverted range", "/api/availability?doctor_id=doc-1&from=2026-03-10&to=2026-03-02"},
		{"huge range", "/api/availability?doctor_id=doc-1&from=2026-03-02&to=2026-06-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestBookAndRebookConflict(t *testing.T) {
	env := newTestEnv(t)
	env.seedSettings(t)

	req := booking.Request{
		DoctorID:     "doc-1",
		DoctorName:   "Dr. Grey",
		PatientEmail: "alice@example.com",
		PatientName:  "Alice",
		Date:         monday,
		Time:         "09:00",
	}

	rec := env.do(t, http.MethodPost, "/api/book", req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result booking.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.Appointment.ID)

	// Same slot again: conflict.
	req.PatientEmail = "bob@example.com"
	rec = env.do(t, http.MethodPost, "/api/book", req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Availability shrinks to the remaining slot.
	rec = env.do(t, http.MethodGet, "/api/availability?doctor_id=doc-1&from="+monday, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Slots []slots.SlotView `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, "09:30", resp.Slots[0].Start)
}

func TestAppointmentsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedSettings(t)

	env.do(t, http.MethodPost, "/api/book", booking.Request{
		DoctorID: "doc-1", DoctorName: "Dr. Grey",
		PatientEmail: "alice@example.com", PatientName: "Alice",
		Date: monday, Time: "09:00",
	})

	rec := env.do(t, http.MethodGet, "/api/appointments/doc-1/"+monday, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Appointments []model.Appointment `json:"appointments"`
		BookedTimes  []string            `json:"booked_times"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Appointments, 1)
	assert.Equal(t, []string{"09:00"}, resp.BookedTimes)

	rec = env.do(t, http.MethodGet, "/api/appointments/doc-1/bad-date", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBusyIntervalLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seedSettings(t)

	body := map[string]any{
		"doctor_id": "doc-1",
		"start":     monday + "T09:00:00Z",
		"end":       monday + "T09:30:00Z",
		"reason":    "lunch",
	}
	rec := env.do(t, http.MethodPost, "/api/doctor/busy", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.Interval
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, model.IntervalBusy, created.Kind)

	// The busy window hides the first slot.
	rec = env.do(t, http.MethodGet, "/api/availability?doctor_id=doc-1&from="+monday, nil)
	var resp struct {
		Slots []slots.SlotView `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, 1)

	rec = env.do(t, http.MethodDelete, "/api/doctor/busy/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/doctor/busy/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntervalValidationRejected(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"doctor_id": "doc-1",
		"start":     monday + "T10:00:00Z",
		"end":       monday + "T09:00:00Z", // inverted
	}
	rec := env.do(t, http.MethodPost, "/api/doctor/availability", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleEndpointCombinesKinds(t *testing.T) {
	env := newTestEnv(t)

	put := func(kind model.IntervalKind, source model.IntervalSource, hour int) {
		start := time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC)
		_, _, err := env.db.PutInterval(context.Background(), &model.Interval{
			DoctorID:  "doc-1",
			StartTime: start,
			EndTime:   start.Add(time.Hour),
			Kind:      kind,
			Source:    source,
		})
		require.NoError(t, err)
	}
	put(model.IntervalAvailable, "", 9)
	put(model.IntervalBusy, "", 12)
	put(model.IntervalExternalBusy, model.SourceGoogle, 14)

	rec := env.do(t, http.MethodGet, "/api/doctor/schedule?doctor_id=doc-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Availability []model.Interval `json:"availability"`
		Busy         []model.Interval `json:"busy"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Availability, 1)
	assert.Len(t, resp.Busy, 2, "manual and external busy combined")
}

func TestScheduleSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/doctor/schedule-settings?doctor_id=doc-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/doctor/schedule-settings", model.ScheduleSettings{
		DoctorID:             "doc-1",
		WorkStart:            "09:00",
		WorkEnd:              "17:00",
		WorkingDays:          []string{"Monday", "Friday"},
		ConsultationDuration: 30,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/doctor/schedule-settings?doctor_id=doc-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var settings model.ScheduleSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, "17:00", settings.WorkEnd)
}

func TestSyncEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/google/sync?doctor_id=doc-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result gcal.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 1, result.Skipped)

	env.syncer.err = model.ErrNotLinked
	rec = env.do(t, http.MethodPost, "/api/google/sync?doctor_id=doc-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.syncer.err = model.ErrSyncFailed
	rec = env.do(t, http.MethodPost, "/api/google/sync?doctor_id=doc-1", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/doctor/appointments/export?doctor_id=doc-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "appointments.xlsx")
	assert.Equal(t, "xlsx", rec.Body.String())
}

func TestUsersEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users", model.User{
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Nguyen",
		Role:      model.RolePatient,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users", model.User{
		Email: "x@example.com",
		Role:  "admin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/book", "/api/google/sync", "/api/users"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
	rec := env.do(t, http.MethodPost, "/api/availability?doctor_id=doc-1&from="+monday, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBookRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/book",
		strings.NewReader(`{"doctor_id":"doc-1","unexpected":true}`))
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

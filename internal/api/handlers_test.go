package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/booking/internal/booking"
	"github.com/clinicdesk/booking/internal/catalog"
)

type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, slot string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	server  *httptest.Server
	repo    *booking.MemoryRepository
	patient uuid.UUID
	date    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	// Every weekday is a working day so the test date can just be next week.
	raw := make(map[time.Weekday][]string)
	for d := time.Sunday; d <= time.Saturday; d++ {
		raw[d] = []string{"09:00", "10:00"}
	}
	tpl, err := catalog.NewWeeklyTemplate(raw)
	require.NoError(t, err)

	online := catalog.ModalityOnline
	source := catalog.NewStaticSource([]catalog.Service{
		{ID: "consultation", Name: "Clinical consultation", Duration: 50 * time.Minute, PriceCents: 18000},
		{ID: "anamnesis", Name: "Intake interview", Duration: 30 * time.Minute, FixedModality: &online},
	}, tpl)

	repo := booking.NewMemoryRepository()
	patient := uuid.New()
	repo.AddPatient(booking.Patient{ID: patient, Name: "Ana Souza"})

	svc := booking.NewService(repo, passLocker{}, source, time.UTC, zerolog.Nop())

	router := NewRouter(RouterConfig{
		Service: svc,
		Logger:  zerolog.Nop(),
		Env:     "test",
		Version: "test",
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &fixture{
		server:  server,
		repo:    repo,
		patient: patient,
		date:    time.Now().UTC().AddDate(0, 0, 7).Format(booking.DateLayout),
	}
}

func (f *fixture) post(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (f *fixture) book(t *testing.T, patientID uuid.UUID, slot string) (*http.Response, AppointmentResponse) {
	t.Helper()
	resp, body := f.post(t, "/appointments", BookAppointmentRequest{
		PatientID: patientID.String(),
		Date:      f.date,
		Time:      slot,
		ServiceID: "consultation",
		Modality:  ptr("online"),
	})
	var appt AppointmentResponse
	if resp.StatusCode == http.StatusCreated {
		require.NoError(t, json.Unmarshal(body, &appt))
	}
	return resp, appt
}

func ptr[T any](v T) *T { return &v }

func TestGetSlots(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/slots?date="+f.date)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var slots AvailableSlotsResponse
	require.NoError(t, json.Unmarshal(body, &slots))
	assert.Equal(t, []string{"09:00", "10:00"}, slots.Times)
}

func TestGetSlotsBadDate(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.get(t, "/slots?date=07-09-2026")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookAndConflict(t *testing.T) {
	f := newFixture(t)

	resp, appt := f.book(t, f.patient, "10:00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "scheduled", appt.Status)
	assert.Equal(t, "10:00", appt.Time)

	// The slot disappears from availability.
	resp, body := f.get(t, "/slots?date="+f.date)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var slots AvailableSlotsResponse
	require.NoError(t, json.Unmarshal(body, &slots))
	assert.Equal(t, []string{"09:00"}, slots.Times)

	// Another patient hitting the same slot gets a conflict.
	other := uuid.New()
	f.repo.AddPatient(booking.Patient{ID: other, Name: "Bruno Lima"})

	resp, _ = f.book(t, other, "10:00")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBookValidationErrors(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		req    BookAppointmentRequest
		status int
		code   string
	}{
		{
			name:   "malformed body date",
			req:    BookAppointmentRequest{PatientID: f.patient.String(), Date: "soon", Time: "09:00", ServiceID: "consultation", Modality: ptr("online")},
			status: http.StatusBadRequest,
			code:   "invalid_date",
		},
		{
			name:   "past date",
			req:    BookAppointmentRequest{PatientID: f.patient.String(), Date: "2020-01-06", Time: "09:00", ServiceID: "consultation", Modality: ptr("online")},
			status: http.StatusUnprocessableEntity,
			code:   "past_date",
		},
		{
			name:   "unconfigured time",
			req:    BookAppointmentRequest{PatientID: f.patient.String(), Date: f.date, Time: "13:00", ServiceID: "consultation", Modality: ptr("online")},
			status: http.StatusUnprocessableEntity,
			code:   "slot_not_bookable",
		},
		{
			name:   "unknown service",
			req:    BookAppointmentRequest{PatientID: f.patient.String(), Date: f.date, Time: "09:00", ServiceID: "reiki", Modality: ptr("online")},
			status: http.StatusUnprocessableEntity,
			code:   "unknown_service",
		},
		{
			name:   "missing modality",
			req:    BookAppointmentRequest{PatientID: f.patient.String(), Date: f.date, Time: "09:00", ServiceID: "consultation"},
			status: http.StatusUnprocessableEntity,
			code:   "modality_required",
		},
		{
			name:   "bad modality value",
			req:    BookAppointmentRequest{PatientID: f.patient.String(), Date: f.date, Time: "09:00", ServiceID: "consultation", Modality: ptr("telepathy")},
			status: http.StatusBadRequest,
			code:   "invalid_modality",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.post(t, "/appointments", tc.req)
			assert.Equal(t, tc.status, resp.StatusCode)

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Equal(t, tc.code, errResp.Error)
		})
	}
}

func TestLifecycleEndpoints(t *testing.T) {
	f := newFixture(t)

	resp, appt := f.book(t, f.patient, "09:00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	base := fmt.Sprintf("/appointments/%s", appt.ID)

	resp, body := f.post(t, base+"/confirm", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var confirmed AppointmentResponse
	require.NoError(t, json.Unmarshal(body, &confirmed))
	assert.Equal(t, "confirmed", confirmed.Status)

	// Confirming twice conflicts.
	resp, _ = f.post(t, base+"/confirm", struct{}{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = f.post(t, base+"/complete", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var completed AppointmentResponse
	require.NoError(t, json.Unmarshal(body, &completed))
	assert.Equal(t, "completed", completed.Status)
}

func TestCancelOwnershipOverHTTP(t *testing.T) {
	f := newFixture(t)

	resp, appt := f.book(t, f.patient, "09:00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	base := fmt.Sprintf("/appointments/%s", appt.ID)
	stranger := uuid.New()

	resp, _ = f.post(t, base+"/cancel", CancelAppointmentRequest{RequesterID: stranger.String()})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := f.post(t, base+"/cancel", CancelAppointmentRequest{RequesterID: f.patient.String()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var canceled AppointmentResponse
	require.NoError(t, json.Unmarshal(body, &canceled))
	assert.Equal(t, "canceled", canceled.Status)

	// The slot is bookable again.
	resp, _ = f.book(t, f.patient, "09:00")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestGetAppointmentNotFound(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.get(t, "/appointments/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/booking/internal/catalog"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PgRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPgRepository(mock)
}

func TestInsertAppointmentMapsUniqueViolation(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_live_slot_key"})

	_, err := repo.InsertAppointment(context.Background(), Appointment{
		PatientID: uuid.New(),
		ServiceID: "consultation",
		Date:      time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
		Time:      "09:00",
		Status:    StatusScheduled,
	})

	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAppointmentStatusCASMiss(t *testing.T) {
	mock, repo := newMockRepo(t)

	// No row matches (id, from-status): the conditional update returns nothing.
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.UpdateAppointmentStatus(context.Background(), uuid.New(), StatusScheduled, StatusConfirmed)

	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLiveHolds(t *testing.T) {
	mock, repo := newMockRepo(t)

	rows := pgxmock.NewRows([]string{"slot_time", "status"}).
		AddRow("09:00", "scheduled").
		AddRow("10:30", "confirmed")

	mock.ExpectQuery("SELECT slot_time, status").
		WithArgs("2026-09-07").
		WillReturnRows(rows)

	holds, err := repo.ListLiveHolds(context.Background(), time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []SlotHold{
		{Time: "09:00", Status: StatusScheduled},
		{Time: "10:30", Status: StatusConfirmed},
	}, holds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAppointmentByIDScan(t *testing.T) {
	mock, repo := newMockRepo(t)

	id := uuid.New()
	patientID := uuid.New()
	now := time.Now()
	modality := "online"

	rows := pgxmock.NewRows([]string{
		"id", "patient_id", "service_id", "appt_date", "slot_time", "modality", "status", "notes", "created_at", "updated_at",
	}).AddRow(
		id, patientID, "consultation", time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC), "09:00", &modality, "scheduled", (*string)(nil), now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(id).
		WillReturnRows(rows)

	appt, err := repo.GetAppointmentByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, appt.ID)
	assert.Equal(t, patientID, appt.PatientID)
	assert.Equal(t, catalog.TimeOfDay("09:00"), appt.Time)
	assert.Equal(t, StatusScheduled, appt.Status)
	require.NotNil(t, appt.Modality)
	assert.Equal(t, catalog.ModalityOnline, *appt.Modality)
	assert.Nil(t, appt.Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAppointmentByIDNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetAppointmentByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

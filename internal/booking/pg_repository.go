package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicdesk/booking/internal/catalog"
)

// DB is the slice of pgxpool.Pool the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a        Appointment
		slotTime string
		modality *string
		status   string
	)

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ServiceID,
		&a.Date,
		&slotTime,
		&modality,
		&status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	t, err := catalog.ParseTimeOfDay(slotTime)
	if err != nil {
		return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
	}
	a.Time = t
	a.Status = Status(status)
	if modality != nil {
		m := catalog.Modality(*modality)
		a.Modality = &m
	}
	return &a, nil
}

const appointmentColumns = `id, patient_id, service_id, appt_date, slot_time, modality, status, notes, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListLiveHolds(ctx context.Context, date time.Time) ([]SlotHold, error) {
	rows, err := r.db.Query(ctx, `
		SELECT slot_time, status
		FROM appointments
		WHERE appt_date = $1::date
		  AND status IN ('scheduled', 'confirmed')
		ORDER BY slot_time
	`, FormatDate(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []SlotHold
	for rows.Next() {
		var (
			slotTime string
			status   string
		)
		if err := rows.Scan(&slotTime, &status); err != nil {
			return nil, err
		}
		t, err := catalog.ParseTimeOfDay(slotTime)
		if err != nil {
			return nil, err
		}
		holds = append(holds, SlotHold{Time: t, Status: Status(status)})
	}
	return holds, rows.Err()
}

func (r *PgRepository) GetLiveAppointmentForSlot(ctx context.Context, date time.Time, t catalog.TimeOfDay) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appt_date = $1::date
		  AND slot_time = $2
		  AND status IN ('scheduled', 'confirmed')
	`, FormatDate(date), string(t))
	return scanAppointment(row)
}

func (r *PgRepository) InsertAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	id := uuid.New()

	var modality *string
	if appt.Modality != nil {
		m := string(*appt.Modality)
		modality = &m
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, service_id, appt_date, slot_time, modality, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, appt.PatientID, appt.ServiceID, FormatDate(appt.Date), string(appt.Time), modality, string(appt.Status), appt.Notes)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, string(to), string(from))

	return scanAppointment(row)
}

func (r *PgRepository) FindLapsedScheduled(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'scheduled'
		  AND appt_date + slot_time::time < $1::timestamp
	`, before.Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

// isUniqueViolation matches the partial unique index on live (date, time).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

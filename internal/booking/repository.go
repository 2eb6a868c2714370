package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/booking/internal/catalog"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the booking service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Availability reads. Both filter to live statuses (scheduled, confirmed).
	ListLiveHolds(ctx context.Context, date time.Time) ([]SlotHold, error)
	GetLiveAppointmentForSlot(ctx context.Context, date time.Time, t catalog.TimeOfDay) (*Appointment, error)

	// Creation and status transitions. InsertAppointment must report
	// ErrSlotTaken when a live appointment already holds the slot; it is the
	// final arbiter of the no-double-booking invariant.
	InsertAppointment(ctx context.Context, appt Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// UpdateAppointmentStatus is a compare-and-set: the row moves from -> to
	// only if it is still in from, otherwise ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// Sweep worker: scheduled appointments whose slot wall time is already
	// behind the given clinic-local instant.
	FindLapsedScheduled(ctx context.Context, before time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/booking/internal/catalog"
)

// Status is the appointment lifecycle state. One canonical name per state;
// presentation layers translate for display.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Live reports whether the appointment currently holds its slot.
func (s Status) Live() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCanceled},
	StatusConfirmed: {StatusCompleted, StatusCanceled},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is the persisted booking record. Rows are never deleted;
// cancellation is a status change so history survives.
type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	ServiceID string
	Date      time.Time // calendar day, midnight UTC
	Time      catalog.TimeOfDay
	Modality  *catalog.Modality
	Status    Status
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotHold is the projection of a live appointment the availability resolver
// works with.
type SlotHold struct {
	Time   catalog.TimeOfDay
	Status Status
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO calendar date into a timezone-naive day value
// (midnight UTC). The clinic's location only matters when comparing against
// "now", which the service does explicitly.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

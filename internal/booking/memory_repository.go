package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/booking/internal/catalog"
)

// MemoryRepository is an in-process Repository used in tests and local
// development. It enforces the same live (date, time) uniqueness the Postgres
// partial index does, atomically under its mutex, so conflict behavior under
// concurrency matches production.
type MemoryRepository struct {
	mu           sync.Mutex
	patients     map[uuid.UUID]Patient
	appointments map[uuid.UUID]Appointment
	events       []EventLog

	// FailReads makes every read return the given error, for testing
	// fail-closed paths.
	FailReads error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:     make(map[uuid.UUID]Patient),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

func (r *MemoryRepository) AddPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
}

func (r *MemoryRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailReads != nil {
		return nil, r.FailReads
	}
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) ListLiveHolds(ctx context.Context, date time.Time) ([]SlotHold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailReads != nil {
		return nil, r.FailReads
	}
	var holds []SlotHold
	day := FormatDate(date)
	for _, a := range r.appointments {
		if a.Status.Live() && FormatDate(a.Date) == day {
			holds = append(holds, SlotHold{Time: a.Time, Status: a.Status})
		}
	}
	return holds, nil
}

func (r *MemoryRepository) GetLiveAppointmentForSlot(ctx context.Context, date time.Time, t catalog.TimeOfDay) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailReads != nil {
		return nil, r.FailReads
	}
	a, ok := r.liveHolder(date, t)
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) InsertAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if appt.Status.Live() {
		if _, taken := r.liveHolder(appt.Date, appt.Time); taken {
			return nil, ErrSlotTaken
		}
	}
	appt.ID = uuid.New()
	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	r.appointments[appt.ID] = appt
	return &appt, nil
}

func (r *MemoryRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailReads != nil {
		return nil, r.FailReads
	}
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return &a, nil
}

func (r *MemoryRepository) FindLapsedScheduled(ctx context.Context, before time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailReads != nil {
		return nil, r.FailReads
	}
	var result []Appointment
	for _, a := range r.appointments {
		if a.Status != StatusScheduled {
			continue
		}
		hour, min := a.Time.Clock()
		at := time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), hour, min, 0, 0, before.Location())
		if at.Before(before) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

// liveHolder must be called with the mutex held.
func (r *MemoryRepository) liveHolder(date time.Time, t catalog.TimeOfDay) (Appointment, bool) {
	day := FormatDate(date)
	for _, a := range r.appointments {
		if a.Status.Live() && a.Time == t && FormatDate(a.Date) == day {
			return a, true
		}
	}
	return Appointment{}, false
}

package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking/internal/catalog"
	redisclient "github.com/clinicdesk/booking/internal/redis"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentCanceled  = "APPOINTMENT_CANCELED"
)

var (
	ErrSlotTaken               = errors.New("slot already held by a live appointment")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrPastDate                = errors.New("booking date must be today or later")
	ErrSlotNotBookable         = errors.New("time is not a bookable slot on that weekday")
	ErrModalityRequired        = errors.New("modality is required for this service")
	ErrModalityMismatch        = errors.New("service is only offered in one modality")
	ErrForbidden               = errors.New("appointment belongs to another patient")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// Requester identifies who is asking for a lifecycle transition. Admins may
// operate on any appointment; patients only on their own.
type Requester struct {
	ID    uuid.UUID
	Admin bool
}

type BookingRequest struct {
	PatientID uuid.UUID
	Date      time.Time
	Time      catalog.TimeOfDay
	ServiceID string
	Modality  *catalog.Modality
	Notes     *string
	// ByAdmin bookings skip the confirmation step and start confirmed.
	ByAdmin bool
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	source   catalog.Source
	resolver *AvailabilityResolver
	loc      *time.Location
	log      zerolog.Logger

	now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, source catalog.Source, loc *time.Location, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		source:   source,
		resolver: NewAvailabilityResolver(repo),
		loc:      loc,
		log:      log,
		now:      time.Now,
	}
}

// AvailableSlots composes the weekly template with the live appointments for
// date. The template is re-read from the source on every call so admin edits
// apply immediately.
func (s *Service) AvailableSlots(ctx context.Context, date time.Time) ([]catalog.TimeOfDay, error) {
	tpl, err := s.source.Template(ctx)
	if err != nil {
		return nil, fmt.Errorf("load weekly template: %w", err)
	}
	return s.resolver.Resolve(ctx, date, tpl.SlotsFor(date))
}

// Book validates the request and creates the appointment if the slot is still
// free. A distributed per-slot lock serializes the check-then-insert; the
// partial unique index on live (date, time) stays the final arbiter even if
// the lock is lost mid-flight.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if req.Date.Before(s.today()) {
		return nil, ErrPastDate
	}

	tpl, err := s.source.Template(ctx)
	if err != nil {
		return nil, fmt.Errorf("load weekly template: %w", err)
	}
	if !tpl.Contains(req.Date, req.Time) {
		return nil, ErrSlotNotBookable
	}

	svc, err := s.source.ServiceByID(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}

	modality, err := resolveModality(svc, req.Modality)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	status := StatusScheduled
	if req.ByAdmin {
		status = StatusConfirmed
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, slotKey(req.Date, req.Time), func(lockCtx context.Context) error {
		// Inside the critical section re-check the slot right before insert.
		free, err := s.resolver.Resolve(lockCtx, req.Date, []catalog.TimeOfDay{req.Time})
		if err != nil {
			return err
		}
		if len(free) == 0 {
			return s.reuseOnDuplicate(lockCtx, req, modality, &created)
		}

		appt, err := s.repo.InsertAppointment(lockCtx, Appointment{
			PatientID: req.PatientID,
			ServiceID: req.ServiceID,
			Date:      req.Date,
			Time:      req.Time,
			Modality:  modality,
			Status:    status,
			Notes:     req.Notes,
		})
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				// Lost the race despite the lock; the index caught it.
				return s.reuseOnDuplicate(lockCtx, req, modality, &created)
			}
			return fmt.Errorf("insert appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"patient_id": req.PatientID.String(),
			"service_id": req.ServiceID,
			"date":       FormatDate(req.Date),
			"time":       req.Time.String(),
			"status":     string(status),
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// reuseOnDuplicate makes duplicate submissions safe: when the slot is held by
// a live appointment for the same patient, service and modality, the original
// record is returned instead of a conflict. Anyone else holding it is a real
// conflict.
func (s *Service) reuseOnDuplicate(ctx context.Context, req BookingRequest, modality *catalog.Modality, out **Appointment) error {
	existing, err := s.repo.GetLiveAppointmentForSlot(ctx, req.Date, req.Time)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Holder vanished between check and read; treat as taken and let
			// the caller re-fetch availability.
			return ErrSlotTaken
		}
		return fmt.Errorf("load conflicting appointment: %w", err)
	}
	if existing.PatientID == req.PatientID && existing.ServiceID == req.ServiceID && modalityEqual(existing.Modality, modality) {
		*out = existing
		return nil
	}
	return ErrSlotTaken
}

// Confirm moves a scheduled appointment to confirmed. Admin action, typically
// after the advance payment is recorded manually.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	updated, err := s.transition(ctx, id, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, updated.ID, EventAppointmentConfirmed, map[string]any{})
	return updated, nil
}

// Complete marks a confirmed appointment as completed after the session.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	updated, err := s.transition(ctx, id, StatusCompleted)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, updated.ID, EventAppointmentCompleted, map[string]any{})
	return updated, nil
}

// Cancel moves an appointment to canceled and thereby frees its slot. A
// patient may only cancel their own appointments; admins may cancel any.
// Canceling an already-canceled appointment is a no-op returning the terminal
// record, not a fresh transition.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, requester Requester) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !requester.Admin && appt.PatientID != requester.ID {
		return nil, ErrForbidden
	}

	if appt.Status == StatusCanceled {
		return appt, nil
	}
	if !appt.Status.CanTransitionTo(StatusCanceled) {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, StatusCanceled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Status changed under us; report it as a transition problem, not
			// a missing row.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCanceled, map[string]any{
		"requester_id": requester.ID.String(),
		"by_admin":     requester.Admin,
	})

	return updated, nil
}

// GetAppointment retrieves an appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// SweepLapsed cancels still-scheduled appointments whose slot wall time has
// passed without the booking ever being confirmed. Intended to be called by
// the worker periodically.
func (s *Service) SweepLapsed(ctx context.Context) error {
	now := s.now().In(s.loc)
	lapsed, err := s.repo.FindLapsedScheduled(ctx, now)
	if err != nil {
		return fmt.Errorf("find lapsed scheduled appointments: %w", err)
	}

	for _, appt := range lapsed {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusCanceled)
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.log.Error().Err(err).Stringer("appointment_id", appt.ID).Msg("failed to cancel lapsed appointment")
			}
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentCanceled, map[string]any{
			"reason": "lapsed_sweep",
		})
	}

	return nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !appt.Status.CanTransitionTo(to) {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	return updated, nil
}

// today is the current calendar day in the clinic's location, normalized to
// the same timezone-naive form booking dates use.
func (s *Service) today() time.Time {
	year, month, day := s.now().In(s.loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Stringer("appointment_id", appointmentID).Msg("failed to insert event log")
	}
}

func slotKey(date time.Time, t catalog.TimeOfDay) string {
	return FormatDate(date) + ":" + t.String()
}

func resolveModality(svc *catalog.Service, requested *catalog.Modality) (*catalog.Modality, error) {
	if svc.FixedModality != nil {
		if requested != nil && *requested != *svc.FixedModality {
			return nil, ErrModalityMismatch
		}
		return svc.FixedModality, nil
	}
	if requested == nil {
		return nil, ErrModalityRequired
	}
	return requested, nil
}

func modalityEqual(a, b *catalog.Modality) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

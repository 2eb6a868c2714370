package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/booking/internal/booking"
	"github.com/clinicdesk/booking/internal/catalog"
	redisclient "github.com/clinicdesk/booking/internal/redis"
)

func getSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dateStr := r.URL.Query().Get("date")
		date, err := booking.ParseDate(dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		times, err := svc.AvailableSlots(r.Context(), date)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "availability_unavailable", "could not determine availability, try again later")
			return
		}

		resp := AvailableSlotsResponse{Date: dateStr, Times: make([]string, 0, len(times))}
		for _, t := range times {
			resp.Times = append(resp.Times, t.String())
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func bookAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		date, err := booking.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slot, err := catalog.ParseTimeOfDay(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "time must be HH:MM in 24-hour form")
			return
		}

		var modality *catalog.Modality
		if req.Modality != nil {
			m, err := catalog.ParseModality(*req.Modality)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_modality", err.Error())
				return
			}
			modality = &m
		}

		appt, err := svc.Book(r.Context(), booking.BookingRequest{
			PatientID: patientID,
			Date:      date,
			Time:      slot,
			ServiceID: req.ServiceID,
			Modality:  modality,
			Notes:     req.Notes,
			ByAdmin:   req.ByAdmin,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func confirmAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Confirm(r.Context(), id)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Complete(r.Context(), id)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		requesterID, err := uuid.Parse(req.RequesterID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_requester_id", "requester_id must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), id, booking.Requester{ID: requesterID, Admin: req.ByAdmin})
		if err != nil {
			handleLifecycleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrPastDate):
		writeError(w, http.StatusUnprocessableEntity, "past_date", err.Error())
	case errors.Is(err, booking.ErrSlotNotBookable):
		writeError(w, http.StatusUnprocessableEntity, "slot_not_bookable", err.Error())
	case errors.Is(err, booking.ErrModalityRequired):
		writeError(w, http.StatusUnprocessableEntity, "modality_required", err.Error())
	case errors.Is(err, booking.ErrModalityMismatch):
		writeError(w, http.StatusUnprocessableEntity, "modality_mismatch", err.Error())
	case errors.Is(err, catalog.ErrServiceNotFound):
		writeError(w, http.StatusUnprocessableEntity, "unknown_service", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_conflict", "slot was taken, pick another time")
	case errors.Is(err, booking.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusServiceUnavailable, "persistence_unavailable", "booking backend unavailable, try again later")
	}
}

func handleLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusServiceUnavailable, "persistence_unavailable", "booking backend unavailable, try again later")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

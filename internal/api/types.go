package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/booking/internal/booking"
)

type BookAppointmentRequest struct {
	PatientID string  `json:"patient_id"`
	Date      string  `json:"date"`
	Time      string  `json:"time"`
	ServiceID string  `json:"service_id"`
	Modality  *string `json:"modality,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	ByAdmin   bool    `json:"by_admin,omitempty"`
}

type CancelAppointmentRequest struct {
	RequesterID string `json:"requester_id"`
	ByAdmin     bool   `json:"by_admin,omitempty"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	ServiceID string    `json:"service_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Modality  *string   `json:"modality,omitempty"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	var modality *string
	if a.Modality != nil {
		m := string(*a.Modality)
		modality = &m
	}
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		ServiceID: a.ServiceID,
		Date:      booking.FormatDate(a.Date),
		Time:      a.Time.String(),
		Modality:  modality,
		Status:    string(a.Status),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
	}
}

type AvailableSlotsResponse struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Package catalog holds the admin-configured clinic data the booking core
// reads at request time: the service price list and the weekly slot template.
package catalog

import (
	"context"
	"errors"
	"time"
)

type Modality string

const (
	ModalityOnline   Modality = "online"
	ModalityInPerson Modality = "in_person"
)

func ParseModality(s string) (Modality, error) {
	switch Modality(s) {
	case ModalityOnline, ModalityInPerson:
		return Modality(s), nil
	}
	return "", ErrUnknownModality
}

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrUnknownModality = errors.New("modality must be online or in_person")
)

// Service is one bookable offering. FixedModality is set for services that
// are only delivered one way (the intake interview is always online, for
// example); bookings for those need not carry a modality.
type Service struct {
	ID               string
	Name             string
	Duration         time.Duration
	PriceCents       int64
	OnlinePriceCents *int64
	FixedModality    *Modality
}

// PriceFor returns the price for a given modality, applying the online
// discount price where one is configured.
func (s Service) PriceFor(m Modality) int64 {
	if m == ModalityOnline && s.OnlinePriceCents != nil {
		return *s.OnlinePriceCents
	}
	return s.PriceCents
}

// Source supplies the admin-configured tables. Implementations must read the
// backing store on every call: an admin edit has to be visible to the very
// next booking request, so nothing here may be cached.
type Source interface {
	ServiceByID(ctx context.Context, id string) (*Service, error)
	Services(ctx context.Context) ([]Service, error)
	Template(ctx context.Context) (WeeklyTemplate, error)
}

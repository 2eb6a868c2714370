package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicdesk/booking/internal/catalog"
)

// AvailabilityResolver filters candidate slots against the live appointments
// already holding them. It is read-only and advisory: the insert path, not
// this check, is what ultimately prevents double-booking.
type AvailabilityResolver struct {
	repo Repository
}

func NewAvailabilityResolver(repo Repository) *AvailabilityResolver {
	return &AvailabilityResolver{repo: repo}
}

// Resolve returns the subset of candidates not held by a scheduled or
// confirmed appointment on date, order preserved. A failed read propagates:
// reporting every slot free on a backend error is exactly how a clinic ends
// up double-booked.
func (res *AvailabilityResolver) Resolve(ctx context.Context, date time.Time, candidates []catalog.TimeOfDay) ([]catalog.TimeOfDay, error) {
	holds, err := res.repo.ListLiveHolds(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list live appointments for %s: %w", FormatDate(date), err)
	}

	held := make(map[catalog.TimeOfDay]struct{}, len(holds))
	for _, h := range holds {
		held[h.Time] = struct{}{}
	}

	free := make([]catalog.TimeOfDay, 0, len(candidates))
	for _, t := range candidates {
		if _, taken := held[t]; !taken {
			free = append(free, t)
		}
	}
	return free, nil
}

package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ResolveAvailability computes the bookable slots for a (doctor, date) pair:
// the configured template minus the times of that doctor's appointments on
// that date which are neither cancelled nor completed, in template order.
// A doctor/date with no configured template yields an empty list, which means
// "doctor unavailable" rather than an error.
func (s *Service) ResolveAvailability(ctx context.Context, doctorID int, date string) ([]string, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}

	av, err := s.store.GetAvailability(ctx, doctorID, date)
	if err != nil {
		if errors.Is(err, ErrAvailabilityNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("load availability: %w", err)
	}

	appointments, err := s.store.ListAppointmentsByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	booked := make(map[string]struct{})
	for _, appt := range appointments {
		if appt.Date == date && statusBlocksSlot(appt.Status) {
			booked[appt.Time] = struct{}{}
		}
	}

	open := make([]string, 0, len(av.TimeSlots))
	for _, slot := range av.TimeSlots {
		if _, taken := booked[slot]; !taken {
			open = append(open, slot)
		}
	}
	return open, nil
}

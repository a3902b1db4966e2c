package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"commonroom/models"
	"commonroom/services/calendar"
)

// Opening hours for every room. Slots are offered on half-hour boundaries;
// a booking must start and end within [OpeningHour, ClosingHour] of the
// local day.
const (
	OpeningHour      = 8
	ClosingHour      = 22
	SlotStepMinutes  = 30
	MaxDurationHours = ClosingHour - OpeningHour
)

// TimeSlot is a bookable start time within a day.
type TimeSlot struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (ts TimeSlot) String() string {
	return fmt.Sprintf("%02d:%02d", ts.Hour, ts.Minute)
}

// AvailabilityService fetches existing reservations and derives the
// presentational day summary and slot choices from them.
type AvailabilityService interface {
	ReservationsOn(ctx context.Context, room *models.Resource, date time.Time) ([]models.Reservation, error)
	DaySummary(reservations []models.Reservation) string
}

// DefaultAvailabilityService implements AvailabilityService over the
// calendar collaborator.
type DefaultAvailabilityService struct {
	Calendar calendar.Service
}

// ReservationsOn returns every reservation whose interval intersects the
// local day [00:00:00.000, 23:59:59.999] of date.
func (s *DefaultAvailabilityService) ReservationsOn(ctx context.Context, room *models.Resource, date time.Time) ([]models.Reservation, error) {
	if !room.Bookable() {
		return nil, ErrResourceNotBookable
	}
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24*time.Hour - time.Millisecond)
	return s.Calendar.ListReservations(ctx, room.CalendarID, dayStart, dayEnd)
}

// DaySummary renders the human-readable availability overview. The summary
// is presentational; the reservation list itself is what conflict checks
// run against.
func (s *DefaultAvailabilityService) DaySummary(reservations []models.Reservation) string {
	if len(reservations) == 0 {
		return "Available all day"
	}
	var b strings.Builder
	b.WriteString("Booked slots:\n")
	for _, r := range reservations {
		summary := r.Summary
		if summary == "" {
			summary = "(reserved)"
		}
		fmt.Fprintf(&b, "- %s - %s: %s\n", r.Start.Format("15:04"), r.End.Format("15:04"), summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

// TimeSlots lists the offerable start times for a day: every 30 minutes
// from opening up to (but not including) closing, since a start at closing
// leaves no room for any positive duration. When the day is today, the
// first slot is the next half-hour boundary at or after now; if that
// rounds past the last offerable start, no slots remain.
func TimeSlots(date time.Time, now time.Time) []TimeSlot {
	loc := date.Location()
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), OpeningHour, 0, 0, 0, loc)
	lastStart := time.Date(date.Year(), date.Month(), date.Day(), ClosingHour, 0, 0, 0, loc).
		Add(-SlotStepMinutes * time.Minute)

	first := dayStart
	if sameDay(date, now.In(loc)) {
		rounded := roundUpToStep(now.In(loc))
		if rounded.After(first) {
			first = rounded
		}
	}

	var slots []TimeSlot
	for t := first; !t.After(lastStart); t = t.Add(SlotStepMinutes * time.Minute) {
		slots = append(slots, TimeSlot{Hour: t.Hour(), Minute: t.Minute()})
	}
	return slots
}

// MaxDurationMinutes bounds the duration choices so the booking still ends
// by closing.
func MaxDurationMinutes(start time.Time) int {
	closing := time.Date(start.Year(), start.Month(), start.Day(), ClosingHour, 0, 0, 0, start.Location())
	remaining := int(closing.Sub(start).Minutes())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func roundUpToStep(t time.Time) time.Time {
	base := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	if base.Before(t) {
		base = base.Add(time.Minute)
	}
	rem := base.Minute() % SlotStepMinutes
	if rem == 0 {
		return base
	}
	return base.Add(time.Duration(SlotStepMinutes-rem) * time.Minute)
}

package booking

import (
	"strings"
	"testing"
	"time"

	"commonroom/models"
)

func TestTimeSlotsFullDay(t *testing.T) {
	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) // not today

	slots := TimeSlots(day, now)
	if len(slots) == 0 {
		t.Fatal("expected slots for a future day")
	}
	if slots[0].String() != "08:00" {
		t.Errorf("first slot = %s, want 08:00", slots[0].String())
	}
	last := slots[len(slots)-1]
	if last.String() != "21:30" {
		t.Errorf("last slot = %s, want 21:30 (a 22:00 start fits no positive duration)", last.String())
	}
	// Every 30 minutes from 08:00 through 21:30.
	if want := 28; len(slots) != want {
		t.Errorf("slot count = %d, want %d", len(slots), want)
	}
}

func TestTimeSlotsTodayRoundsUp(t *testing.T) {
	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		now   time.Time
		first string
	}{
		{time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC), "10:00"},
		{time.Date(2026, 9, 10, 10, 0, 1, 0, time.UTC), "10:30"},
		{time.Date(2026, 9, 10, 10, 14, 0, 0, time.UTC), "10:30"},
		{time.Date(2026, 9, 10, 10, 31, 0, 0, time.UTC), "11:00"},
		{time.Date(2026, 9, 10, 6, 0, 0, 0, time.UTC), "08:00"},
	}
	for _, tc := range cases {
		slots := TimeSlots(day, tc.now)
		if len(slots) == 0 {
			t.Errorf("now=%s: expected slots", tc.now.Format("15:04:05"))
			continue
		}
		if slots[0].String() != tc.first {
			t.Errorf("now=%s: first slot = %s, want %s", tc.now.Format("15:04:05"), slots[0].String(), tc.first)
		}
	}
}

func TestTimeSlotsTodayPastClosing(t *testing.T) {
	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 10, 21, 45, 0, 0, time.UTC)
	if slots := TimeSlots(day, now); len(slots) != 0 {
		t.Errorf("expected no slots when rounding past the last start, got %d", len(slots))
	}
}

func TestMaxDurationMinutes(t *testing.T) {
	start := time.Date(2026, 9, 10, 20, 30, 0, 0, time.UTC)
	if got := MaxDurationMinutes(start); got != 90 {
		t.Errorf("MaxDurationMinutes(20:30) = %d, want 90", got)
	}
	late := time.Date(2026, 9, 10, 22, 30, 0, 0, time.UTC)
	if got := MaxDurationMinutes(late); got != 0 {
		t.Errorf("MaxDurationMinutes(22:30) = %d, want 0", got)
	}
}

func TestDaySummary(t *testing.T) {
	svc := &DefaultAvailabilityService{}

	if got := svc.DaySummary(nil); got != "Available all day" {
		t.Errorf("empty day summary = %q", got)
	}

	reservations := []models.Reservation{
		reservationAt("Standup", interval(10, 0, 11, 0)),
	}
	got := svc.DaySummary(reservations)
	if !strings.Contains(got, "10:00 - 11:00") || !strings.Contains(got, "Standup") {
		t.Errorf("summary missing booked slot: %q", got)
	}
}

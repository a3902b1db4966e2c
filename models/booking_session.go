package models

import "time"

// Step identifies where a booking conversation currently is.
type Step string

const (
	StepSelectingDate     Step = "selecting_date"
	StepSelectingTime     Step = "selecting_time"
	StepSelectingDuration Step = "selecting_duration"
	StepNamingEvent       Step = "naming_event"
	StepConfirming        Step = "confirming"
	StepProcessing        Step = "processing"
)

// stepOrder fixes the only legal forward progression of a session.
var stepOrder = []Step{
	StepSelectingDate,
	StepSelectingTime,
	StepSelectingDuration,
	StepNamingEvent,
	StepConfirming,
	StepProcessing,
}

// Index returns the position of a step in the flow, or -1 for an unknown step.
func (s Step) Index() int {
	for i, st := range stepOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// BookingSession holds one user's in-flight booking conversation, keyed by
// (guild, user). Fields belonging to steps after the current one are always
// unset; moving backward clears them.
type BookingSession struct {
	GuildID  string `json:"guildId"`
	UserID   string `json:"userId"`
	RoomSlug string `json:"roomSlug"`
	Step     Step   `json:"step"`

	SelectedDate   string `json:"selectedDate,omitempty"` // "2006-01-02"
	SelectedHour   int    `json:"selectedHour"`
	SelectedMinute int    `json:"selectedMinute"`
	TimeChosen     bool   `json:"timeChosen"`
	Duration       int    `json:"duration,omitempty"` // minutes
	Name           string `json:"name,omitempty"`

	StartTime time.Time `json:"startTime,omitzero"`
	EndTime   time.Time `json:"endTime,omitzero"`

	CreatedAt time.Time `json:"createdAt"`
}

// Advance moves the session to the next step in the fixed order.
func (s *BookingSession) Advance() {
	i := s.Step.Index()
	if i >= 0 && i < len(stepOrder)-1 {
		s.Step = stepOrder[i+1]
	}
}

// Rewind moves the session back to a strictly earlier step and clears every
// field that belongs to the skipped steps, so the flow re-collects them.
func (s *BookingSession) Rewind(to Step) bool {
	target := to.Index()
	if target < 0 || target >= s.Step.Index() {
		return false
	}
	s.Step = to
	if target <= StepNamingEvent.Index() {
		s.Name = ""
	}
	if target <= StepSelectingDuration.Index() {
		s.Duration = 0
		s.StartTime = time.Time{}
		s.EndTime = time.Time{}
	}
	if target <= StepSelectingTime.Index() {
		s.SelectedHour = 0
		s.SelectedMinute = 0
		s.TimeChosen = false
	}
	if target <= StepSelectingDate.Index() {
		s.SelectedDate = ""
	}
	return true
}

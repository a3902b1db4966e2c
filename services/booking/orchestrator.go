package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commonroom/config"
	"commonroom/models"

	"go.uber.org/zap"
)

// DefaultFlowService implements FlowService. It drives the pipeline
// AvailabilityQuery -> PriceCalculator -> PaymentSettlement ->
// ReservationCommitter in response to the fixed sequence of user choices.
type DefaultFlowService struct {
	Sessions     SessionStore
	Availability AvailabilityService
	Payments     PaymentSettlement
	Committer    ReservationCommitter
	Holds        HoldManager
	Catalog      config.RoomCatalog
	Compensator  Compensator
	Location     *time.Location
	Logger       *zap.Logger

	// Now is swappable for tests of the "today" slot rules.
	Now func() time.Time
}

func (s *DefaultFlowService) now() time.Time {
	if s.Now != nil {
		return s.Now().In(s.Location)
	}
	return time.Now().In(s.Location)
}

// StartFlow creates a fresh session at date selection, replacing any
// previous in-flight conversation for the same (guild, user).
func (s *DefaultFlowService) StartFlow(ctx context.Context, guildID, userID, roomSlug string) (*FlowState, error) {
	room, err := s.Catalog.BySlug(roomSlug)
	if err != nil {
		return nil, &FlowError{Code: "unknownRoom", Message: err.Error()}
	}
	if !room.Bookable() {
		return nil, ErrResourceNotBookable
	}

	session := &models.BookingSession{
		GuildID:   guildID,
		UserID:    userID,
		RoomSlug:  roomSlug,
		Step:      models.StepSelectingDate,
		CreatedAt: s.now(),
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &FlowState{Session: *session}, nil
}

// ChooseDate records the selected day and moves to time selection,
// returning the day's availability summary and offerable start slots.
func (s *DefaultFlowService) ChooseDate(ctx context.Context, guildID, userID, date string) (*FlowState, error) {
	session, err := s.sessionAt(ctx, guildID, userID, models.StepSelectingDate)
	if err != nil {
		return nil, err
	}
	day, err := time.ParseInLocation("2006-01-02", date, s.Location)
	if err != nil {
		return nil, &FlowError{Code: "invalidDate", Message: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date)}
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.Location)
	if day.Before(today) {
		return nil, &FlowError{Code: "invalidDate", Message: "cannot book a past day"}
	}

	room, err := s.Catalog.BySlug(session.RoomSlug)
	if err != nil {
		return nil, &FlowError{Code: "unknownRoom", Message: err.Error()}
	}
	reservations, err := s.Availability.ReservationsOn(ctx, room, day)
	if err != nil {
		return nil, err
	}

	slots := TimeSlots(day, now)
	if len(slots) == 0 {
		return nil, &FlowError{Code: "noSlotsToday", Message: "no bookable start times remain on that day"}
	}

	session.SelectedDate = date
	session.Advance()
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &FlowState{
		Session:    *session,
		DaySummary: s.Availability.DaySummary(reservations),
		TimeSlots:  slots,
	}, nil
}

// ChooseTime records the start time and moves to duration selection.
func (s *DefaultFlowService) ChooseTime(ctx context.Context, guildID, userID string, hour, minute int) (*FlowState, error) {
	session, err := s.sessionAt(ctx, guildID, userID, models.StepSelectingTime)
	if err != nil {
		return nil, err
	}
	day, err := time.ParseInLocation("2006-01-02", session.SelectedDate, s.Location)
	if err != nil {
		return nil, fmt.Errorf("corrupt session date %q: %w", session.SelectedDate, err)
	}
	valid := false
	for _, slot := range TimeSlots(day, s.now()) {
		if slot.Hour == hour && slot.Minute == minute {
			valid = true
			break
		}
	}
	if !valid {
		return nil, &FlowError{Code: "invalidTime", Message: fmt.Sprintf("%02d:%02d is not an offerable start time", hour, minute)}
	}

	session.SelectedHour = hour
	session.SelectedMinute = minute
	session.TimeChosen = true
	session.Advance()
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, s.Location)
	return &FlowState{Session: *session, MaxMinutes: MaxDurationMinutes(start)}, nil
}

// ChooseDuration fixes the candidate interval, runs the first conflict
// check against current reservations and moves to event naming.
func (s *DefaultFlowService) ChooseDuration(ctx context.Context, guildID, userID string, minutes int) (*FlowState, error) {
	session, err := s.sessionAt(ctx, guildID, userID, models.StepSelectingDuration)
	if err != nil {
		return nil, err
	}
	day, err := time.ParseInLocation("2006-01-02", session.SelectedDate, s.Location)
	if err != nil {
		return nil, fmt.Errorf("corrupt session date %q: %w", session.SelectedDate, err)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), session.SelectedHour, session.SelectedMinute, 0, 0, s.Location)
	if minutes <= 0 {
		return nil, &FlowError{Code: "invalidDuration", Message: "duration must be positive"}
	}
	if minutes > MaxDurationMinutes(start) {
		return nil, &FlowError{Code: "invalidDuration", Message: "booking would run past closing time"}
	}
	end := start.Add(time.Duration(minutes) * time.Minute)

	room, err := s.Catalog.BySlug(session.RoomSlug)
	if err != nil {
		return nil, &FlowError{Code: "unknownRoom", Message: err.Error()}
	}
	reservations, err := s.Availability.ReservationsOn(ctx, room, day)
	if err != nil {
		return nil, err
	}
	if conflict := FindConflict(models.Interval{Start: start, End: end}, reservations); conflict != nil {
		return nil, &ConflictFoundError{Conflicting: *conflict}
	}

	session.Duration = minutes
	session.StartTime = start
	session.EndTime = end
	session.Advance()
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &FlowState{Session: *session}, nil
}

// SetName records the event name (or applies the default when empty) and
// enters confirmation, returning freshly computed prices and balances.
func (s *DefaultFlowService) SetName(ctx context.Context, guildID, userID, name string) (*ConfirmationView, error) {
	session, err := s.sessionAt(ctx, guildID, userID, models.StepNamingEvent)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = fmt.Sprintf("Reservation by %s", userID)
	}
	session.Name = name
	session.Advance()
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return s.buildConfirmation(ctx, session)
}

// Confirmation re-renders the confirmation screen for the current session.
// Price and balance are recomputed on every call, because duration or date
// may have changed since the last render.
func (s *DefaultFlowService) Confirmation(ctx context.Context, guildID, userID string) (*ConfirmationView, error) {
	session, err := s.sessionAt(ctx, guildID, userID, models.StepConfirming)
	if err != nil {
		return nil, err
	}
	return s.buildConfirmation(ctx, session)
}

func (s *DefaultFlowService) buildConfirmation(ctx context.Context, session *models.BookingSession) (*ConfirmationView, error) {
	room, err := s.Catalog.BySlug(session.RoomSlug)
	if err != nil {
		return nil, &FlowError{Code: "unknownRoom", Message: err.Error()}
	}
	view := &ConfirmationView{Session: *session, Room: room.Name}
	for _, quote := range QuoteAll(room, s.Catalog.Tokens(), session.Duration) {
		balance, err := s.Payments.Balance(ctx, session.UserID, quote.Token)
		if err != nil {
			return nil, &PaymentFailedError{Reason: "could not read balance", Err: err}
		}
		view.Quotes = append(view.Quotes, QuoteView{
			Token:      quote.Token.Symbol,
			Price:      models.DisplayAmount(quote.Amount, quote.Token.Decimals),
			PriceExact: quote.Amount.String(),
			Balance:    models.DisplayAmount(balance, quote.Token.Decimals),
			Sufficient: balance.Cmp(quote.Amount) >= 0,
		})
	}
	return view, nil
}

// Back rewinds the session to a strictly earlier step, clearing every
// field collected at the skipped steps.
func (s *DefaultFlowService) Back(ctx context.Context, guildID, userID string, to models.Step) (*FlowState, error) {
	session, err := s.Sessions.Get(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if !session.Rewind(to) {
		return nil, &FlowError{Code: "invalidTransition", Message: fmt.Sprintf("cannot move back to %s from %s", to, session.Step)}
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &FlowState{Session: *session}, nil
}

// Confirm runs the Processing step: interval hold, exact-price debit, then
// the reservation commit. On a commit conflict the captured payment is
// handed to the compensator and the distinguished error is surfaced.
func (s *DefaultFlowService) Confirm(ctx context.Context, guildID, userID, tokenSymbol string) (*BookingResult, error) {
	session, err := s.sessionAt(ctx, guildID, userID, models.StepConfirming)
	if err != nil {
		return nil, err
	}
	room, err := s.Catalog.BySlug(session.RoomSlug)
	if err != nil {
		return nil, &FlowError{Code: "unknownRoom", Message: err.Error()}
	}
	token, err := s.Catalog.TokenBySymbol(tokenSymbol)
	if err != nil {
		return nil, &FlowError{Code: "unknownToken", Message: err.Error()}
	}
	rate := room.RateFor(token.Symbol)
	if rate == nil {
		return nil, &FlowError{Code: "unknownToken", Message: fmt.Sprintf("room %s does not accept %s", room.Slug, token.Symbol)}
	}
	amount := Price(rate, session.Duration)
	priceText := models.FormatAmount(amount, token.Decimals) + " " + token.Symbol

	interval := models.Interval{Start: session.StartTime, End: session.EndTime}
	release, err := s.Holds.Acquire(ctx, room.CalendarID, interval)
	if err != nil {
		return nil, err
	}
	defer release()

	session.Step = models.StepProcessing
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	receipt, err := s.Payments.CheckAndDebit(ctx, userID, *token, amount)
	if err != nil {
		// No funds moved; the session returns to confirmation so the user
		// can retry or rewind.
		session.Step = models.StepConfirming
		if saveErr := s.Sessions.Save(ctx, session); saveErr != nil {
			s.Logger.Warn("failed to restore session after payment failure", zap.Error(saveErr))
		}
		return nil, err
	}

	created, err := s.Committer.Commit(ctx, room, session, receipt, priceText)
	if err != nil {
		var commitConflict *CommitConflictError
		if errors.As(err, &commitConflict) {
			s.enqueueCompensation(ctx, session, receipt, commitConflict)
		}
		// The conversation is over either way; a paid-but-not-booked state
		// is settled by compensation, not by replaying the flow.
		if delErr := s.Sessions.Delete(ctx, guildID, userID); delErr != nil {
			s.Logger.Warn("failed to delete session after commit failure", zap.Error(delErr))
		}
		return nil, err
	}

	if err := s.Sessions.Delete(ctx, guildID, userID); err != nil {
		s.Logger.Warn("failed to delete completed session", zap.Error(err))
	}
	return &BookingResult{Reservation: *created, Receipt: *receipt, PriceText: priceText}, nil
}

// Abort ends the conversation without booking.
func (s *DefaultFlowService) Abort(ctx context.Context, guildID, userID string) error {
	return s.Sessions.Delete(ctx, guildID, userID)
}

func (s *DefaultFlowService) enqueueCompensation(ctx context.Context, session *models.BookingSession, receipt *models.PaymentReceipt, conflict *CommitConflictError) {
	if s.Compensator == nil {
		return
	}
	task := CompensationTask{
		UserID:     session.UserID,
		GuildID:    session.GuildID,
		Network:    receipt.Network,
		Token:      receipt.Token,
		Address:    receipt.Address,
		Amount:     receipt.Amount.String(),
		PaymentRef: receipt.TxRef,
		Reason:     "commit conflict: " + session.RoomSlug,
	}
	if err := s.Compensator.EnqueueCredit(ctx, task); err != nil {
		// The user message already says "contact an operator"; the log is
		// the reconciliation trail.
		s.Logger.Error("failed to enqueue compensating credit",
			zap.String("paymentRef", receipt.TxRef),
			zap.String("amount", receipt.Amount.String()),
			zap.Error(err))
	}
}

// sessionAt loads the session and verifies the conversation is at the
// expected step.
func (s *DefaultFlowService) sessionAt(ctx context.Context, guildID, userID string, step models.Step) (*models.BookingSession, error) {
	session, err := s.Sessions.Get(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if session.Step != step {
		return nil, &FlowError{Code: "invalidTransition", Message: fmt.Sprintf("expected step %s, session is at %s", step, session.Step)}
	}
	return session, nil
}

package cancellation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"commonroom/config"
	"commonroom/database/repository/bookingindex"
	"commonroom/models"
	"commonroom/services/booking"
	"commonroom/services/calendar"
	"commonroom/services/ledger"

	"go.uber.org/zap"
)

// lookahead bounds the ownership scan; reservations further out than a
// year are not offered for cancellation.
const lookahead = 365 * 24 * time.Hour

// Service is the cancellation pipeline: scan owned reservations, present
// candidates, and settle a selected one with a time-based partial refund.
type Service interface {
	ListCandidates(ctx context.Context, guildID, userID string) ([]models.CancellationCandidate, error)
	Select(ctx context.Context, guildID, userID, reservationID string) (*Preview, error)
	Confirm(ctx context.Context, guildID, userID string) (*Result, error)
	Dismiss(ctx context.Context, guildID, userID string) error
}

// Preview shows what confirming the selected cancellation would refund.
type Preview struct {
	Candidate models.CancellationCandidate `json:"candidate"`
	Percent   int                          `json:"percent"`
	Refund    string                       `json:"refund"`
}

// Result reports a settled cancellation.
type Result struct {
	ReservationID string `json:"reservationId"`
	RoomName      string `json:"roomName"`
	Token         string `json:"token"`
	Percent       int    `json:"percent"`
	Refund        string `json:"refund"`
	RefundRef     string `json:"refundRef,omitempty"`
	CreditSkipped bool   `json:"creditSkipped"` // refund was already issued by an earlier attempt
}

// DefaultCancellationService implements Service.
type DefaultCancellationService struct {
	Catalog  config.RoomCatalog
	Calendar calendar.Service
	Ledger   ledger.Service
	Index    bookingindex.Repository
	Pending  PendingStore
	Network  string
	Logger   *zap.Logger

	// Now is swappable for tests of the refund boundary.
	Now func() time.Time
}

func (s *DefaultCancellationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ListCandidates scans every bookable room's calendar over [now, now+1y)
// and keeps the reservations owned by the user. The price of each
// candidate is recomputed from its duration and the room's current rate:
// rate changes between booking and cancellation deliberately change the
// refund basis.
func (s *DefaultCancellationService) ListCandidates(ctx context.Context, guildID, userID string) ([]models.CancellationCandidate, error) {
	now := s.now()
	var candidates []models.CancellationCandidate

	for _, room := range s.Catalog.Rooms() {
		if !room.Bookable() {
			continue
		}
		reservations, err := s.Calendar.ListReservations(ctx, room.CalendarID, now, now.Add(lookahead))
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", room.Slug, err)
		}
		for _, res := range reservations {
			tokenSymbol, owned := s.ownedBy(ctx, res, guildID, userID)
			if !owned {
				continue
			}
			token, err := s.Catalog.TokenBySymbol(tokenSymbol)
			if err != nil {
				s.Logger.Warn("reservation priced in unknown token",
					zap.String("reservationID", res.ID),
					zap.String("token", tokenSymbol))
				continue
			}
			rate := room.RateFor(token.Symbol)
			if rate == nil {
				continue
			}
			minutes := int(res.Interval().Duration().Minutes())
			price := booking.Price(rate, minutes)
			candidates = append(candidates, models.CancellationCandidate{
				Reservation: res,
				RoomSlug:    room.Slug,
				RoomName:    room.Name,
				Token:       token.Symbol,
				PriceAmount: price,
				PriceText:   models.DisplayAmount(price, token.Decimals) + " " + token.Symbol,
			})
		}
	}
	return candidates, nil
}

// ownedBy attributes a reservation to the user, consulting the structured
// index first and falling back to the description marker for reservations
// that predate the index. Returns the settlement token symbol.
func (s *DefaultCancellationService) ownedBy(ctx context.Context, res models.Reservation, guildID, userID string) (string, bool) {
	entry, err := s.Index.GetByReservationID(ctx, res.ID)
	if err == nil {
		// Refunded entries stay listed: a reservation whose credit went
		// through but whose deletion failed still needs its replay.
		return entry.Token, entry.GuildID == guildID && entry.OwnerID == userID
	}
	if !errors.Is(err, bookingindex.ErrNotFound) {
		s.Logger.Warn("booking index lookup failed, falling back to marker",
			zap.String("reservationID", res.ID), zap.Error(err))
	}
	markerGuild, markerUser, ok := booking.OwnerFromDescription(res.Description)
	if !ok || markerGuild != guildID || markerUser != userID {
		return "", false
	}
	// No index record survives for this reservation; settle in the first
	// accepted token.
	tokens := s.Catalog.Tokens()
	if len(tokens) == 0 {
		return "", false
	}
	return tokens[0].Symbol, true
}

// Select stores the pending selection and returns the refund preview.
// Confirmation is a separate explicit action.
func (s *DefaultCancellationService) Select(ctx context.Context, guildID, userID, reservationID string) (*Preview, error) {
	candidate, err := s.findCandidate(ctx, guildID, userID, reservationID)
	if err != nil {
		return nil, err
	}
	if err := s.Pending.Put(ctx, PendingSelection{
		GuildID:       guildID,
		UserID:        userID,
		ReservationID: reservationID,
		RoomSlug:      candidate.RoomSlug,
	}); err != nil {
		return nil, err
	}
	percent := RefundPercent(candidate.Reservation.Start, s.now())
	token, err := s.Catalog.TokenBySymbol(candidate.Token)
	if err != nil {
		return nil, err
	}
	refund := RefundAmount(candidate.PriceAmount, percent)
	return &Preview{
		Candidate: *candidate,
		Percent:   percent,
		Refund:    models.DisplayAmount(refund, token.Decimals) + " " + token.Symbol,
	}, nil
}

// Confirm settles the pending cancellation: credit first under a
// mark-then-verify guard, then delete the reservation. A failure between
// credit and delete leaves a replayable state that skips the credit.
func (s *DefaultCancellationService) Confirm(ctx context.Context, guildID, userID string) (*Result, error) {
	pending, err := s.Pending.Get(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	candidate, err := s.findCandidate(ctx, guildID, userID, pending.ReservationID)
	if err != nil {
		if delErr := s.Pending.Delete(ctx, guildID, userID); delErr != nil {
			s.Logger.Warn("failed to clear stale pending cancellation", zap.Error(delErr))
		}
		return nil, err
	}

	token, err := s.Catalog.TokenBySymbol(candidate.Token)
	if err != nil {
		return nil, err
	}
	percent := RefundPercent(candidate.Reservation.Start, s.now())
	refund := RefundAmount(candidate.PriceAmount, percent)

	result := &Result{
		ReservationID: candidate.Reservation.ID,
		RoomName:      candidate.RoomName,
		Token:         token.Symbol,
		Percent:       percent,
		Refund:        models.DisplayAmount(refund, token.Decimals) + " " + token.Symbol,
	}

	refundRef, skipped, err := s.issueRefund(ctx, userID, candidate, token, refund)
	if err != nil {
		return nil, err
	}
	result.RefundRef = refundRef
	result.CreditSkipped = skipped

	room, err := s.Catalog.BySlug(candidate.RoomSlug)
	if err != nil {
		return nil, err
	}
	if err := s.Calendar.DeleteReservation(ctx, room.CalendarID, candidate.Reservation.ID); err != nil {
		// The credit is issued; the refunded mark makes a replay skip it
		// and retry only this deletion. Log for reconciliation.
		s.Logger.Error("refund issued but reservation deletion failed",
			zap.String("reservationID", candidate.Reservation.ID),
			zap.String("refund", refund.String()),
			zap.String("refundRef", refundRef),
			zap.Error(err))
		return nil, fmt.Errorf("refund issued but the reservation could not be removed, please retry: %w", err)
	}

	if err := s.Pending.Delete(ctx, guildID, userID); err != nil {
		s.Logger.Warn("failed to clear pending cancellation", zap.Error(err))
	}

	s.Logger.Info("cancellation settled",
		zap.String("reservationID", result.ReservationID),
		zap.String("user", userID),
		zap.Int("percent", percent),
		zap.String("refund", refund.String()),
		zap.String("refundRef", refundRef))
	return result, nil
}

// issueRefund credits the user under the idempotency guard. Returns the
// credit reference and whether the credit was skipped because an earlier
// attempt already issued it.
func (s *DefaultCancellationService) issueRefund(ctx context.Context, userID string, candidate *models.CancellationCandidate, token *models.Token, refund *big.Int) (string, bool, error) {
	hasIndex := true
	entry, err := s.Index.GetByReservationID(ctx, candidate.Reservation.ID)
	if errors.Is(err, bookingindex.ErrNotFound) {
		hasIndex = false
	} else if err != nil {
		return "", false, fmt.Errorf("failed to check refund state: %w", err)
	}

	if hasIndex {
		won, err := s.Index.MarkRefunded(ctx, candidate.Reservation.ID)
		if err != nil {
			return "", false, err
		}
		if !won {
			// An earlier attempt already issued the credit and failed after
			// it; only the deletion remains.
			return entry.RefundRef, true, nil
		}
	}

	address, err := s.Ledger.ResolveSettlementAddress(ctx, userID, token.Symbol)
	if err != nil {
		s.rollbackMark(ctx, hasIndex, candidate.Reservation.ID)
		return "", false, &RefundFailedError{
			ReservationID: candidate.Reservation.ID,
			Amount:        refund.String(),
			Token:         token.Symbol,
			Err:           err,
		}
	}

	// The ledger key makes the credit itself idempotent even without an
	// index record.
	idemKey := "refund:" + candidate.Reservation.ID
	refundRef, err := s.Ledger.Credit(ctx, s.Network, token.Symbol, address, refund, idemKey)
	if err != nil {
		s.rollbackMark(ctx, hasIndex, candidate.Reservation.ID)
		s.Logger.Error("refund credit failed, reservation kept",
			zap.String("reservationID", candidate.Reservation.ID),
			zap.String("amount", refund.String()),
			zap.String("token", token.Symbol),
			zap.Error(err))
		return "", false, &RefundFailedError{
			ReservationID: candidate.Reservation.ID,
			Amount:        refund.String(),
			Token:         token.Symbol,
			Err:           err,
		}
	}

	if hasIndex {
		if err := s.Index.SetRefundRef(ctx, candidate.Reservation.ID, refundRef); err != nil {
			s.Logger.Warn("failed to record refund reference", zap.Error(err))
		}
	}
	return refundRef, false, nil
}

func (s *DefaultCancellationService) rollbackMark(ctx context.Context, hasIndex bool, reservationID string) {
	if !hasIndex {
		return
	}
	if err := s.Index.UnmarkRefunded(ctx, reservationID); err != nil {
		s.Logger.Error("failed to revert refund mark", zap.String("reservationID", reservationID), zap.Error(err))
	}
}

// Dismiss abandons the pending selection.
func (s *DefaultCancellationService) Dismiss(ctx context.Context, guildID, userID string) error {
	return s.Pending.Delete(ctx, guildID, userID)
}

func (s *DefaultCancellationService) findCandidate(ctx context.Context, guildID, userID, reservationID string) (*models.CancellationCandidate, error) {
	candidates, err := s.ListCandidates(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].Reservation.ID == reservationID {
			return &candidates[i], nil
		}
	}
	return nil, &FlowError{Code: "reservationGone", Message: "that reservation no longer exists or is not yours"}
}

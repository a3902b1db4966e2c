package cancellation

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"commonroom/models"
	"commonroom/services/booking"

	"go.uber.org/zap"
)

type cancelFixture struct {
	service *DefaultCancellationService
	cal     *fakeCalendar
	ledger  *fakeLedger
	index   *fakeIndexRepo
	pending *memoryPendingStore
}

// newCancelFixture wires the cancellation service against in-memory
// collaborators: one room charging 10.00 TOK per hour, "now" pinned to
// 2026-09-10 12:00 UTC.
func newCancelFixture() *cancelFixture {
	cal := newFakeCalendar()
	lg := newFakeLedger()
	index := newFakeIndexRepo()
	pending := newMemoryPendingStore()
	catalog := &fakeCatalog{
		rooms: []models.Resource{{
			Slug:       "main-hall",
			Name:       "Main Hall",
			CalendarID: "cal-1",
			Rates:      map[string]*big.Int{"TOK": big.NewInt(1000)},
		}},
		tokens: []models.Token{{Symbol: "TOK", Decimals: 2, Network: "community"}},
	}
	return &cancelFixture{
		service: &DefaultCancellationService{
			Catalog:  catalog,
			Calendar: cal,
			Ledger:   lg,
			Index:    index,
			Pending:  pending,
			Network:  "community",
			Logger:   zap.NewNop(),
			Now:      func() time.Time { return time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC) },
		},
		cal:     cal,
		ledger:  lg,
		index:   index,
		pending: pending,
	}
}

// addIndexedReservation books a 90-minute reservation for u1 two days out
// (100% refund window) with a matching index entry.
func (f *cancelFixture) addIndexedReservation(id string) models.Reservation {
	start := time.Date(2026, 9, 12, 14, 0, 0, 0, time.UTC)
	res := models.Reservation{
		ID:          id,
		Summary:     "Board games",
		Description: booking.BuildDescription("g1", "u1", "tx-orig", "15.00 TOK"),
		Start:       start,
		End:         start.Add(90 * time.Minute),
	}
	f.cal.add("cal-1", res)
	f.index.entries[id] = models.BookingIndexEntry{
		ReservationID: id,
		CalendarID:    "cal-1",
		RoomSlug:      "main-hall",
		GuildID:       "g1",
		OwnerID:       "u1",
		Token:         "TOK",
		PriceAmount:   "1500",
		PaymentRef:    "tx-orig",
		CreatedAt:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	return res
}

func TestListCandidatesFromIndex(t *testing.T) {
	f := newCancelFixture()
	f.addIndexedReservation("res-1")

	// A stranger's reservation on the same calendar is not offered.
	other := time.Date(2026, 9, 13, 10, 0, 0, 0, time.UTC)
	f.cal.add("cal-1", models.Reservation{ID: "res-2", Summary: "Other", Start: other, End: other.Add(time.Hour)})
	f.index.entries["res-2"] = models.BookingIndexEntry{
		ReservationID: "res-2", CalendarID: "cal-1", RoomSlug: "main-hall",
		GuildID: "g1", OwnerID: "u2", Token: "TOK",
	}

	candidates, err := f.service.ListCandidates(context.Background(), "g1", "u1")
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Reservation.ID != "res-1" || c.RoomSlug != "main-hall" || c.Token != "TOK" {
		t.Errorf("candidate = %s/%s/%s, want res-1/main-hall/TOK", c.Reservation.ID, c.RoomSlug, c.Token)
	}
	// Priced from the room's current rate, not the stored amount.
	if c.PriceAmount.Cmp(big.NewInt(1500)) != 0 {
		t.Errorf("price = %s, want 1500 (90 min at 1000/h)", c.PriceAmount)
	}
}

func TestListCandidatesMarkerFallback(t *testing.T) {
	f := newCancelFixture()
	// Reservation predates the index: attribution comes from the marker.
	start := time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC)
	f.cal.add("cal-1", models.Reservation{
		ID:          "res-legacy",
		Summary:     "Old booking",
		Description: booking.BuildDescription("g1", "u1", "tx-legacy", "10.00 TOK"),
		Start:       start,
		End:         start.Add(time.Hour),
	})

	candidates, err := f.service.ListCandidates(context.Background(), "g1", "u1")
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].Token != "TOK" {
		t.Errorf("fallback token = %s, want the first accepted token TOK", candidates[0].Token)
	}

	// The same marker does not attribute to another user.
	candidates, err = f.service.ListCandidates(context.Background(), "g1", "u2")
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates for a non-owner, want 0", len(candidates))
	}
}

func TestSelectPreviewPercent(t *testing.T) {
	f := newCancelFixture()
	f.addIndexedReservation("res-1") // starts 2026-09-12 14:00, 50h out
	ctx := context.Background()

	preview, err := f.service.Select(ctx, "g1", "u1", "res-1")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if preview.Percent != 100 {
		t.Errorf("percent = %d, want 100 for a start 50h away", preview.Percent)
	}
	if !strings.HasPrefix(preview.Refund, "15.00") {
		t.Errorf("refund = %q, want display of the full 15.00 TOK", preview.Refund)
	}

	// Same reservation inside the 24h window previews a half refund.
	f.service.Now = func() time.Time { return time.Date(2026, 9, 12, 4, 0, 0, 0, time.UTC) }
	preview, err = f.service.Select(ctx, "g1", "u1", "res-1")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if preview.Percent != 50 {
		t.Errorf("percent = %d, want 50 for a start 10h away", preview.Percent)
	}
	if !strings.HasPrefix(preview.Refund, "7.50") {
		t.Errorf("refund = %q, want display of 7.50 TOK", preview.Refund)
	}
}

func TestSelectUnknownReservation(t *testing.T) {
	f := newCancelFixture()
	_, err := f.service.Select(context.Background(), "g1", "u1", "res-missing")
	var flowErr *FlowError
	if !errors.As(err, &flowErr) || flowErr.Code != "reservationGone" {
		t.Fatalf("err = %v, want reservationGone flow error", err)
	}
}

func TestConfirmSettlesCancellation(t *testing.T) {
	f := newCancelFixture()
	f.addIndexedReservation("res-1")
	f.ledger.addAddress("u1", "TOK", "addr-1")
	ctx := context.Background()

	if _, err := f.service.Select(ctx, "g1", "u1", "res-1"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	result, err := f.service.Confirm(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if result.Percent != 100 || result.RefundRef == "" || result.CreditSkipped {
		t.Errorf("result = %+v, want a fresh full refund with a credit ref", result)
	}
	if got := f.ledger.balanceOf("TOK", "addr-1"); got.Cmp(big.NewInt(1500)) != 0 {
		t.Errorf("refunded balance = %s, want 1500", got)
	}
	if f.cal.has("cal-1", "res-1") {
		t.Error("reservation should be deleted after a settled cancellation")
	}
	entry := f.index.entries["res-1"]
	if !entry.Refunded || entry.RefundRef != result.RefundRef {
		t.Errorf("index entry = %+v, want refunded with ref %s", entry, result.RefundRef)
	}
	if _, err := f.pending.Get(ctx, "g1", "u1"); !errors.Is(err, ErrNoPendingSelection) {
		t.Error("pending selection should be cleared after confirm")
	}
}

func TestConfirmWithoutSelection(t *testing.T) {
	f := newCancelFixture()
	_, err := f.service.Confirm(context.Background(), "g1", "u1")
	if !errors.Is(err, ErrNoPendingSelection) {
		t.Fatalf("err = %v, want ErrNoPendingSelection", err)
	}
}

func TestConfirmCreditFailureKeepsReservation(t *testing.T) {
	f := newCancelFixture()
	f.addIndexedReservation("res-1")
	f.ledger.addAddress("u1", "TOK", "addr-1")
	f.ledger.failCredit = true
	ctx := context.Background()

	if _, err := f.service.Select(ctx, "g1", "u1", "res-1"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	_, err := f.service.Confirm(ctx, "g1", "u1")
	var refundErr *RefundFailedError
	if !errors.As(err, &refundErr) {
		t.Fatalf("err = %v, want RefundFailedError", err)
	}
	if !f.cal.has("cal-1", "res-1") {
		t.Error("reservation must be kept when the refund credit fails")
	}
	// The refund mark is reverted so a retry attempts the credit again.
	if f.index.entries["res-1"].Refunded {
		t.Error("refund mark should be reverted after a failed credit")
	}

	// A retry after the ledger recovers settles normally.
	f.ledger.failCredit = false
	result, err := f.service.Confirm(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("retry Confirm: %v", err)
	}
	if result.CreditSkipped {
		t.Error("retry should issue the credit, not skip it")
	}
	if got := f.ledger.balanceOf("TOK", "addr-1"); got.Cmp(big.NewInt(1500)) != 0 {
		t.Errorf("refunded balance = %s, want 1500", got)
	}
}

func TestConfirmReplayAfterDeleteFailure(t *testing.T) {
	f := newCancelFixture()
	f.addIndexedReservation("res-1")
	f.ledger.addAddress("u1", "TOK", "addr-1")
	f.cal.failDelete = true
	ctx := context.Background()

	if _, err := f.service.Select(ctx, "g1", "u1", "res-1"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := f.service.Confirm(ctx, "g1", "u1"); err == nil {
		t.Fatal("Confirm should fail when the deletion fails")
	}
	// The credit went through before the deletion failed.
	if got := f.ledger.balanceOf("TOK", "addr-1"); got.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("balance after first attempt = %s, want 1500", got)
	}

	// The replay must not credit a second time.
	f.cal.failDelete = false
	if _, err := f.service.Select(ctx, "g1", "u1", "res-1"); err != nil {
		t.Fatalf("re-Select: %v", err)
	}
	result, err := f.service.Confirm(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("replay Confirm: %v", err)
	}
	if !result.CreditSkipped {
		t.Error("replay should skip the already-issued credit")
	}
	if f.ledger.credits != 1 {
		t.Errorf("ledger issued %d credits, want exactly 1", f.ledger.credits)
	}
	if got := f.ledger.balanceOf("TOK", "addr-1"); got.Cmp(big.NewInt(1500)) != 0 {
		t.Errorf("balance after replay = %s, want still 1500", got)
	}
	if f.cal.has("cal-1", "res-1") {
		t.Error("replay should complete the deletion")
	}
}

package cancellation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"commonroom/database/repository/bookingindex"
	"commonroom/models"
	"commonroom/services/ledger"
)

type fakeCatalog struct {
	rooms  []models.Resource
	tokens []models.Token
}

func (f *fakeCatalog) Rooms() []models.Resource { return f.rooms }

func (f *fakeCatalog) BySlug(slug string) (*models.Resource, error) {
	for i := range f.rooms {
		if f.rooms[i].Slug == slug {
			return &f.rooms[i], nil
		}
	}
	return nil, fmt.Errorf("unknown room %q", slug)
}

func (f *fakeCatalog) Tokens() []models.Token { return f.tokens }

func (f *fakeCatalog) TokenBySymbol(symbol string) (*models.Token, error) {
	for i := range f.tokens {
		if f.tokens[i].Symbol == symbol {
			return &f.tokens[i], nil
		}
	}
	return nil, fmt.Errorf("unknown token %q", symbol)
}

type fakeCalendar struct {
	mu           sync.Mutex
	reservations map[string][]models.Reservation
	failDelete   bool
	deletes      int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{reservations: make(map[string][]models.Reservation)}
}

func (f *fakeCalendar) add(calendarID string, res models.Reservation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reservations[calendarID] = append(f.reservations[calendarID], res)
}

func (f *fakeCalendar) has(calendarID, reservationID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, res := range f.reservations[calendarID] {
		if res.ID == reservationID {
			return true
		}
	}
	return false
}

func (f *fakeCalendar) ListReservations(_ context.Context, calendarID string, from, to time.Time) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	window := models.Interval{Start: from, End: to}
	var out []models.Reservation
	for _, res := range f.reservations[calendarID] {
		if window.Overlaps(res.Interval()) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (f *fakeCalendar) CreateReservation(_ context.Context, _ string, _ models.ReservationDraft) (*models.Reservation, error) {
	return nil, errors.New("not used in cancellation tests")
}

func (f *fakeCalendar) DeleteReservation(_ context.Context, calendarID, reservationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errors.New("calendar unavailable")
	}
	list := f.reservations[calendarID]
	for i, res := range list {
		if res.ID == reservationID {
			f.reservations[calendarID] = append(list[:i], list[i+1:]...)
			f.deletes++
			return nil
		}
	}
	return fmt.Errorf("reservation %s not found", reservationID)
}

type fakeLedger struct {
	mu        sync.Mutex
	addresses map[string]string
	balances  map[string]*big.Int
	entries   map[string]string
	credits   int

	failCredit bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		addresses: make(map[string]string),
		balances:  make(map[string]*big.Int),
		entries:   make(map[string]string),
	}
}

func (f *fakeLedger) addAddress(userID, token, address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addresses[userID+"/"+token] = address
	f.balances[token+"/"+address] = big.NewInt(0)
}

func (f *fakeLedger) balanceOf(token, address string) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[token+"/"+address]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

func (f *fakeLedger) ResolveSettlementAddress(_ context.Context, userID, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	address, ok := f.addresses[userID+"/"+token]
	if !ok {
		return "", ledger.ErrNoSettlementAddress
	}
	return address, nil
}

func (f *fakeLedger) GetBalance(_ context.Context, _, token, address string) (*big.Int, error) {
	return f.balanceOf(token, address), nil
}

func (f *fakeLedger) Debit(_ context.Context, _, _, _ string, _ *big.Int, _ string) (string, error) {
	return "", errors.New("not used in cancellation tests")
}

func (f *fakeLedger) Credit(_ context.Context, _, token, address string, amount *big.Int, idemKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCredit {
		return "", errors.New("ledger unavailable")
	}
	if ref, ok := f.entries[idemKey]; ok {
		return ref, nil
	}
	key := token + "/" + address
	if _, ok := f.balances[key]; !ok {
		f.balances[key] = big.NewInt(0)
	}
	f.balances[key].Add(f.balances[key], amount)
	f.credits++
	ref := fmt.Sprintf("credit-%d", f.credits)
	f.entries[idemKey] = ref
	return ref, nil
}

type fakeIndexRepo struct {
	mu      sync.Mutex
	entries map[string]models.BookingIndexEntry
}

func newFakeIndexRepo() *fakeIndexRepo {
	return &fakeIndexRepo{entries: make(map[string]models.BookingIndexEntry)}
}

func (f *fakeIndexRepo) Insert(_ context.Context, entry models.BookingIndexEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.ReservationID] = entry
	return nil
}

func (f *fakeIndexRepo) GetByReservationID(_ context.Context, reservationID string) (*models.BookingIndexEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[reservationID]
	if !ok {
		return nil, bookingindex.ErrNotFound
	}
	copied := entry
	return &copied, nil
}

func (f *fakeIndexRepo) ListByOwner(_ context.Context, guildID, ownerID string) ([]models.BookingIndexEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BookingIndexEntry
	for _, entry := range f.entries {
		if entry.GuildID == guildID && entry.OwnerID == ownerID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeIndexRepo) MarkRefunded(_ context.Context, reservationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[reservationID]
	if !ok || entry.Refunded {
		return false, nil
	}
	entry.Refunded = true
	entry.RefundedAt = time.Now()
	f.entries[reservationID] = entry
	return true, nil
}

func (f *fakeIndexRepo) UnmarkRefunded(_ context.Context, reservationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[reservationID]
	if !ok {
		return nil
	}
	entry.Refunded = false
	entry.RefundedAt = time.Time{}
	f.entries[reservationID] = entry
	return nil
}

func (f *fakeIndexRepo) SetRefundRef(_ context.Context, reservationID, refundRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[reservationID]
	if !ok {
		return nil
	}
	entry.RefundRef = refundRef
	f.entries[reservationID] = entry
	return nil
}

type memoryPendingStore struct {
	mu      sync.Mutex
	pending map[string]PendingSelection
}

func newMemoryPendingStore() *memoryPendingStore {
	return &memoryPendingStore{pending: make(map[string]PendingSelection)}
}

func (s *memoryPendingStore) Put(_ context.Context, sel PendingSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[sel.GuildID+":"+sel.UserID] = sel
	return nil
}

func (s *memoryPendingStore) Get(_ context.Context, guildID, userID string) (*PendingSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.pending[guildID+":"+userID]
	if !ok {
		return nil, ErrNoPendingSelection
	}
	copied := sel
	return &copied, nil
}

func (s *memoryPendingStore) Delete(_ context.Context, guildID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, guildID+":"+userID)
	return nil
}

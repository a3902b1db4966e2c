package booking

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"commonroom/database/repository/bookingindex"
	"commonroom/models"
	"commonroom/services/calendar"
	"commonroom/services/ledger"
)

// --- session store ---

type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.BookingSession
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]models.BookingSession)}
}

func (s *memorySessionStore) Get(_ context.Context, guildID, userID string) (*models.BookingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[guildID+":"+userID]
	if !ok {
		return nil, ErrSessionExpired
	}
	copied := session
	return &copied, nil
}

func (s *memorySessionStore) Save(_ context.Context, session *models.BookingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.GuildID+":"+session.UserID] = *session
	return nil
}

func (s *memorySessionStore) Delete(_ context.Context, guildID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, guildID+":"+userID)
	return nil
}

// --- calendar ---

type fakeCalendar struct {
	mu           sync.Mutex
	reservations map[string][]models.Reservation
	nextID       int

	// sneakIn injects a reservation right before the next create, to
	// simulate a booker winning the race after the payment.
	sneakIn *models.Reservation

	// failCreate makes the next create fail without a conflict, like a
	// calendar outage after the payment.
	failCreate bool
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{reservations: make(map[string][]models.Reservation)}
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

func (f *fakeCalendar) CreateReservation(_ context.Context, calendarID string, draft models.ReservationDraft) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil, errors.New("calendar unavailable")
	}
	if f.sneakIn != nil {
		f.reservations[calendarID] = append(f.reservations[calendarID], *f.sneakIn)
		f.sneakIn = nil
	}
	candidate := models.Interval{Start: draft.Start, End: draft.End}
	for _, existing := range f.reservations[calendarID] {
		if candidate.Overlaps(existing.Interval()) {
			return nil, &calendar.ConflictError{Conflicting: existing}
		}
	}
	f.nextID++
	created := models.Reservation{
		ID:          fmt.Sprintf("res-%d", f.nextID),
		Summary:     draft.Summary,
		Description: draft.Description,
		Start:       draft.Start,
		End:         draft.End,
		TimeZone:    draft.TimeZone,
	}
	f.reservations[calendarID] = append(f.reservations[calendarID], created)
	return &created, nil
}

func (f *fakeCalendar) DeleteReservation(_ context.Context, calendarID, reservationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.reservations[calendarID]
	for i, res := range list {
		if res.ID == reservationID {
			f.reservations[calendarID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("reservation %s not found", reservationID)
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

func (f *fakeCalendar) add(calendarID string, res models.Reservation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reservations[calendarID] = append(f.reservations[calendarID], res)
}

// --- ledger ---

type fakeLedger struct {
	mu        sync.Mutex
	addresses map[string]string   // "user/token" -> address
	balances  map[string]*big.Int // "token/address" -> balance
	entries   map[string]string   // idempotency key -> txRef
	debits    []string
	credits   []string

	failDebit  bool
	failCredit bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		addresses: make(map[string]string),
		balances:  make(map[string]*big.Int),
		entries:   make(map[string]string),
	}
}

func (f *fakeLedger) fund(userID, token, address string, balance *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addresses[userID+"/"+token] = address
	f.balances[token+"/"+address] = new(big.Int).Set(balance)
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

func (f *fakeLedger) Debit(_ context.Context, _, token, address string, amount *big.Int, idemKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDebit {
		return "", errors.New("ledger unavailable")
	}
	if ref, ok := f.entries[idemKey]; ok {
		return ref, nil
	}
	key := token + "/" + address
	balance, ok := f.balances[key]
	if !ok || balance.Cmp(amount) < 0 {
		return "", ledger.ErrInsufficientFunds
	}
	balance.Sub(balance, amount)
	ref := fmt.Sprintf("debit-%d", len(f.debits)+1)
	f.debits = append(f.debits, ref)
	f.entries[idemKey] = ref
	return ref, nil
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
	ref := fmt.Sprintf("credit-%d", len(f.credits)+1)
	f.credits = append(f.credits, ref)
	f.entries[idemKey] = ref
	return ref, nil
}

// --- booking index ---

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

// --- holds ---

type noopHolds struct{}

func (noopHolds) Acquire(context.Context, string, models.Interval) (func(), error) {
	return func() {}, nil
}

type takenHolds struct{}

func (takenHolds) Acquire(context.Context, string, models.Interval) (func(), error) {
	return nil, ErrIntervalHeld
}

// --- compensator ---

type fakeCompensator struct {
	mu    sync.Mutex
	tasks []CompensationTask
}

func (f *fakeCompensator) EnqueueCredit(_ context.Context, task CompensationTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return nil
}

// --- catalog ---

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

// Package memory is an in-process record store for development and tests.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"freight/internal/domain"
	"freight/internal/lock"
	"freight/internal/repository"
)

// Store keeps every entity in maps guarded by one RWMutex. Units of work
// buffer their writes and apply them in one step on commit, and
// GetForUpdate holds a per-row lock until the unit of work ends.
type Store struct {
	mu   sync.RWMutex
	seq  uint64
	rows *lock.Arena

	loads       table[domain.Load]
	history     table[domain.StatusHistoryEntry]
	drivers     table[domain.Driver]
	trucks      table[domain.Truck]
	trailers    table[domain.Trailer]
	users       table[domain.User]
	settings    table[domain.OrganizationSettings]
	settlements table[domain.Settlement]
	entries     table[domain.LedgerEntry]
	advances    table[domain.Advance]

	// Error injection
	LoadUpdateError    error
	HistoryAppendError error
	UpdateTotalsError  error
	ListEntriesError   error
	ListAdvancesError  error
	EntryCreateError   error

	// Counters for verification
	LoadUpdateCalls    int32
	HistoryAppendCalls int32
	UpdateTotalsCalls  int32
	Commits            int32
	Rollbacks          int32
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		rows:        lock.NewArena(),
		loads:       make(table[domain.Load]),
		history:     make(table[domain.StatusHistoryEntry]),
		drivers:     make(table[domain.Driver]),
		trucks:      make(table[domain.Truck]),
		trailers:    make(table[domain.Trailer]),
		users:       make(table[domain.User]),
		settings:    make(table[domain.OrganizationSettings]),
		settlements: make(table[domain.Settlement]),
		entries:     make(table[domain.LedgerEntry]),
		advances:    make(table[domain.Advance]),
	}
}

func (s *Store) nextSeq() uint64 {
	return atomic.AddUint64(&s.seq, 1)
}

// txState is the buffered state of one unit of work.
type txState struct {
	loads       *pending[domain.Load]
	history     *pending[domain.StatusHistoryEntry]
	settlements *pending[domain.Settlement]
	entries     *pending[domain.LedgerEntry]
	advances    *pending[domain.Advance]

	held    map[string]bool
	unlocks []func()
}

func newTxState() *txState {
	return &txState{
		loads:       newPending[domain.Load](),
		history:     newPending[domain.StatusHistoryEntry](),
		settlements: newPending[domain.Settlement](),
		entries:     newPending[domain.LedgerEntry](),
		advances:    newPending[domain.Advance](),
		held:        make(map[string]bool),
	}
}

func (tx *txState) release() {
	for i := len(tx.unlocks) - 1; i >= 0; i-- {
		tx.unlocks[i]()
	}
	tx.unlocks = nil
}

// lockRow takes the row lock for key once per unit of work.
func (s *Store) lockRow(ctx context.Context, tx *txState, key string) error {
	if tx == nil || tx.held[key] {
		return nil
	}
	unlock, err := s.rows.Lock(ctx, key)
	if err != nil {
		return err
	}
	tx.held[key] = true
	tx.unlocks = append(tx.unlocks, unlock)
	return nil
}

// Repositories returns repositories that write straight to the store.
func (s *Store) Repositories() repository.Repositories {
	return s.repositories(nil)
}

func (s *Store) repositories(tx *txState) repository.Repositories {
	return repository.Repositories{
		Loads:       &loadRepo{s: s, tx: tx},
		History:     &historyRepo{s: s, tx: tx},
		Drivers:     &driverRepo{s: s},
		Trucks:      &truckRepo{s: s},
		Trailers:    &trailerRepo{s: s},
		Users:       &userRepo{s: s},
		Settings:    &settingsRepo{s: s},
		Settlements: &settlementRepo{s: s, tx: tx},
		Entries:     &entryRepo{s: s, tx: tx},
		Advances:    &advanceRepo{s: s, tx: tx},
	}
}

// WithinTx runs fn against buffered repositories and applies the buffered
// writes only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	tx := newTxState()
	defer tx.release()

	if err := fn(ctx, s.repositories(tx)); err != nil {
		atomic.AddInt32(&s.Rollbacks, 1)
		return err
	}

	s.mu.Lock()
	tx.loads.apply(s.loads)
	tx.history.apply(s.history)
	tx.settlements.apply(s.settlements)
	tx.entries.apply(s.entries)
	tx.advances.apply(s.advances)
	s.mu.Unlock()

	atomic.AddInt32(&s.Commits, 1)
	return nil
}

// ──────────────────────────────────────────────
// SEEDING
// ──────────────────────────────────────────────

// AddLoad stores a load as-is.
func (s *Store) AddLoad(load *domain.Load) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads[load.ID] = row[domain.Load]{v: load.Clone(), seq: s.nextSeq()}
}

// AddDocument attaches a document of type t to a stored load.
func (s *Store) AddDocument(loadID string, t domain.DocumentType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.loads[loadID]
	if !ok {
		return
	}
	l := r.v.Clone()
	l.Documents = append(l.Documents, t)
	s.loads[loadID] = row[domain.Load]{v: l, seq: r.seq}
}

// AddDriver stores a driver.
func (s *Store) AddDriver(driver *domain.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[driver.ID] = row[domain.Driver]{v: clonePtr(driver), seq: s.nextSeq()}
}

// AddTruck stores a truck.
func (s *Store) AddTruck(truck *domain.Truck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trucks[truck.ID] = row[domain.Truck]{v: clonePtr(truck), seq: s.nextSeq()}
}

// AddTrailer stores a trailer.
func (s *Store) AddTrailer(trailer *domain.Trailer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trailers[trailer.ID] = row[domain.Trailer]{v: clonePtr(trailer), seq: s.nextSeq()}
}

// AddUser stores a user.
func (s *Store) AddUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = row[domain.User]{v: clonePtr(user), seq: s.nextSeq()}
}

// SetSettings stores the settings of an organization.
func (s *Store) SetSettings(settings *domain.OrganizationSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.OrganizationID] = row[domain.OrganizationSettings]{v: clonePtr(settings), seq: s.nextSeq()}
}

// AddSettlement stores a settlement.
func (s *Store) AddSettlement(settlement *domain.Settlement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settlements[settlement.ID] = row[domain.Settlement]{v: clonePtr(settlement), seq: s.nextSeq()}
}

// AddEntry stores a ledger entry without touching settlement totals.
func (s *Store) AddEntry(entry *domain.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = row[domain.LedgerEntry]{v: clonePtr(entry), seq: s.nextSeq()}
}

// AddAdvance stores an advance without touching settlement totals.
func (s *Store) AddAdvance(advance *domain.Advance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advances[advance.ID] = row[domain.Advance]{v: clonePtr(advance), seq: s.nextSeq()}
}

// Load returns the committed load by ID (for test assertions).
func (s *Store) Load(id string) *domain.Load {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.loads[id]
	if !ok {
		return nil
	}
	return r.v.Clone()
}

// Settlement returns the committed settlement by ID (for test assertions).
func (s *Store) Settlement(id string) *domain.Settlement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.settlements[id]
	if !ok {
		return nil
	}
	return clonePtr(r.v)
}

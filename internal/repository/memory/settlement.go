package memory

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"freight/internal/domain"
	"freight/internal/repository"
)

type settlementRepo struct {
	s  *Store
	tx *txState
}

func (r *settlementRepo) pending() *pending[domain.Settlement] {
	if r.tx == nil {
		return nil
	}
	return r.tx.settlements
}

func (r *settlementRepo) GetByID(ctx context.Context, orgID, id string) (*domain.Settlement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := lookup(r.s.settlements, r.pending(), id)
	if !ok || rec.v.OrganizationID != orgID {
		return nil, repository.ErrNotFound
	}
	return clonePtr(rec.v), nil
}

func (r *settlementRepo) GetForUpdate(ctx context.Context, orgID, id string) (*domain.Settlement, error) {
	if err := r.s.lockRow(ctx, r.tx, "settlements/"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, orgID, id)
}

func (r *settlementRepo) UpdateTotals(ctx context.Context, id string, deductions, netPay decimal.Decimal) error {
	atomic.AddInt32(&r.s.UpdateTotalsCalls, 1)
	if r.s.UpdateTotalsError != nil {
		return r.s.UpdateTotalsError
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := lookup(r.s.settlements, r.pending(), id)
	if !ok {
		return repository.ErrNotFound
	}
	updated := clonePtr(existing.v)
	updated.Deductions = deductions
	updated.NetPay = netPay
	rec := row[domain.Settlement]{v: updated, seq: existing.seq}
	if p := r.pending(); p != nil {
		p.put[id] = rec
		return nil
	}
	r.s.settlements[id] = rec
	return nil
}

type entryRepo struct {
	s  *Store
	tx *txState
}

func (r *entryRepo) pending() *pending[domain.LedgerEntry] {
	if r.tx == nil {
		return nil
	}
	return r.tx.entries
}

func (r *entryRepo) write(id string, rec row[domain.LedgerEntry]) {
	if p := r.pending(); p != nil {
		p.put[id] = rec
		return
	}
	r.s.entries[id] = rec
}

func (r *entryRepo) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	if r.s.EntryCreateError != nil {
		return r.s.EntryCreateError
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.write(entry.ID, row[domain.LedgerEntry]{v: clonePtr(entry), seq: r.s.nextSeq()})
	return nil
}

func (r *entryRepo) GetByID(ctx context.Context, settlementID, id string) (*domain.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := lookup(r.s.entries, r.pending(), id)
	if !ok || rec.v.SettlementID != settlementID {
		return nil, repository.ErrNotFound
	}
	return clonePtr(rec.v), nil
}

func (r *entryRepo) Update(ctx context.Context, entry *domain.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := lookup(r.s.entries, r.pending(), entry.ID)
	if !ok {
		return repository.ErrNotFound
	}
	r.write(entry.ID, row[domain.LedgerEntry]{v: clonePtr(entry), seq: existing.seq})
	return nil
}

func (r *entryRepo) Delete(ctx context.Context, settlementID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := lookup(r.s.entries, r.pending(), id)
	if !ok || existing.v.SettlementID != settlementID {
		return repository.ErrNotFound
	}
	if p := r.pending(); p != nil {
		delete(p.put, id)
		p.del[id] = true
		return nil
	}
	delete(r.s.entries, id)
	return nil
}

func (r *entryRepo) ListBySettlement(ctx context.Context, settlementID string, category domain.EntryCategory) ([]*domain.LedgerEntry, error) {
	if r.s.ListEntriesError != nil {
		return nil, r.s.ListEntriesError
	}
	r.s.mu.RLock()
	rows := scan(r.s.entries, r.pending())
	r.s.mu.RUnlock()

	var matched []row[domain.LedgerEntry]
	for _, rec := range rows {
		if rec.v.SettlementID == settlementID && rec.v.Category == category {
			matched = append(matched, rec)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.v.CreatedAt.Equal(b.v.CreatedAt) {
			return a.v.CreatedAt.After(b.v.CreatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]*domain.LedgerEntry, 0, len(matched))
	for _, rec := range matched {
		result = append(result, clonePtr(rec.v))
	}
	return result, nil
}

type advanceRepo struct {
	s  *Store
	tx *txState
}

func (r *advanceRepo) pending() *pending[domain.Advance] {
	if r.tx == nil {
		return nil
	}
	return r.tx.advances
}

func (r *advanceRepo) Create(ctx context.Context, advance *domain.Advance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec := row[domain.Advance]{v: clonePtr(advance), seq: r.s.nextSeq()}
	if p := r.pending(); p != nil {
		p.put[advance.ID] = rec
		return nil
	}
	r.s.advances[advance.ID] = rec
	return nil
}

func (r *advanceRepo) Delete(ctx context.Context, settlementID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := lookup(r.s.advances, r.pending(), id)
	if !ok || existing.v.SettlementID != settlementID {
		return repository.ErrNotFound
	}
	if p := r.pending(); p != nil {
		delete(p.put, id)
		p.del[id] = true
		return nil
	}
	delete(r.s.advances, id)
	return nil
}

func (r *advanceRepo) ListBySettlement(ctx context.Context, settlementID string) ([]*domain.Advance, error) {
	if r.s.ListAdvancesError != nil {
		return nil, r.s.ListAdvancesError
	}
	r.s.mu.RLock()
	rows := scan(r.s.advances, r.pending())
	r.s.mu.RUnlock()

	var result []*domain.Advance
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].v.SettlementID == settlementID {
			result = append(result, clonePtr(rows[i].v))
		}
	}
	return result, nil
}

// Ensure interfaces are satisfied.
var (
	_ repository.Store                 = (*Store)(nil)
	_ repository.LoadRepository        = (*loadRepo)(nil)
	_ repository.HistoryRepository     = (*historyRepo)(nil)
	_ repository.SettlementRepository  = (*settlementRepo)(nil)
	_ repository.LedgerEntryRepository = (*entryRepo)(nil)
	_ repository.AdvanceRepository     = (*advanceRepo)(nil)
)

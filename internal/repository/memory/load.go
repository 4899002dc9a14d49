package memory

import (
	"context"
	"sync/atomic"
	"time"

	"freight/internal/domain"
	"freight/internal/repository"
)

type loadRepo struct {
	s  *Store
	tx *txState
}

func (r *loadRepo) pending() *pending[domain.Load] {
	if r.tx == nil {
		return nil
	}
	return r.tx.loads
}

func (r *loadRepo) Create(ctx context.Context, load *domain.Load) error {
	rec := row[domain.Load]{v: load.Clone(), seq: r.s.nextSeq()}
	if p := r.pending(); p != nil {
		p.put[load.ID] = rec
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.loads[load.ID] = rec
	return nil
}

func (r *loadRepo) GetByID(ctx context.Context, orgID, id string) (*domain.Load, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := lookup(r.s.loads, r.pending(), id)
	if !ok || rec.v.OrganizationID != orgID || !rec.v.DeletedAt.IsZero() {
		return nil, repository.ErrNotFound
	}
	return rec.v.Clone(), nil
}

func (r *loadRepo) GetForUpdate(ctx context.Context, orgID, id string) (*domain.Load, error) {
	if err := r.s.lockRow(ctx, r.tx, "loads/"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, orgID, id)
}

func (r *loadRepo) Update(ctx context.Context, load *domain.Load) error {
	atomic.AddInt32(&r.s.LoadUpdateCalls, 1)
	if r.s.LoadUpdateError != nil {
		return r.s.LoadUpdateError
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := lookup(r.s.loads, r.pending(), load.ID)
	if !ok {
		return repository.ErrNotFound
	}
	updated := row[domain.Load]{v: load.Clone(), seq: existing.seq}
	if p := r.pending(); p != nil {
		p.put[load.ID] = updated
		return nil
	}
	r.s.loads[load.ID] = updated
	return nil
}

func (r *loadRepo) SoftDelete(ctx context.Context, orgID, id string, at time.Time) error {
	load, err := r.GetByID(ctx, orgID, id)
	if err != nil {
		return err
	}
	load.DeletedAt = at
	load.UpdatedAt = at
	return r.Update(ctx, load)
}

type historyRepo struct {
	s  *Store
	tx *txState
}

func (r *historyRepo) Append(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	atomic.AddInt32(&r.s.HistoryAppendCalls, 1)
	if r.s.HistoryAppendError != nil {
		return r.s.HistoryAppendError
	}
	rec := row[domain.StatusHistoryEntry]{v: clonePtr(entry), seq: r.s.nextSeq()}
	if r.tx != nil {
		r.tx.history.put[entry.ID] = rec
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.history[entry.ID] = rec
	return nil
}

func (r *historyRepo) ListByLoad(ctx context.Context, loadID string) ([]*domain.StatusHistoryEntry, error) {
	var p *pending[domain.StatusHistoryEntry]
	if r.tx != nil {
		p = r.tx.history
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []*domain.StatusHistoryEntry
	for _, rec := range scan(r.s.history, p) {
		if rec.v.LoadID == loadID {
			result = append(result, clonePtr(rec.v))
		}
	}
	return result, nil
}

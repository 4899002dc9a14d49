package memory

import (
	"context"

	"freight/internal/domain"
	"freight/internal/repository"
)

type driverRepo struct{ s *Store }

func (r *driverRepo) GetByID(ctx context.Context, orgID, id string) (*domain.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.drivers[id]
	if !ok || rec.v.OrganizationID != orgID || !rec.v.Active() {
		return nil, repository.ErrNotFound
	}
	return clonePtr(rec.v), nil
}

type truckRepo struct{ s *Store }

func (r *truckRepo) GetByID(ctx context.Context, orgID, id string) (*domain.Truck, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.trucks[id]
	if !ok || rec.v.OrganizationID != orgID || !rec.v.DeletedAt.IsZero() {
		return nil, repository.ErrNotFound
	}
	return clonePtr(rec.v), nil
}

type trailerRepo struct{ s *Store }

func (r *trailerRepo) GetByID(ctx context.Context, orgID, id string) (*domain.Trailer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.trailers[id]
	if !ok || rec.v.OrganizationID != orgID || !rec.v.DeletedAt.IsZero() {
		return nil, repository.ErrNotFound
	}
	return clonePtr(rec.v), nil
}

type userRepo struct{ s *Store }

func (r *userRepo) GetByID(ctx context.Context, orgID, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.users[id]
	if !ok || rec.v.OrganizationID != orgID || !rec.v.Active || !rec.v.DeletedAt.IsZero() {
		return nil, repository.ErrNotFound
	}
	return clonePtr(rec.v), nil
}

type settingsRepo struct{ s *Store }

func (r *settingsRepo) Get(ctx context.Context, orgID string) (*domain.OrganizationSettings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.settings[orgID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePtr(rec.v), nil
}

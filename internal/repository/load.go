package repository

import (
	"context"
	"time"

	"freight/internal/domain"
)

// LoadRepository defines the persistence operations for loads.
type LoadRepository interface {
	// Create persists a new load.
	Create(ctx context.Context, load *domain.Load) error

	// GetByID retrieves a non-deleted load owned by orgID, with its document types.
	GetByID(ctx context.Context, orgID, id string) (*domain.Load, error)

	// GetForUpdate is GetByID that also locks the row until the unit of work ends.
	GetForUpdate(ctx context.Context, orgID, id string) (*domain.Load, error)

	// Update writes every mutable field of the load.
	Update(ctx context.Context, load *domain.Load) error

	// SoftDelete marks the load deleted at the given time.
	SoftDelete(ctx context.Context, orgID, id string, at time.Time) error
}

// HistoryRepository is the append-only status history of loads.
type HistoryRepository interface {
	// Append records a new history entry. Entries are never updated or removed.
	Append(ctx context.Context, entry *domain.StatusHistoryEntry) error

	// ListByLoad returns the history of a load, oldest first.
	ListByLoad(ctx context.Context, loadID string) ([]*domain.StatusHistoryEntry, error)
}

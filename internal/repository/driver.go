package repository

import (
	"context"

	"freight/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// GetByID retrieves a non-deleted driver owned by orgID.
	GetByID(ctx context.Context, orgID, id string) (*domain.Driver, error)
}

// TruckRepository defines the persistence operations for trucks.
type TruckRepository interface {
	// GetByID retrieves a non-deleted truck owned by orgID.
	GetByID(ctx context.Context, orgID, id string) (*domain.Truck, error)
}

// TrailerRepository defines the persistence operations for trailers.
type TrailerRepository interface {
	// GetByID retrieves a non-deleted trailer owned by orgID.
	GetByID(ctx context.Context, orgID, id string) (*domain.Trailer, error)
}

// UserRepository defines the persistence operations for users.
type UserRepository interface {
	// GetByID retrieves an active, non-deleted user owned by orgID.
	GetByID(ctx context.Context, orgID, id string) (*domain.User, error)
}

// SettingsRepository defines the persistence operations for organization settings.
type SettingsRepository interface {
	// Get returns the settings of an organization, or ErrNotFound when none are stored.
	Get(ctx context.Context, orgID string) (*domain.OrganizationSettings, error)
}

package postgres

import (
	"context"

	"freight/internal/domain"
	"freight/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// GetByID retrieves an active, non-deleted driver owned by orgID.
func (r *DriverRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Driver, error) {
	query := `
		SELECT id, organization_id, COALESCE(name, ''), COALESCE(phone, ''), status,
			COALESCE(pay_type, ''), pay_rate, telegram_chat_id
		FROM drivers
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL AND status <> 'INACTIVE'
	`

	var driver domain.Driver
	err := r.q.QueryRowContext(ctx, query, id, orgID).Scan(
		&driver.ID,
		&driver.OrganizationID,
		&driver.Name,
		&driver.Phone,
		&driver.Status,
		&driver.PayType,
		&driver.PayRate,
		&driver.TelegramChatID,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return &driver, nil
}

// TruckRepository is a PostgreSQL implementation of repository.TruckRepository.
type TruckRepository struct {
	q Querier
}

// GetByID retrieves a non-deleted truck owned by orgID.
func (r *TruckRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Truck, error) {
	query := `
		SELECT id, organization_id, unit_number, average_mpg
		FROM trucks WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`

	var truck domain.Truck
	err := r.q.QueryRowContext(ctx, query, id, orgID).Scan(
		&truck.ID,
		&truck.OrganizationID,
		&truck.UnitNumber,
		&truck.AverageMPG,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return &truck, nil
}

// TrailerRepository is a PostgreSQL implementation of repository.TrailerRepository.
type TrailerRepository struct {
	q Querier
}

// GetByID retrieves a non-deleted trailer owned by orgID.
func (r *TrailerRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Trailer, error) {
	query := `
		SELECT id, organization_id, unit_number
		FROM trailers WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`

	var trailer domain.Trailer
	err := r.q.QueryRowContext(ctx, query, id, orgID).Scan(
		&trailer.ID,
		&trailer.OrganizationID,
		&trailer.UnitNumber,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return &trailer, nil
}

// UserRepository is a PostgreSQL implementation of repository.UserRepository.
type UserRepository struct {
	q Querier
}

// GetByID retrieves an active, non-deleted user owned by orgID.
func (r *UserRepository) GetByID(ctx context.Context, orgID, id string) (*domain.User, error) {
	query := `
		SELECT id, organization_id, COALESCE(name, ''), email, role, active, created_at
		FROM users
		WHERE id = $1 AND organization_id = $2 AND active AND deleted_at IS NULL
	`

	var user domain.User
	err := r.q.QueryRowContext(ctx, query, id, orgID).Scan(
		&user.ID,
		&user.OrganizationID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Active,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return &user, nil
}

// SettingsRepository is a PostgreSQL implementation of repository.SettingsRepository.
type SettingsRepository struct {
	q Querier
}

// Get returns the settings of an organization.
func (r *SettingsRepository) Get(ctx context.Context, orgID string) (*domain.OrganizationSettings, error) {
	query := `
		SELECT organization_id, validation_mode, require_pod, average_mpg,
			fuel_price, maintenance_cpm, fixed_cost_per_day
		FROM organization_settings WHERE organization_id = $1
	`

	var settings domain.OrganizationSettings
	err := r.q.QueryRowContext(ctx, query, orgID).Scan(
		&settings.OrganizationID,
		&settings.ValidationMode,
		&settings.RequirePOD,
		&settings.AverageMPG,
		&settings.FuelPrice,
		&settings.MaintenanceCPM,
		&settings.FixedCostPerDay,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return &settings, nil
}

// Ensure interfaces are satisfied.
var (
	_ repository.DriverRepository   = (*DriverRepository)(nil)
	_ repository.TruckRepository    = (*TruckRepository)(nil)
	_ repository.TrailerRepository  = (*TrailerRepository)(nil)
	_ repository.UserRepository     = (*UserRepository)(nil)
	_ repository.SettingsRepository = (*SettingsRepository)(nil)
)

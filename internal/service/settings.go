package service

import (
	"context"
	"errors"

	"freight/internal/domain"
	"freight/internal/repository"
)

// SettingsSource returns organization settings.
type SettingsSource interface {
	OrganizationSettings(ctx context.Context, orgID string) (*domain.OrganizationSettings, error)
}

// StoreSettings reads settings from the record store. Organizations without
// stored settings get DefaultSettings.
type StoreSettings struct {
	Repo repository.SettingsRepository
}

// OrganizationSettings implements SettingsSource.
func (s StoreSettings) OrganizationSettings(ctx context.Context, orgID string) (*domain.OrganizationSettings, error) {
	settings, err := s.Repo.Get(ctx, orgID)
	if errors.Is(err, repository.ErrNotFound) {
		return DefaultSettings(orgID), nil
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// DefaultSettings are flexible validation with no cost assumptions.
func DefaultSettings(orgID string) *domain.OrganizationSettings {
	return &domain.OrganizationSettings{
		OrganizationID: orgID,
		ValidationMode: domain.ValidationModeFlexible,
	}
}

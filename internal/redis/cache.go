package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"freight/internal/domain"
	"freight/internal/service"
)

// Key prefixes
const (
	settingsCachePrefix = "cache:settings:"
)

// cachedSettings is the cached form of domain.OrganizationSettings.
type cachedSettings struct {
	OrganizationID  string              `json:"organization_id"`
	ValidationMode  string              `json:"validation_mode"`
	RequirePOD      bool                `json:"require_pod"`
	AverageMPG      decimal.NullDecimal `json:"average_mpg"`
	FuelPrice       decimal.Decimal     `json:"fuel_price"`
	MaintenanceCPM  decimal.Decimal     `json:"maintenance_cpm"`
	FixedCostPerDay decimal.Decimal     `json:"fixed_cost_per_day"`
}

// CacheStore caches organization settings in Redis in front of another source.
// Redis failures fall through to the next source.
type CacheStore struct {
	client *redis.Client
	next   service.SettingsSource
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client, next service.SettingsSource, ttl time.Duration) *CacheStore {
	return &CacheStore{client: client, next: next, ttl: ttl}
}

// OrganizationSettings implements service.SettingsSource.
func (s *CacheStore) OrganizationSettings(ctx context.Context, orgID string) (*domain.OrganizationSettings, error) {
	key := settingsCachePrefix + orgID

	data, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedSettings
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached.toDomain(), nil
		}
	case err != redis.Nil:
		log.Printf("[CACHE] settings lookup for %s failed: %v", orgID, err)
	}

	settings, err := s.next.OrganizationSettings(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(fromDomain(settings)); err == nil {
		if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
			log.Printf("[CACHE] settings store for %s failed: %v", orgID, err)
		}
	}
	return settings, nil
}

// Invalidate removes the cached settings of an organization.
func (s *CacheStore) Invalidate(ctx context.Context, orgID string) error {
	return s.client.Del(ctx, settingsCachePrefix+orgID).Err()
}

func fromDomain(s *domain.OrganizationSettings) cachedSettings {
	return cachedSettings{
		OrganizationID:  s.OrganizationID,
		ValidationMode:  string(s.ValidationMode),
		RequirePOD:      s.RequirePOD,
		AverageMPG:      s.AverageMPG,
		FuelPrice:       s.FuelPrice,
		MaintenanceCPM:  s.MaintenanceCPM,
		FixedCostPerDay: s.FixedCostPerDay,
	}
}

func (c cachedSettings) toDomain() *domain.OrganizationSettings {
	return &domain.OrganizationSettings{
		OrganizationID:  c.OrganizationID,
		ValidationMode:  domain.ValidationMode(c.ValidationMode),
		RequirePOD:      c.RequirePOD,
		AverageMPG:      c.AverageMPG,
		FuelPrice:       c.FuelPrice,
		MaintenanceCPM:  c.MaintenanceCPM,
		FixedCostPerDay: c.FixedCostPerDay,
	}
}

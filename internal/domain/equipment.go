package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Truck is a power unit owned by an organization.
type Truck struct {
	ID             string
	OrganizationID string
	UnitNumber     string
	AverageMPG     decimal.NullDecimal
	DeletedAt      time.Time
}

// Trailer is a trailer owned by an organization.
type Trailer struct {
	ID             string
	OrganizationID string
	UnitNumber     string
	DeletedAt      time.Time
}

package domain

import "github.com/shopspring/decimal"

// ValidationMode controls how strictly loads are checked before settlement.
type ValidationMode string

const (
	ValidationModeFlexible ValidationMode = "FLEXIBLE"
	ValidationModeStrict   ValidationMode = "STRICT"
)

// OrganizationSettings holds per-organization policy and cost assumptions.
type OrganizationSettings struct {
	OrganizationID  string
	ValidationMode  ValidationMode
	RequirePOD      bool
	AverageMPG      decimal.NullDecimal
	FuelPrice       decimal.Decimal
	MaintenanceCPM  decimal.Decimal
	FixedCostPerDay decimal.Decimal
}

// StrictDelivery reports whether BOL and POD are required to mark a load delivered.
func (s *OrganizationSettings) StrictDelivery() bool {
	return s.ValidationMode == ValidationModeStrict && s.RequirePOD
}

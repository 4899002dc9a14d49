package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus represents the state of a driver pay period.
type SettlementStatus string

const (
	SettlementStatusPending  SettlementStatus = "PENDING"
	SettlementStatusApproved SettlementStatus = "APPROVED"
	SettlementStatusPaid     SettlementStatus = "PAID"
)

// Settlement is a driver's statement for one pay period.
// Deductions and NetPay are derived from the ledger entries and advances.
type Settlement struct {
	ID               string
	OrganizationID   string
	DriverID         string
	SettlementNumber string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	Status           SettlementStatus
	GrossPay         decimal.Decimal
	Deductions       decimal.Decimal
	NetPay           decimal.Decimal
	UpdatedAt        time.Time
}

// EntryCategory tags a ledger entry as money taken from or added to a settlement.
type EntryCategory string

const (
	EntryCategoryDeduction EntryCategory = "deduction"
	EntryCategoryAddition  EntryCategory = "addition"
)

// Valid reports whether c is a known category.
func (c EntryCategory) Valid() bool {
	return c == EntryCategoryDeduction || c == EntryCategoryAddition
}

// DeductionType classifies a ledger entry.
type DeductionType string

const (
	DeductionTypeFuelAdvance DeductionType = "FUEL_ADVANCE"
	DeductionTypeCashAdvance DeductionType = "CASH_ADVANCE"
	DeductionTypeInsurance   DeductionType = "INSURANCE"
	DeductionTypeEscrow      DeductionType = "ESCROW"
	DeductionTypeMaintenance DeductionType = "MAINTENANCE"
	DeductionTypePermits     DeductionType = "PERMITS"
	DeductionTypeOther       DeductionType = "OTHER"
)

// Valid reports whether t is a known deduction type.
func (t DeductionType) Valid() bool {
	switch t {
	case DeductionTypeFuelAdvance, DeductionTypeCashAdvance, DeductionTypeInsurance,
		DeductionTypeEscrow, DeductionTypeMaintenance, DeductionTypePermits, DeductionTypeOther:
		return true
	}
	return false
}

// LedgerEntry is a single deduction or addition line on a settlement.
type LedgerEntry struct {
	ID              string
	SettlementID    string
	Category        EntryCategory
	DeductionType   DeductionType
	Description     string
	Amount          decimal.Decimal
	FuelEntryID     string
	DriverAdvanceID string
	LoadExpenseID   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Advance is cash paid to a driver ahead of settlement.
type Advance struct {
	ID           string
	SettlementID string
	DriverID     string
	Amount       decimal.Decimal
	Notes        string
	CreatedAt    time.Time
}

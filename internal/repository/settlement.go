package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"freight/internal/domain"
)

// SettlementRepository defines the persistence operations for settlements.
type SettlementRepository interface {
	// GetByID retrieves a settlement owned by orgID.
	GetByID(ctx context.Context, orgID, id string) (*domain.Settlement, error)

	// GetForUpdate is GetByID that also locks the row until the unit of work ends.
	GetForUpdate(ctx context.Context, orgID, id string) (*domain.Settlement, error)

	// UpdateTotals writes the derived deductions and net pay of a settlement.
	UpdateTotals(ctx context.Context, id string, deductions, netPay decimal.Decimal) error
}

// LedgerEntryRepository defines the persistence operations for settlement ledger entries.
type LedgerEntryRepository interface {
	// Create persists a new entry.
	Create(ctx context.Context, entry *domain.LedgerEntry) error

	// GetByID retrieves an entry that belongs to settlementID.
	GetByID(ctx context.Context, settlementID, id string) (*domain.LedgerEntry, error)

	// Update writes the mutable fields of an entry.
	Update(ctx context.Context, entry *domain.LedgerEntry) error

	// Delete removes an entry that belongs to settlementID.
	Delete(ctx context.Context, settlementID, id string) error

	// ListBySettlement returns the entries of one category, newest first.
	ListBySettlement(ctx context.Context, settlementID string, category domain.EntryCategory) ([]*domain.LedgerEntry, error)
}

// AdvanceRepository defines the persistence operations for driver advances.
type AdvanceRepository interface {
	// Create persists a new advance.
	Create(ctx context.Context, advance *domain.Advance) error

	// Delete removes an advance that belongs to settlementID.
	Delete(ctx context.Context, settlementID, id string) error

	// ListBySettlement returns the advances of a settlement, newest first.
	ListBySettlement(ctx context.Context, settlementID string) ([]*domain.Advance, error)
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"freight/internal/domain"
	"freight/internal/repository"
)

// SettlementRepository is a PostgreSQL implementation of repository.SettlementRepository.
type SettlementRepository struct {
	q Querier
}

const settlementColumns = `id, organization_id, driver_id, settlement_number, period_start, period_end,
	status, gross_pay, deductions, net_pay, updated_at`

// GetByID retrieves a settlement owned by orgID.
func (r *SettlementRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE id = $1 AND organization_id = $2`
	return r.get(ctx, query, id, orgID)
}

// GetForUpdate retrieves a settlement and locks its row until the transaction ends.
func (r *SettlementRepository) GetForUpdate(ctx context.Context, orgID, id string) (*domain.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE id = $1 AND organization_id = $2 FOR UPDATE`
	return r.get(ctx, query, id, orgID)
}

func (r *SettlementRepository) get(ctx context.Context, query string, args ...any) (*domain.Settlement, error) {
	var s domain.Settlement
	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&s.ID,
		&s.OrganizationID,
		&s.DriverID,
		&s.SettlementNumber,
		&s.PeriodStart,
		&s.PeriodEnd,
		&s.Status,
		&s.GrossPay,
		&s.Deductions,
		&s.NetPay,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

// UpdateTotals writes the derived deductions and net pay of a settlement.
func (r *SettlementRepository) UpdateTotals(ctx context.Context, id string, deductions, netPay decimal.Decimal) error {
	query := `UPDATE settlements SET deductions = $2, net_pay = $3, updated_at = NOW() WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id, deductions, netPay)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// LedgerEntryRepository is a PostgreSQL implementation of repository.LedgerEntryRepository.
type LedgerEntryRepository struct {
	q Querier
}

// Create persists a new entry.
func (r *LedgerEntryRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO settlement_deductions (
			id, settlement_id, category, deduction_type, description, amount,
			fuel_entry_id, driver_advance_id, load_expense_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		entry.ID,
		entry.SettlementID,
		entry.Category,
		entry.DeductionType,
		entry.Description,
		entry.Amount,
		nullString(entry.FuelEntryID),
		nullString(entry.DriverAdvanceID),
		nullString(entry.LoadExpenseID),
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	return mapError(err)
}

// GetByID retrieves an entry that belongs to settlementID.
func (r *LedgerEntryRepository) GetByID(ctx context.Context, settlementID, id string) (*domain.LedgerEntry, error) {
	query := `
		SELECT id, settlement_id, category, deduction_type, description, amount,
			fuel_entry_id, driver_advance_id, load_expense_id, created_at, updated_at
		FROM settlement_deductions WHERE id = $1 AND settlement_id = $2
	`
	return scanEntry(r.q.QueryRowContext(ctx, query, id, settlementID))
}

// Update writes the mutable fields of an entry.
func (r *LedgerEntryRepository) Update(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		UPDATE settlement_deductions SET
			category = $3, deduction_type = $4, description = $5, amount = $6,
			fuel_entry_id = $7, driver_advance_id = $8, load_expense_id = $9, updated_at = $10
		WHERE id = $1 AND settlement_id = $2
	`

	result, err := r.q.ExecContext(ctx, query,
		entry.ID,
		entry.SettlementID,
		entry.Category,
		entry.DeductionType,
		entry.Description,
		entry.Amount,
		nullString(entry.FuelEntryID),
		nullString(entry.DriverAdvanceID),
		nullString(entry.LoadExpenseID),
		entry.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// Delete removes an entry that belongs to settlementID.
func (r *LedgerEntryRepository) Delete(ctx context.Context, settlementID, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM settlement_deductions WHERE id = $1 AND settlement_id = $2`, id, settlementID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListBySettlement returns the entries of one category, newest first.
func (r *LedgerEntryRepository) ListBySettlement(ctx context.Context, settlementID string, category domain.EntryCategory) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT id, settlement_id, category, deduction_type, description, amount,
			fuel_entry_id, driver_advance_id, load_expense_id, created_at, updated_at
		FROM settlement_deductions
		WHERE settlement_id = $1 AND category = $2
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.q.QueryContext(ctx, query, settlementID, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	var fuelEntryID, driverAdvanceID, loadExpenseID sql.NullString
	err := row.Scan(
		&entry.ID,
		&entry.SettlementID,
		&entry.Category,
		&entry.DeductionType,
		&entry.Description,
		&entry.Amount,
		&fuelEntryID,
		&driverAdvanceID,
		&loadExpenseID,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	entry.FuelEntryID = fuelEntryID.String
	entry.DriverAdvanceID = driverAdvanceID.String
	entry.LoadExpenseID = loadExpenseID.String
	return &entry, nil
}

// AdvanceRepository is a PostgreSQL implementation of repository.AdvanceRepository.
type AdvanceRepository struct {
	q Querier
}

// Create persists a new advance.
func (r *AdvanceRepository) Create(ctx context.Context, advance *domain.Advance) error {
	query := `
		INSERT INTO driver_advances (id, settlement_id, driver_id, amount, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		advance.ID,
		advance.SettlementID,
		advance.DriverID,
		advance.Amount,
		advance.Notes,
		advance.CreatedAt,
	)
	return mapError(err)
}

// Delete removes an advance that belongs to settlementID.
func (r *AdvanceRepository) Delete(ctx context.Context, settlementID, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM driver_advances WHERE id = $1 AND settlement_id = $2`, id, settlementID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListBySettlement returns the advances of a settlement, newest first.
func (r *AdvanceRepository) ListBySettlement(ctx context.Context, settlementID string) ([]*domain.Advance, error) {
	query := `
		SELECT id, settlement_id, driver_id, amount, notes, created_at
		FROM driver_advances WHERE settlement_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.q.QueryContext(ctx, query, settlementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var advances []*domain.Advance
	for rows.Next() {
		var advance domain.Advance
		if err := rows.Scan(
			&advance.ID,
			&advance.SettlementID,
			&advance.DriverID,
			&advance.Amount,
			&advance.Notes,
			&advance.CreatedAt,
		); err != nil {
			return nil, err
		}
		advances = append(advances, &advance)
	}
	return advances, rows.Err()
}

// Ensure interfaces are satisfied.
var (
	_ repository.SettlementRepository  = (*SettlementRepository)(nil)
	_ repository.LedgerEntryRepository = (*LedgerEntryRepository)(nil)
	_ repository.AdvanceRepository     = (*AdvanceRepository)(nil)
)

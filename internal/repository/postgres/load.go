package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"freight/internal/domain"
	"freight/internal/repository"
)

// LoadRepository is a PostgreSQL implementation of repository.LoadRepository.
type LoadRepository struct {
	q Querier
}

const loadColumns = `
	id, organization_id, load_number, customer_id, status, dispatch_status,
	driver_id, co_driver_id, truck_id, trailer_id, dispatcher_id,
	revenue, total_miles, loaded_miles, empty_miles, total_expenses, driver_pay, net_profit,
	revenue_per_mile, estimated_fuel_cost, estimated_maint_cost, estimated_fixed_cost, estimated_op_cost,
	ready_for_settlement, accounting_sync_status, delivered_at, notes, created_at, updated_at,
	ARRAY(SELECT d.document_type FROM load_documents d WHERE d.load_id = loads.id AND d.deleted_at IS NULL)`

// Create persists a new load.
func (r *LoadRepository) Create(ctx context.Context, load *domain.Load) error {
	query := `
		INSERT INTO loads (
			id, organization_id, load_number, customer_id, status, dispatch_status,
			driver_id, co_driver_id, truck_id, trailer_id, dispatcher_id,
			revenue, total_miles, loaded_miles, empty_miles, total_expenses, driver_pay, net_profit,
			revenue_per_mile, notes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := r.q.ExecContext(ctx, query,
		load.ID,
		load.OrganizationID,
		load.LoadNumber,
		nullString(load.CustomerID),
		load.Status,
		nullString(string(load.DispatchStatus)),
		nullString(load.DriverID),
		nullString(load.CoDriverID),
		nullString(load.TruckID),
		nullString(load.TrailerID),
		nullString(load.DispatcherID),
		load.Revenue,
		load.TotalMiles,
		load.LoadedMiles,
		load.EmptyMiles,
		load.TotalExpenses,
		load.DriverPay,
		load.NetProfit,
		load.RevenuePerMile,
		load.Notes,
		load.CreatedAt,
		load.UpdatedAt,
	)
	return mapError(err)
}

// GetByID retrieves a non-deleted load owned by orgID.
func (r *LoadRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Load, error) {
	query := `SELECT ` + loadColumns + `
		FROM loads WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL`
	return r.get(ctx, query, id, orgID)
}

// GetForUpdate retrieves a load and locks its row until the transaction ends.
func (r *LoadRepository) GetForUpdate(ctx context.Context, orgID, id string) (*domain.Load, error) {
	query := `SELECT ` + loadColumns + `
		FROM loads WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
		FOR UPDATE`
	return r.get(ctx, query, id, orgID)
}

func (r *LoadRepository) get(ctx context.Context, query string, args ...any) (*domain.Load, error) {
	var load domain.Load
	var customerID, dispatchStatus, accountingSync sql.NullString
	var driverID, coDriverID, truckID, trailerID, dispatcherID sql.NullString
	var deliveredAt sql.NullTime
	var documents pq.StringArray

	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&load.ID,
		&load.OrganizationID,
		&load.LoadNumber,
		&customerID,
		&load.Status,
		&dispatchStatus,
		&driverID,
		&coDriverID,
		&truckID,
		&trailerID,
		&dispatcherID,
		&load.Revenue,
		&load.TotalMiles,
		&load.LoadedMiles,
		&load.EmptyMiles,
		&load.TotalExpenses,
		&load.DriverPay,
		&load.NetProfit,
		&load.RevenuePerMile,
		&load.EstimatedFuelCost,
		&load.EstimatedMaintCost,
		&load.EstimatedFixedCost,
		&load.EstimatedOpCost,
		&load.ReadyForSettlement,
		&accountingSync,
		&deliveredAt,
		&load.Notes,
		&load.CreatedAt,
		&load.UpdatedAt,
		&documents,
	)
	if err != nil {
		return nil, mapError(err)
	}

	load.CustomerID = customerID.String
	load.DispatchStatus = domain.DispatchStatus(dispatchStatus.String)
	load.AccountingSyncStatus = domain.AccountingSyncStatus(accountingSync.String)
	load.DriverID = driverID.String
	load.CoDriverID = coDriverID.String
	load.TruckID = truckID.String
	load.TrailerID = trailerID.String
	load.DispatcherID = dispatcherID.String
	if deliveredAt.Valid {
		load.DeliveredAt = deliveredAt.Time
	}
	for _, d := range documents {
		load.Documents = append(load.Documents, domain.DocumentType(d))
	}

	return &load, nil
}

// Update writes every mutable field of the load.
func (r *LoadRepository) Update(ctx context.Context, load *domain.Load) error {
	query := `
		UPDATE loads SET
			customer_id = $2, status = $3, dispatch_status = $4,
			driver_id = $5, co_driver_id = $6, truck_id = $7, trailer_id = $8, dispatcher_id = $9,
			revenue = $10, total_miles = $11, loaded_miles = $12, empty_miles = $13,
			total_expenses = $14, driver_pay = $15, net_profit = $16, revenue_per_mile = $17,
			estimated_fuel_cost = $18, estimated_maint_cost = $19, estimated_fixed_cost = $20, estimated_op_cost = $21,
			ready_for_settlement = $22, accounting_sync_status = $23, delivered_at = $24,
			notes = $25, updated_at = $26
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.q.ExecContext(ctx, query,
		load.ID,
		nullString(load.CustomerID),
		load.Status,
		nullString(string(load.DispatchStatus)),
		nullString(load.DriverID),
		nullString(load.CoDriverID),
		nullString(load.TruckID),
		nullString(load.TrailerID),
		nullString(load.DispatcherID),
		load.Revenue,
		load.TotalMiles,
		load.LoadedMiles,
		load.EmptyMiles,
		load.TotalExpenses,
		load.DriverPay,
		load.NetProfit,
		load.RevenuePerMile,
		load.EstimatedFuelCost,
		load.EstimatedMaintCost,
		load.EstimatedFixedCost,
		load.EstimatedOpCost,
		load.ReadyForSettlement,
		nullString(string(load.AccountingSyncStatus)),
		nullTime(load.DeliveredAt),
		load.Notes,
		load.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// SoftDelete marks the load deleted.
func (r *LoadRepository) SoftDelete(ctx context.Context, orgID, id string, at time.Time) error {
	query := `UPDATE loads SET deleted_at = $3, updated_at = $3 WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL`

	result, err := r.q.ExecContext(ctx, query, id, orgID, at)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// HistoryRepository is a PostgreSQL implementation of repository.HistoryRepository.
type HistoryRepository struct {
	q Querier
}

// Append records a status history entry.
func (r *HistoryRepository) Append(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	query := `
		INSERT INTO load_status_history (id, load_id, field, old_value, new_value, actor_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		entry.ID,
		entry.LoadID,
		entry.Field,
		nullString(entry.OldValue),
		nullString(entry.NewValue),
		nullString(entry.ActorID),
		entry.Note,
		entry.CreatedAt,
	)
	return mapError(err)
}

// ListByLoad returns the history of a load, oldest first.
func (r *HistoryRepository) ListByLoad(ctx context.Context, loadID string) ([]*domain.StatusHistoryEntry, error) {
	query := `
		SELECT id, load_id, field, old_value, new_value, actor_id, note, created_at
		FROM load_status_history WHERE load_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, loadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		var oldValue, newValue, actorID sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.LoadID,
			&entry.Field,
			&oldValue,
			&newValue,
			&actorID,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.OldValue = oldValue.String
		entry.NewValue = newValue.String
		entry.ActorID = actorID.String
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Ensure interfaces are satisfied.
var (
	_ repository.LoadRepository    = (*LoadRepository)(nil)
	_ repository.HistoryRepository = (*HistoryRepository)(nil)
)

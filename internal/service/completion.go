package service

import (
	"context"
	"log"
	"time"

	"freight/internal/domain"
	"freight/internal/repository"
)

// CompletionResult is the outcome of the completion workflow for one load.
type CompletionResult struct {
	Success bool
	Errors  []string
}

// CompletionWorkflow runs when a load reaches a completing status.
type CompletionWorkflow interface {
	HandleCompletion(ctx context.Context, orgID, loadID string) (*CompletionResult, error)
}

// LoadCompletionService prepares completed loads for settlement and accounting.
type LoadCompletionService struct {
	store repository.Store
	now   func() time.Time
}

// NewLoadCompletionService creates a new LoadCompletionService.
func NewLoadCompletionService(store repository.Store) *LoadCompletionService {
	return &LoadCompletionService{store: store, now: time.Now}
}

// HandleCompletion marks the load ready for settlement when it has a driver
// and flags it for accounting review when required data is missing.
// Missing data is reported in the result, not as an error.
func (s *LoadCompletionService) HandleCompletion(ctx context.Context, orgID, loadID string) (*CompletionResult, error) {
	result := &CompletionResult{Success: true}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		load, err := tx.Loads.GetForUpdate(ctx, orgID, loadID)
		if err != nil {
			return err
		}

		now := s.now()
		if load.DriverID != "" {
			load.ReadyForSettlement = true
			if load.DeliveredAt.IsZero() {
				load.DeliveredAt = now
			}
		}

		if missing := missingCompletionData(load); len(missing) > 0 {
			result.Success = false
			result.Errors = missing
			load.AccountingSyncStatus = domain.AccountingSyncRequiresReview
		} else if load.AccountingSyncStatus == "" {
			load.AccountingSyncStatus = domain.AccountingSyncPending
		}

		load.UpdatedAt = now
		return tx.Loads.Update(ctx, load)
	})
	if err != nil {
		return nil, err
	}

	if !result.Success {
		log.Printf("[LOAD] load %s completed with missing data: %v", loadID, result.Errors)
	}
	return result, nil
}

func missingCompletionData(load *domain.Load) []string {
	var missing []string
	if load.CustomerID == "" {
		missing = append(missing, "Load has no customer")
	}
	if load.DriverID == "" {
		missing = append(missing, "Load has no driver assigned")
	}
	if !load.Revenue.IsPositive() {
		missing = append(missing, "Load revenue must be greater than zero")
	}
	if !load.TotalMiles.IsPositive() {
		missing = append(missing, "Load total miles must be greater than zero")
	}
	return missing
}

// markReadyForSettlement is the best-effort fallback when the completion workflow fails.
func markReadyForSettlement(ctx context.Context, store repository.Store, orgID, loadID string, now time.Time) error {
	return store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		load, err := tx.Loads.GetForUpdate(ctx, orgID, loadID)
		if err != nil {
			return err
		}
		load.ReadyForSettlement = true
		if load.DeliveredAt.IsZero() {
			load.DeliveredAt = now
		}
		load.UpdatedAt = now
		return tx.Loads.Update(ctx, load)
	})
}

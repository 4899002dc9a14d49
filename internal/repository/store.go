package repository

import "context"

// Repositories groups the repositories that share one connection or transaction.
type Repositories struct {
	Loads       LoadRepository
	History     HistoryRepository
	Drivers     DriverRepository
	Trucks      TruckRepository
	Trailers    TrailerRepository
	Users       UserRepository
	Settings    SettingsRepository
	Settlements SettlementRepository
	Entries     LedgerEntryRepository
	Advances    AdvanceRepository
}

// Store is the record store used by the services.
type Store interface {
	// Repositories returns repositories that run outside any transaction.
	Repositories() Repositories

	// WithinTx runs fn in a single unit of work. If fn returns an error,
	// nothing fn wrote is kept.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}

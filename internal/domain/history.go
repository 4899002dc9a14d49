package domain

import "time"

// HistoryField names the load field a history entry records.
type HistoryField string

const (
	HistoryFieldStatus         HistoryField = "status"
	HistoryFieldDispatchStatus HistoryField = "dispatchStatus"
)

// StatusHistoryEntry is an immutable record of one status change on a load.
type StatusHistoryEntry struct {
	ID        string
	LoadID    string
	Field     HistoryField
	OldValue  string
	NewValue  string
	ActorID   string
	Note      string
	CreatedAt time.Time
}

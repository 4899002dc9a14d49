package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoadStatus represents the lifecycle state of a load.
type LoadStatus string

const (
	LoadStatusPending         LoadStatus = "PENDING"
	LoadStatusAssigned        LoadStatus = "ASSIGNED"
	LoadStatusEnRoutePickup   LoadStatus = "EN_ROUTE_PICKUP"
	LoadStatusAtPickup        LoadStatus = "AT_PICKUP"
	LoadStatusLoaded          LoadStatus = "LOADED"
	LoadStatusEnRouteDelivery LoadStatus = "EN_ROUTE_DELIVERY"
	LoadStatusAtDelivery      LoadStatus = "AT_DELIVERY"
	LoadStatusDelivered       LoadStatus = "DELIVERED"
	LoadStatusReadyToBill     LoadStatus = "READY_TO_BILL"
	LoadStatusBillingHold     LoadStatus = "BILLING_HOLD"
	LoadStatusInvoiced        LoadStatus = "INVOICED"
	LoadStatusPaid            LoadStatus = "PAID"
	LoadStatusCancelled       LoadStatus = "CANCELLED"
)

var loadStatuses = map[LoadStatus]struct{}{
	LoadStatusPending: {}, LoadStatusAssigned: {}, LoadStatusEnRoutePickup: {},
	LoadStatusAtPickup: {}, LoadStatusLoaded: {}, LoadStatusEnRouteDelivery: {},
	LoadStatusAtDelivery: {}, LoadStatusDelivered: {}, LoadStatusReadyToBill: {},
	LoadStatusBillingHold: {}, LoadStatusInvoiced: {}, LoadStatusPaid: {},
	LoadStatusCancelled: {},
}

// Valid reports whether s is a known load status.
func (s LoadStatus) Valid() bool {
	_, ok := loadStatuses[s]
	return ok
}

// Terminal reports whether no further status change is allowed out of s.
// Only a cancelled load is frozen; a paid load may still be reinvoiced or cancelled.
func (s LoadStatus) Terminal() bool {
	return s == LoadStatusCancelled
}

// Completes reports whether entering s hands the load to the completion workflow.
func (s LoadStatus) Completes() bool {
	switch s {
	case LoadStatusDelivered, LoadStatusInvoiced, LoadStatusPaid,
		LoadStatusReadyToBill, LoadStatusBillingHold:
		return true
	}
	return false
}

// DispatchStatus is the operational dispatch state, independent of LoadStatus.
type DispatchStatus string

const (
	DispatchStatusBooked            DispatchStatus = "BOOKED"
	DispatchStatusOnRouteToPickup   DispatchStatus = "ON_ROUTE_TO_PICKUP"
	DispatchStatusAtPickup          DispatchStatus = "AT_PICKUP"
	DispatchStatusLoaded            DispatchStatus = "LOADED"
	DispatchStatusOnRouteToDelivery DispatchStatus = "ON_ROUTE_TO_DELIVERY"
	DispatchStatusAtDelivery        DispatchStatus = "AT_DELIVERY"
	DispatchStatusDelivered         DispatchStatus = "DELIVERED"
	DispatchStatusPendingDispatch   DispatchStatus = "PENDING_DISPATCH"
	DispatchStatusDispatched        DispatchStatus = "DISPATCHED"
	DispatchStatusCancelled         DispatchStatus = "CANCELLED"
)

// Valid reports whether s is a known dispatch status.
func (s DispatchStatus) Valid() bool {
	switch s {
	case DispatchStatusBooked, DispatchStatusOnRouteToPickup, DispatchStatusAtPickup,
		DispatchStatusLoaded, DispatchStatusOnRouteToDelivery, DispatchStatusAtDelivery,
		DispatchStatusDelivered, DispatchStatusPendingDispatch, DispatchStatusDispatched,
		DispatchStatusCancelled:
		return true
	}
	return false
}

// DocumentType is the kind of a document attached to a load.
type DocumentType string

const (
	DocumentTypeBOL     DocumentType = "BOL"
	DocumentTypePOD     DocumentType = "POD"
	DocumentTypeRateCon DocumentType = "RATE_CONFIRMATION"
	DocumentTypeLumper  DocumentType = "LUMPER_RECEIPT"
	DocumentTypeOther   DocumentType = "OTHER"
)

// AccountingSyncStatus tracks whether a completed load needs review before export.
type AccountingSyncStatus string

const (
	AccountingSyncPending        AccountingSyncStatus = "PENDING"
	AccountingSyncRequiresReview AccountingSyncStatus = "REQUIRES_REVIEW"
	AccountingSyncSynced         AccountingSyncStatus = "SYNCED"
)

// Load represents a shipment tracked from creation to payment.
type Load struct {
	ID             string
	OrganizationID string
	LoadNumber     string
	CustomerID     string
	Status         LoadStatus
	DispatchStatus DispatchStatus // empty when not dispatched

	DriverID     string // empty means unassigned
	CoDriverID   string
	TruckID      string
	TrailerID    string
	DispatcherID string

	Revenue       decimal.Decimal
	TotalMiles    decimal.Decimal
	LoadedMiles   decimal.Decimal
	EmptyMiles    decimal.Decimal
	TotalExpenses decimal.Decimal
	DriverPay     decimal.Decimal
	NetProfit     decimal.Decimal

	RevenuePerMile decimal.NullDecimal // unset unless TotalMiles > 0

	EstimatedFuelCost  decimal.NullDecimal
	EstimatedMaintCost decimal.NullDecimal
	EstimatedFixedCost decimal.NullDecimal
	EstimatedOpCost    decimal.NullDecimal

	ReadyForSettlement   bool
	AccountingSyncStatus AccountingSyncStatus
	DeliveredAt          time.Time
	Notes                string

	// Documents holds the types of non-deleted attachments.
	Documents []DocumentType

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt time.Time
}

// HasDocument reports whether at least one attachment of type t exists.
func (l *Load) HasDocument(t DocumentType) bool {
	for _, d := range l.Documents {
		if d == t {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the load.
func (l *Load) Clone() *Load {
	c := *l
	c.Documents = append([]DocumentType(nil), l.Documents...)
	return &c
}

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"freight/internal/domain"
	"freight/internal/middleware"
	"freight/internal/service"
)

// LoadHandler handles HTTP requests for loads.
type LoadHandler struct {
	loadService *service.LoadService
}

// NewLoadHandler creates a new LoadHandler.
func NewLoadHandler(loadService *service.LoadService) *LoadHandler {
	return &LoadHandler{loadService: loadService}
}

// optionalString tells an omitted field apart from an explicit null.
// Null and "" both mean "clear".
type optionalString struct {
	Set   bool
	Value string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = ""
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o optionalString) ptr() *string {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

// UpdateLoadRequest is the HTTP request body for patching a load.
// driver_pay accepts a number, null (clear) or "auto" (recompute).
type UpdateLoadRequest struct {
	Status         *string          `json:"status"`
	DispatchStatus optionalString   `json:"dispatch_status"`
	DriverID       optionalString   `json:"driver_id"`
	CoDriverID     optionalString   `json:"co_driver_id"`
	TruckID        optionalString   `json:"truck_id"`
	TrailerID      optionalString   `json:"trailer_id"`
	DispatcherID   optionalString   `json:"dispatcher_id"`
	Revenue        *decimal.Decimal `json:"revenue"`
	TotalMiles     *decimal.Decimal `json:"total_miles"`
	LoadedMiles    *decimal.Decimal `json:"loaded_miles"`
	EmptyMiles     *decimal.Decimal `json:"empty_miles"`
	TotalExpenses  *decimal.Decimal `json:"total_expenses"`
	DriverPay      json.RawMessage  `json:"driver_pay"`
	Notes          *string          `json:"notes"`
}

func (r *UpdateLoadRequest) toPatch() (service.LoadPatch, bool) {
	patch := service.LoadPatch{
		DriverID:      r.DriverID.ptr(),
		CoDriverID:    r.CoDriverID.ptr(),
		TruckID:       r.TruckID.ptr(),
		TrailerID:     r.TrailerID.ptr(),
		DispatcherID:  r.DispatcherID.ptr(),
		Revenue:       r.Revenue,
		TotalMiles:    r.TotalMiles,
		LoadedMiles:   r.LoadedMiles,
		EmptyMiles:    r.EmptyMiles,
		TotalExpenses: r.TotalExpenses,
		Notes:         r.Notes,
	}
	if r.Status != nil {
		status := domain.LoadStatus(*r.Status)
		patch.Status = &status
	}
	if r.DispatchStatus.Set {
		ds := domain.DispatchStatus(r.DispatchStatus.Value)
		patch.DispatchStatus = &ds
	}

	switch raw := bytes.TrimSpace(r.DriverPay); {
	case len(raw) == 0:
		patch.DriverPay = service.KeepDriverPay()
	case bytes.Equal(raw, []byte("null")):
		patch.DriverPay = service.ClearDriverPay()
	case bytes.Equal(raw, []byte(`"auto"`)):
		patch.DriverPay = service.AutoComputeDriverPay()
	default:
		var amount decimal.Decimal
		if err := json.Unmarshal(raw, &amount); err != nil {
			return service.LoadPatch{}, false
		}
		patch.DriverPay = service.OverrideDriverPay(amount)
	}
	return patch, true
}

// LoadResponse is the HTTP representation of a load.
type LoadResponse struct {
	ID                   string              `json:"id"`
	LoadNumber           string              `json:"load_number"`
	CustomerID           string              `json:"customer_id,omitempty"`
	Status               string              `json:"status"`
	DispatchStatus       string              `json:"dispatch_status,omitempty"`
	DriverID             string              `json:"driver_id,omitempty"`
	CoDriverID           string              `json:"co_driver_id,omitempty"`
	TruckID              string              `json:"truck_id,omitempty"`
	TrailerID            string              `json:"trailer_id,omitempty"`
	DispatcherID         string              `json:"dispatcher_id,omitempty"`
	Revenue              decimal.Decimal     `json:"revenue"`
	TotalMiles           decimal.Decimal     `json:"total_miles"`
	LoadedMiles          decimal.Decimal     `json:"loaded_miles"`
	EmptyMiles           decimal.Decimal     `json:"empty_miles"`
	TotalExpenses        decimal.Decimal     `json:"total_expenses"`
	DriverPay            decimal.Decimal     `json:"driver_pay"`
	NetProfit            decimal.Decimal     `json:"net_profit"`
	RevenuePerMile       decimal.NullDecimal `json:"revenue_per_mile"`
	EstimatedFuelCost    decimal.NullDecimal `json:"estimated_fuel_cost"`
	EstimatedMaintCost   decimal.NullDecimal `json:"estimated_maint_cost"`
	EstimatedFixedCost   decimal.NullDecimal `json:"estimated_fixed_cost"`
	EstimatedOpCost      decimal.NullDecimal `json:"estimated_op_cost"`
	ReadyForSettlement   bool                `json:"ready_for_settlement"`
	AccountingSyncStatus string              `json:"accounting_sync_status,omitempty"`
	DeliveredAt          string              `json:"delivered_at,omitempty"`
	Notes                string              `json:"notes"`
	UpdatedAt            string              `json:"updated_at"`
}

// UpdateLoadResponse is the HTTP response for patching a load.
type UpdateLoadResponse struct {
	Load     LoadResponse `json:"load"`
	Warnings []string     `json:"warnings"`
}

// HistoryEntryResponse is the HTTP representation of a status history entry.
type HistoryEntryResponse struct {
	Field     string `json:"field"`
	OldValue  string `json:"old_value,omitempty"`
	NewValue  string `json:"new_value,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	Note      string `json:"note"`
	CreatedAt string `json:"created_at"`
}

// GetLoad handles GET /v1/loads/:id
func (h *LoadHandler) GetLoad(c *gin.Context) {
	load, err := h.loadService.GetLoad(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toLoadResponse(load))
}

// UpdateLoad handles PATCH /v1/loads/:id
func (h *LoadHandler) UpdateLoad(c *gin.Context) {
	var req UpdateLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	patch, ok := req.toPatch()
	if !ok {
		respondBadRequest(c, `driver_pay must be a number, null or "auto"`)
		return
	}

	result, err := h.loadService.UpdateLoad(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, UpdateLoadResponse{
		Load:     toLoadResponse(result.Load),
		Warnings: result.Warnings,
	})
}

// ListHistory handles GET /v1/loads/:id/history
func (h *LoadHandler) ListHistory(c *gin.Context) {
	entries, err := h.loadService.ListHistory(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, HistoryEntryResponse{
			Field:     string(e.Field),
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			ActorID:   e.ActorID,
			Note:      e.Note,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	respondJSON(c, http.StatusOK, response)
}

// DeleteLoad handles DELETE /v1/loads/:id
func (h *LoadHandler) DeleteLoad(c *gin.Context) {
	if err := h.loadService.DeleteLoad(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toLoadResponse(l *domain.Load) LoadResponse {
	resp := LoadResponse{
		ID:                   l.ID,
		LoadNumber:           l.LoadNumber,
		CustomerID:           l.CustomerID,
		Status:               string(l.Status),
		DispatchStatus:       string(l.DispatchStatus),
		DriverID:             l.DriverID,
		CoDriverID:           l.CoDriverID,
		TruckID:              l.TruckID,
		TrailerID:            l.TrailerID,
		DispatcherID:         l.DispatcherID,
		Revenue:              l.Revenue,
		TotalMiles:           l.TotalMiles,
		LoadedMiles:          l.LoadedMiles,
		EmptyMiles:           l.EmptyMiles,
		TotalExpenses:        l.TotalExpenses,
		DriverPay:            l.DriverPay,
		NetProfit:            l.NetProfit,
		RevenuePerMile:       l.RevenuePerMile,
		EstimatedFuelCost:    l.EstimatedFuelCost,
		EstimatedMaintCost:   l.EstimatedMaintCost,
		EstimatedFixedCost:   l.EstimatedFixedCost,
		EstimatedOpCost:      l.EstimatedOpCost,
		ReadyForSettlement:   l.ReadyForSettlement,
		AccountingSyncStatus: string(l.AccountingSyncStatus),
		Notes:                l.Notes,
		UpdatedAt:            l.UpdatedAt.Format(time.RFC3339),
	}
	if !l.DeliveredAt.IsZero() {
		resp.DeliveredAt = l.DeliveredAt.Format(time.RFC3339)
	}
	return resp
}

package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"freight/internal/domain"
	"freight/internal/export"
	"freight/internal/middleware"
	"freight/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SettlementHandler handles HTTP requests for settlement ledgers.
type SettlementHandler struct {
	settlementService *service.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementService *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService}
}

// CreateEntryRequest is the HTTP request body for adding a ledger entry.
type CreateEntryRequest struct {
	Category        string          `json:"category,omitempty"`       // deduction (default) or addition
	DeductionType   string          `json:"deduction_type,omitempty"` // OTHER by default
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	FuelEntryID     string          `json:"fuel_entry_id,omitempty"`
	DriverAdvanceID string          `json:"driver_advance_id,omitempty"`
	LoadExpenseID   string          `json:"load_expense_id,omitempty"`
}

// UpdateEntryRequest is the HTTP request body for changing a ledger entry.
// An empty or null link ID removes the link.
type UpdateEntryRequest struct {
	Category        *string          `json:"category"`
	DeductionType   *string          `json:"deduction_type"`
	Description     *string          `json:"description"`
	Amount          *decimal.Decimal `json:"amount"`
	FuelEntryID     optionalString   `json:"fuel_entry_id"`
	DriverAdvanceID optionalString   `json:"driver_advance_id"`
	LoadExpenseID   optionalString   `json:"load_expense_id"`
}

// CreateAdvanceRequest is the HTTP request body for recording an advance.
type CreateAdvanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes,omitempty"`
}

// SettlementResponse is the HTTP representation of a settlement's totals.
type SettlementResponse struct {
	ID               string          `json:"id"`
	SettlementNumber string          `json:"settlement_number"`
	DriverID         string          `json:"driver_id"`
	Status           string          `json:"status"`
	GrossPay         decimal.Decimal `json:"gross_pay"`
	Deductions       decimal.Decimal `json:"deductions"`
	NetPay           decimal.Decimal `json:"net_pay"`
}

// EntryResponse is the HTTP representation of a ledger entry.
type EntryResponse struct {
	ID              string          `json:"id"`
	Category        string          `json:"category"`
	DeductionType   string          `json:"deduction_type"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	FuelEntryID     string          `json:"fuel_entry_id,omitempty"`
	DriverAdvanceID string          `json:"driver_advance_id,omitempty"`
	LoadExpenseID   string          `json:"load_expense_id,omitempty"`
	CreatedAt       string          `json:"created_at"`
}

// AdvanceResponse is the HTTP representation of a driver advance.
type AdvanceResponse struct {
	ID        string          `json:"id"`
	DriverID  string          `json:"driver_id"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// GetSettlement handles GET /v1/settlements/:id
func (h *SettlementHandler) GetSettlement(c *gin.Context) {
	settlement, err := h.settlementService.GetSettlement(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toSettlementResponse(settlement))
}

// ListDeductions handles GET /v1/settlements/:id/deductions
func (h *SettlementHandler) ListDeductions(c *gin.Context) {
	entries, err := h.settlementService.ListDeductions(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, toEntryResponse(e))
	}
	respondJSON(c, http.StatusOK, response)
}

// CreateEntry handles POST /v1/settlements/:id/deductions
func (h *SettlementHandler) CreateEntry(c *gin.Context) {
	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	entry, err := h.settlementService.CreateEntry(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), service.EntryInput{
		Category:        domain.EntryCategory(req.Category),
		DeductionType:   domain.DeductionType(req.DeductionType),
		Description:     req.Description,
		Amount:          req.Amount,
		FuelEntryID:     req.FuelEntryID,
		DriverAdvanceID: req.DriverAdvanceID,
		LoadExpenseID:   req.LoadExpenseID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toEntryResponse(entry))
}

// UpdateEntry handles PATCH /v1/settlements/:id/deductions/:entryId
func (h *SettlementHandler) UpdateEntry(c *gin.Context) {
	var req UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	patch := service.EntryPatch{
		Description:     req.Description,
		Amount:          req.Amount,
		FuelEntryID:     req.FuelEntryID.ptr(),
		DriverAdvanceID: req.DriverAdvanceID.ptr(),
		LoadExpenseID:   req.LoadExpenseID.ptr(),
	}
	if req.Category != nil {
		category := domain.EntryCategory(*req.Category)
		patch.Category = &category
	}
	if req.DeductionType != nil {
		deductionType := domain.DeductionType(*req.DeductionType)
		patch.DeductionType = &deductionType
	}

	entry, err := h.settlementService.UpdateEntry(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), c.Param("entryId"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toEntryResponse(entry))
}

// DeleteEntry handles DELETE /v1/settlements/:id/deductions/:entryId
func (h *SettlementHandler) DeleteEntry(c *gin.Context) {
	settlement, err := h.settlementService.DeleteEntry(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), c.Param("entryId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toSettlementResponse(settlement))
}

// ListAdvances handles GET /v1/settlements/:id/advances
func (h *SettlementHandler) ListAdvances(c *gin.Context) {
	advances, err := h.settlementService.ListAdvances(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]AdvanceResponse, 0, len(advances))
	for _, a := range advances {
		response = append(response, toAdvanceResponse(a))
	}
	respondJSON(c, http.StatusOK, response)
}

// CreateAdvance handles POST /v1/settlements/:id/advances
func (h *SettlementHandler) CreateAdvance(c *gin.Context) {
	var req CreateAdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	advance, err := h.settlementService.CreateAdvance(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Amount, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toAdvanceResponse(advance))
}

// DeleteAdvance handles DELETE /v1/settlements/:id/advances/:advanceId
func (h *SettlementHandler) DeleteAdvance(c *gin.Context) {
	settlement, err := h.settlementService.DeleteAdvance(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), c.Param("advanceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toSettlementResponse(settlement))
}

// Recalculate handles POST /v1/settlements/:id/recalculate
func (h *SettlementHandler) Recalculate(c *gin.Context) {
	settlement, err := h.settlementService.Recalculate(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toSettlementResponse(settlement))
}

// ExportStatement handles GET /v1/settlements/:id/statement.xlsx
func (h *SettlementHandler) ExportStatement(c *gin.Context) {
	statement, err := h.settlementService.Statement(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	filename := statement.Settlement.SettlementNumber
	if filename == "" {
		filename = statement.Settlement.ID
	}
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="settlement-%s.xlsx"`, filename))
	c.Status(http.StatusOK)
	if err := export.WriteStatement(c.Writer, statement); err != nil {
		_ = c.Error(err)
	}
}

func toSettlementResponse(s *domain.Settlement) SettlementResponse {
	return SettlementResponse{
		ID:               s.ID,
		SettlementNumber: s.SettlementNumber,
		DriverID:         s.DriverID,
		Status:           string(s.Status),
		GrossPay:         s.GrossPay,
		Deductions:       s.Deductions,
		NetPay:           s.NetPay,
	}
}

func toEntryResponse(e *domain.LedgerEntry) EntryResponse {
	return EntryResponse{
		ID:              e.ID,
		Category:        string(e.Category),
		DeductionType:   string(e.DeductionType),
		Description:     e.Description,
		Amount:          e.Amount,
		FuelEntryID:     e.FuelEntryID,
		DriverAdvanceID: e.DriverAdvanceID,
		LoadExpenseID:   e.LoadExpenseID,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
}

func toAdvanceResponse(a *domain.Advance) AdvanceResponse {
	return AdvanceResponse{
		ID:        a.ID,
		DriverID:  a.DriverID,
		Amount:    a.Amount,
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

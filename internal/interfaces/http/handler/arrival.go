package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appinvoicing "github.com/erp/vendor-invoice/internal/application/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// ArrivalHandler exposes the uninvoiced-arrival workbench: listing, selection
// validation and the totals preview shown before an invoice is created.
type ArrivalHandler struct {
	BaseHandler
	arrivalService *appinvoicing.ArrivalService
}

// NewArrivalHandler creates a new ArrivalHandler
func NewArrivalHandler(arrivalService *appinvoicing.ArrivalService) *ArrivalHandler {
	return &ArrivalHandler{arrivalService: arrivalService}
}

// ListArrivalsRequest represents the uninvoiced-arrival listing filters
type ListArrivalsRequest struct {
	VendorCodes        []string `form:"vendor_code"`
	EntityCodes        []string `form:"entity_code"`
	VendorTypes        []string `form:"vendor_type" binding:"omitempty,dive,oneof=INTERNAL EXTERNAL"`
	Brands             []string `form:"brand"`
	ArrivalNoteNumbers []string `form:"arrival_note"`
	PONumbers          []string `form:"po_number"`
	ArrivedFrom        string   `form:"arrived_from" binding:"omitempty,datetime=2006-01-02"`
	ArrivedTo          string   `form:"arrived_to" binding:"omitempty,datetime=2006-01-02"`
	CreatedFrom        string   `form:"created_from" binding:"omitempty,datetime=2006-01-02"`
	CreatedTo          string   `form:"created_to" binding:"omitempty,datetime=2006-01-02"`
	Limit              int      `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset             int      `form:"offset" binding:"omitempty,min=0"`
}

// SelectionRequest represents a set of selected arrival lines
type SelectionRequest struct {
	ArrivalLineIDs []uuid.UUID `json:"arrival_line_ids" binding:"required"`
}

// TotalsPreviewRequest represents a totals preview for a selection
type TotalsPreviewRequest struct {
	ArrivalLineIDs []uuid.UUID `json:"arrival_line_ids" binding:"required"`
	Currency       string      `json:"currency" binding:"required,len=3"`
}

// List returns uninvoiced arrival lines with their reconciled remaining
// quantities, narrowed by the query filters.
func (h *ArrivalHandler) List(c *gin.Context) {
	var req ListArrivalsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := invoicing.ArrivalFilter{
		VendorCodes:        req.VendorCodes,
		EntityCodes:        req.EntityCodes,
		Brands:             req.Brands,
		ArrivalNoteNumbers: req.ArrivalNoteNumbers,
		PONumbers:          req.PONumbers,
		Limit:              req.Limit,
		Offset:             req.Offset,
	}
	for _, vt := range req.VendorTypes {
		filter.VendorTypes = append(filter.VendorTypes, invoicing.VendorType(vt))
	}
	if filter.Limit == 0 {
		filter.Limit = 100
	}
	filter.ArrivedFrom = parseDate(req.ArrivedFrom)
	filter.ArrivedTo = parseDate(req.ArrivedTo)
	filter.CreatedFrom = parseDate(req.CreatedFrom)
	filter.CreatedTo = parseDate(req.CreatedTo)

	lines, total, err := h.arrivalService.ListUninvoiced(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, lines, total, filter.Limit, filter.Offset)
}

// ValidateSelection checks a selection against the single-vendor,
// single-entity and quantity rules. Rule violations are reported in the
// response body, not as HTTP errors, so the client can render them inline.
func (h *ArrivalHandler) ValidateSelection(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.arrivalService.ValidateSelection(c.Request.Context(), req.ArrivalLineIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// PreviewTotals computes the invoice totals a selection would produce in the
// chosen currency
func (h *ArrivalHandler) PreviewTotals(c *gin.Context) {
	var req TotalsPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	preview, err := h.arrivalService.PreviewTotals(c.Request.Context(), req.ArrivalLineIDs, valueobject.Currency(req.Currency))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, preview)
}

// RegisterRoutes registers arrival routes
func (h *ArrivalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	arrivals := rg.Group("/arrivals")
	{
		arrivals.GET("/uninvoiced", h.List)
		arrivals.POST("/selection/validate", h.ValidateSelection)
		arrivals.POST("/selection/preview-totals", h.PreviewTotals)
	}
}

// parseDate parses a yyyy-mm-dd query value, returning nil when absent
func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}

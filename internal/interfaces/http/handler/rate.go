package handler

import (
	"github.com/gin-gonic/gin"

	appinvoicing "github.com/erp/vendor-invoice/internal/application/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// RateHandler exposes exchange-rate resolution
type RateHandler struct {
	BaseHandler
	rateService *appinvoicing.RateService
}

// NewRateHandler creates a new RateHandler
func NewRateHandler(rateService *appinvoicing.RateService) *RateHandler {
	return &RateHandler{rateService: rateService}
}

// RateRequest represents a single-pair rate query
type RateRequest struct {
	From string `form:"from" binding:"required,len=3"`
	To   string `form:"to" binding:"required,len=3"`
}

// RateSetRequest represents a PO-and-reporting rate query
type RateSetRequest struct {
	POCurrency      string `form:"po_currency" binding:"required,len=3"`
	InvoiceCurrency string `form:"invoice_currency" binding:"required,len=3"`
}

// RateSetResponse carries both invoice rates with any resolution warnings
type RateSetResponse struct {
	POToInvoice *appinvoicing.RateResponse `json:"po_to_invoice,omitempty"`
	USDRate     *appinvoicing.RateResponse `json:"usd_rate,omitempty"`
	Warnings    []string                   `json:"warnings,omitempty"`
}

// Get resolves one currency pair through cache, API and database fallback
func (h *RateHandler) Get(c *gin.Context) {
	var req RateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	from := valueobject.Currency(req.From)
	to := valueobject.Currency(req.To)
	if !from.IsValid() || !to.IsValid() {
		h.BadRequest(c, "Unsupported currency code")
		return
	}

	rate, err := h.rateService.GetRate(c.Request.Context(), from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rate)
}

// GetSet resolves the PO-to-invoice and USD reporting rates for an invoice
// currency pair. Missing rates come back absent with warnings rather than as
// an error, matching the creation flow's advisory behavior.
func (h *RateHandler) GetSet(c *gin.Context) {
	var req RateSetRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	poCurrency := valueobject.Currency(req.POCurrency)
	invoiceCurrency := valueobject.Currency(req.InvoiceCurrency)
	if !poCurrency.IsValid() || !invoiceCurrency.IsValid() {
		h.BadRequest(c, "Unsupported currency code")
		return
	}

	poToInvoice, usdRate, warnings := h.rateService.GetRateSet(c.Request.Context(), poCurrency, invoiceCurrency)
	h.Success(c, RateSetResponse{
		POToInvoice: poToInvoice,
		USDRate:     usdRate,
		Warnings:    warnings,
	})
}

// RegisterRoutes registers rate routes
func (h *RateHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rates := rg.Group("/rates")
	{
		rates.GET("", h.Get)
		rates.GET("/set", h.GetSet)
	}
}

package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appinvoicing "github.com/erp/vendor-invoice/internal/application/invoicing"
)

// PaymentTermHandler exposes the payment-term catalogue and due-date previews
type PaymentTermHandler struct {
	BaseHandler
	termService *appinvoicing.PaymentTermService
}

// NewPaymentTermHandler creates a new PaymentTermHandler
func NewPaymentTermHandler(termService *appinvoicing.PaymentTermService) *PaymentTermHandler {
	return &PaymentTermHandler{termService: termService}
}

// DueDatePreviewRequest represents a due-date preview query
type DueDatePreviewRequest struct {
	Name        string `form:"name" binding:"required,max=200"`
	InvoiceDate string `form:"invoice_date" binding:"required,datetime=2006-01-02"`
	Description string `form:"description" binding:"max=500"`
}

// List returns the catalogue sorted by derived day count, then name
func (h *PaymentTermHandler) List(c *gin.Context) {
	terms, err := h.termService.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, terms)
}

// PreviewDueDate derives the due date a free-form payment term would produce
// for a given invoice date
func (h *PaymentTermHandler) PreviewDueDate(c *gin.Context) {
	var req DueDatePreviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoiceDate, err := time.Parse("2006-01-02", req.InvoiceDate)
	if err != nil {
		h.BadRequest(c, "invoice_date must be yyyy-mm-dd")
		return
	}

	preview := h.termService.PreviewDueDate(req.Name, invoiceDate, req.Description)
	h.Success(c, preview)
}

// PreviewDueDateByID derives the due date for a catalogued payment term
func (h *PaymentTermHandler) PreviewDueDateByID(c *gin.Context) {
	termID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment term ID")
		return
	}

	invoiceDate := time.Now()
	if v := c.Query("invoice_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.BadRequest(c, "invoice_date must be yyyy-mm-dd")
			return
		}
		invoiceDate = parsed
	}

	preview, err := h.termService.PreviewDueDateByID(c.Request.Context(), termID, invoiceDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, preview)
}

// RegisterRoutes registers payment-term routes
func (h *PaymentTermHandler) RegisterRoutes(rg *gin.RouterGroup) {
	terms := rg.Group("/payment-terms")
	{
		terms.GET("", h.List)
		terms.GET("/due-date-preview", h.PreviewDueDate)
		terms.GET("/:id/due-date-preview", h.PreviewDueDateByID)
	}
}

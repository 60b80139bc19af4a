package handler

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appinvoicing "github.com/erp/vendor-invoice/internal/application/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// InvoiceHandler exposes invoice creation, queries, metadata updates and
// attachment management
type InvoiceHandler struct {
	BaseHandler
	invoiceService *appinvoicing.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *appinvoicing.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// UpdateInvoiceMetadataRequest represents a metadata-only invoice change
type UpdateInvoiceMetadataRequest struct {
	CommercialInvoiceNumber *string    `json:"commercial_invoice_number" binding:"omitempty,max=100"`
	InvoicedAt              *time.Time `json:"invoiced_at"`
	DueAt                   *time.Time `json:"due_at"`
	EmailToAccountant       *bool      `json:"email_to_accountant"`
}

// Create accepts a multipart submission: invoice fields plus attachment
// files. The session_key field guards against double submission of the same
// form.
func (h *InvoiceHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.BadRequest(c, "Expected a multipart form submission")
		return
	}

	input := appinvoicing.CreateInvoiceInput{
		SessionKey:              formValue(form, "session_key"),
		ActingUser:              getActingUser(c),
		Type:                    invoicing.InvoiceType(formValue(form, "type")),
		Currency:                valueobject.Currency(formValue(form, "currency")),
		CommercialInvoiceNumber: formValue(form, "commercial_invoice_number"),
	}

	if v := formValue(form, "invoiced_at"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.BadRequest(c, "invoiced_at must be yyyy-mm-dd")
			return
		}
		input.InvoicedAt = parsed
	}

	if v := formValue(form, "email_to_accountant"); v != "" {
		flag, err := strconv.ParseBool(v)
		if err != nil {
			h.BadRequest(c, "email_to_accountant must be a boolean")
			return
		}
		input.EmailToAccountant = flag
	}

	if v := formValue(form, "payment_term_id"); v != "" {
		termID, err := uuid.Parse(v)
		if err != nil {
			h.BadRequest(c, "payment_term_id must be a UUID")
			return
		}
		input.PaymentTermID = &termID
	}

	ids, err := parseArrivalLineIDs(form)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	input.ArrivalLineIDs = ids

	attachments, err := readAttachments(form.File["attachments"])
	if err != nil {
		h.BadRequest(c, "Failed to read attachment data")
		return
	}
	input.Attachments = attachments

	result, err := h.invoiceService.CreateInvoice(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Get returns a full invoice with lines and presigned attachment links
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// ListRecent returns the most recently created invoices
func (h *InvoiceHandler) ListRecent(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	invoices, err := h.invoiceService.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoices)
}

// UpdateMetadata applies a metadata-only change to an invoice
func (h *InvoiceHandler) UpdateMetadata(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req UpdateInvoiceMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.UpdateMetadata(c.Request.Context(), id, appinvoicing.UpdateInvoiceMetadataInput{
		CommercialInvoiceNumber: req.CommercialInvoiceNumber,
		InvoicedAt:              req.InvoicedAt,
		DueAt:                   req.DueAt,
		EmailToAccountant:       req.EmailToAccountant,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Void soft-deletes an invoice; its consumed arrival quantities stay consumed
func (h *InvoiceHandler) Void(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	if err := h.invoiceService.VoidInvoice(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// HardDelete physically removes an invoice without detail rows
func (h *InvoiceHandler) HardDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	if err := h.invoiceService.HardDeleteInvoice(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ListAttachments returns an invoice's attachments with download links
func (h *InvoiceHandler) ListAttachments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	attachments, err := h.invoiceService.ListAttachments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, attachments)
}

// DeleteAttachment removes an attachment record; the stored object is kept
func (h *InvoiceHandler) DeleteAttachment(c *gin.Context) {
	mediaID, err := uuid.Parse(c.Param("attachmentId"))
	if err != nil {
		h.BadRequest(c, "Invalid attachment ID")
		return
	}

	if err := h.invoiceService.DeleteAttachment(c.Request.Context(), mediaID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("/recent", h.ListRecent)
		invoices.GET("/:id", h.Get)
		invoices.PATCH("/:id", h.UpdateMetadata)
		invoices.DELETE("/:id", h.Void)
		invoices.DELETE("/:id/permanent", h.HardDelete)
		invoices.GET("/:id/attachments", h.ListAttachments)
		invoices.DELETE("/:id/attachments/:attachmentId", h.DeleteAttachment)
	}
}

// formValue returns the first value of a multipart form field
func formValue(form *multipart.Form, key string) string {
	values := form.Value[key]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// parseArrivalLineIDs accepts repeated arrival_line_id fields or one
// comma-separated list
func parseArrivalLineIDs(form *multipart.Form) ([]uuid.UUID, error) {
	raw := form.Value["arrival_line_id"]
	if len(raw) == 1 && strings.Contains(raw[0], ",") {
		raw = strings.Split(raw[0], ",")
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// readAttachments loads the submitted files into memory for validation and
// upload. The body-limit middleware caps the total read.
func readAttachments(files []*multipart.FileHeader) ([]appinvoicing.AttachmentUpload, error) {
	attachments := make([]appinvoicing.AttachmentUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		closeErr := f.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, closeErr
		}
		attachments = append(attachments, appinvoicing.AttachmentUpload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return attachments, nil
}

package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/vendor-invoice/internal/domain/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// ============================================================================
// Arrival listing and selection
// ============================================================================

// ArrivalLineResponse is one uninvoiced arrival line enriched with its
// reconciled position against the parent PO line.
type ArrivalLineResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ArrivalNoteNumber  string          `json:"arrival_note_number"`
	PONumber           string          `json:"po_number"`
	POLineID           uuid.UUID       `json:"po_line_id"`
	VendorCode         string          `json:"vendor_code"`
	VendorName         string          `json:"vendor_name"`
	VendorType         string          `json:"vendor_type"`
	EntityCode         string          `json:"entity_code"`
	Brand              string          `json:"brand,omitempty"`
	SKU                string          `json:"sku,omitempty"`
	ProductName        string          `json:"product_name,omitempty"`
	BuyingQuantity     decimal.Decimal `json:"buying_quantity"`
	UninvoicedQuantity decimal.Decimal `json:"uninvoiced_quantity"`
	TrueRemainingQty   decimal.Decimal `json:"true_remaining_quantity"`
	UnitCostAmount     decimal.Decimal `json:"unit_cost_amount"`
	UnitCostCurrency   string          `json:"unit_cost_currency"`
	VATPercent         decimal.Decimal `json:"vat_percent"`
	PaymentTermName    string          `json:"payment_term_name,omitempty"`
	HasLegacy          bool            `json:"has_legacy"`
	IsAdjusted         bool            `json:"is_adjusted"`
	IsNearExhausted    bool            `json:"is_near_exhausted"`
	IsOverDelivered    bool            `json:"is_over_delivered"`
	IsOverInvoiced     bool            `json:"is_over_invoiced"`
	ArrivedAt          time.Time       `json:"arrived_at"`
}

// ToArrivalLineResponse converts a reconciled arrival line status
func ToArrivalLineResponse(status invoicing.ArrivalLineStatus) ArrivalLineResponse {
	line := status.Line
	return ArrivalLineResponse{
		ID:                 line.ID,
		ArrivalNoteNumber:  line.ArrivalNoteNumber,
		PONumber:           line.PONumber,
		POLineID:           line.POLineID,
		VendorCode:         line.VendorCode,
		VendorName:         line.VendorName,
		VendorType:         string(line.VendorType),
		EntityCode:         line.EntityCode,
		Brand:              line.Brand,
		SKU:                line.SKU,
		ProductName:        line.ProductName,
		BuyingQuantity:     line.BuyingQuantity,
		UninvoicedQuantity: line.UninvoicedQuantity,
		TrueRemainingQty:   status.TrueRemainingQty,
		UnitCostAmount:     line.UnitCostAmount,
		UnitCostCurrency:   line.UnitCostCurrency.String(),
		VATPercent:         line.VATPercent,
		PaymentTermName:    line.PaymentTermName,
		HasLegacy:          status.HasLegacy,
		IsAdjusted:         status.IsAdjusted,
		IsNearExhausted:    status.IsNearExhausted,
		IsOverDelivered:    status.IsOverDelivered,
		IsOverInvoiced:     status.IsOverInvoiced,
		ArrivedAt:          line.ArrivedAt,
	}
}

// SelectionValidationResponse is the outcome of validating a selection
type SelectionValidationResponse struct {
	Valid        bool     `json:"valid"`
	ErrorCode    string   `json:"error_code,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// TotalsPreviewResponse summarizes a selection before invoice creation
type TotalsPreviewResponse struct {
	LineCount            int              `json:"line_count"`
	TotalQuantity        decimal.Decimal  `json:"total_quantity"`
	PONumberCount        int              `json:"po_number_count"`
	ArrivalNoteCount     int              `json:"arrival_note_count"`
	Currency             string           `json:"currency"`
	Subtotal             decimal.Decimal  `json:"subtotal"`
	VATAmount            decimal.Decimal  `json:"vat_amount"`
	Total                decimal.Decimal  `json:"total"`
	ExchangeRate         *decimal.Decimal `json:"exchange_rate,omitempty"`
	SameCurrencyFallback bool             `json:"same_currency_fallback"`
	Warnings             []string         `json:"warnings,omitempty"`
}

// ============================================================================
// Invoice creation
// ============================================================================

// AttachmentUpload is one file submitted with the creation request
type AttachmentUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// CreateInvoiceInput carries everything the creation transaction needs.
// Client-computed totals are deliberately absent: the service recomputes all
// amounts from line data.
type CreateInvoiceInput struct {
	SessionKey              string
	ActingUser              string
	Type                    invoicing.InvoiceType
	Currency                valueobject.Currency
	InvoicedAt              time.Time
	CommercialInvoiceNumber string
	EmailToAccountant       bool
	PaymentTermID           *uuid.UUID
	ArrivalLineIDs          []uuid.UUID
	Attachments             []AttachmentUpload
}

// CreateInvoiceResult is returned when the creation transaction commits
type CreateInvoiceResult struct {
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Warnings      []string  `json:"warnings,omitempty"`
}

// ============================================================================
// Invoice queries and metadata
// ============================================================================

// InvoiceLineResponse is one persisted invoice detail row
type InvoiceLineResponse struct {
	ID               uuid.UUID       `json:"id"`
	ArrivalLineID    uuid.UUID       `json:"arrival_line_id"`
	POLineID         uuid.UUID       `json:"po_line_id"`
	PONumber         string          `json:"po_number"`
	SKU              string          `json:"sku,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitCostAmount   decimal.Decimal `json:"unit_cost_amount"`
	UnitCostCurrency string          `json:"unit_cost_currency"`
	VATPercent       decimal.Decimal `json:"vat_percent"`
	AmountExclVAT    decimal.Decimal `json:"amount_excl_vat"`
	AmountInclVAT    decimal.Decimal `json:"amount_incl_vat"`
}

// MediaFileResponse is one attachment of an invoice
type MediaFileResponse struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
	DownloadURL string    `json:"download_url,omitempty"`
}

// InvoiceResponse is a full invoice with lines and attachments
type InvoiceResponse struct {
	ID                      uuid.UUID             `json:"id"`
	InvoiceNumber           string                `json:"invoice_number"`
	CommercialInvoiceNumber string                `json:"commercial_invoice_number,omitempty"`
	Type                    string                `json:"type"`
	VendorCode              string                `json:"vendor_code"`
	VendorName              string                `json:"vendor_name,omitempty"`
	EntityCode              string                `json:"entity_code"`
	Currency                string                `json:"currency"`
	ExchangeRate            decimal.Decimal       `json:"exchange_rate"`
	USDExchangeRate         decimal.Decimal       `json:"usd_exchange_rate"`
	Subtotal                decimal.Decimal       `json:"subtotal"`
	VATAmount               decimal.Decimal       `json:"vat_amount"`
	Total                   decimal.Decimal       `json:"total"`
	PaymentTermName         string                `json:"payment_term_name,omitempty"`
	PaymentStatus           string                `json:"payment_status"`
	InvoicedAt              time.Time             `json:"invoiced_at"`
	DueAt                   *time.Time            `json:"due_at,omitempty"`
	EmailToAccountant       bool                  `json:"email_to_accountant"`
	CreatedBy               string                `json:"created_by"`
	CreatedAt               time.Time             `json:"created_at"`
	Lines                   []InvoiceLineResponse `json:"lines"`
	Attachments             []MediaFileResponse   `json:"attachments"`
}

// InvoiceListItem is the condensed form used by the recent-invoices listing
type InvoiceListItem struct {
	ID                      uuid.UUID       `json:"id"`
	InvoiceNumber           string          `json:"invoice_number"`
	CommercialInvoiceNumber string          `json:"commercial_invoice_number,omitempty"`
	Type                    string          `json:"type"`
	VendorCode              string          `json:"vendor_code"`
	VendorName              string          `json:"vendor_name,omitempty"`
	EntityCode              string          `json:"entity_code"`
	Currency                string          `json:"currency"`
	Total                   decimal.Decimal `json:"total"`
	PaymentStatus           string          `json:"payment_status"`
	InvoicedAt              time.Time       `json:"invoiced_at"`
	DueAt                   *time.Time      `json:"due_at,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
}

// UpdateInvoiceMetadataInput carries the only post-creation changes allowed.
// Nil pointers leave the current value untouched.
type UpdateInvoiceMetadataInput struct {
	CommercialInvoiceNumber *string
	InvoicedAt              *time.Time
	DueAt                   *time.Time
	EmailToAccountant       *bool
}

// ToInvoiceResponse converts an invoice aggregate
func ToInvoiceResponse(inv *invoicing.PurchaseInvoice) InvoiceResponse {
	lines := make([]InvoiceLineResponse, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, InvoiceLineResponse{
			ID:               l.ID,
			ArrivalLineID:    l.ArrivalLineID,
			POLineID:         l.POLineID,
			PONumber:         l.PONumber,
			SKU:              l.SKU,
			Quantity:         l.Quantity,
			UnitCostAmount:   l.UnitCostAmount,
			UnitCostCurrency: l.UnitCostCurrency.String(),
			VATPercent:       l.VATPercent,
			AmountExclVAT:    l.AmountExclVAT,
			AmountInclVAT:    l.AmountInclVAT,
		})
	}
	attachments := make([]MediaFileResponse, 0, len(inv.Attachments))
	for i := range inv.Attachments {
		attachments = append(attachments, ToMediaFileResponse(&inv.Attachments[i]))
	}
	return InvoiceResponse{
		ID:                      inv.ID,
		InvoiceNumber:           inv.InvoiceNumber,
		CommercialInvoiceNumber: inv.CommercialInvoiceNumber,
		Type:                    string(inv.Type),
		VendorCode:              inv.VendorCode,
		VendorName:              inv.VendorName,
		EntityCode:              inv.EntityCode,
		Currency:                inv.Currency.String(),
		ExchangeRate:            inv.ExchangeRate,
		USDExchangeRate:         inv.USDExchangeRate,
		Subtotal:                inv.Subtotal,
		VATAmount:               inv.VATAmount,
		Total:                   inv.Total,
		PaymentTermName:         inv.PaymentTermName,
		PaymentStatus:           string(inv.PaymentStatus),
		InvoicedAt:              inv.InvoicedAt,
		DueAt:                   inv.DueAt,
		EmailToAccountant:       inv.EmailToAccountant,
		CreatedBy:               inv.CreatedBy,
		CreatedAt:               inv.CreatedAt,
		Lines:                   lines,
		Attachments:             attachments,
	}
}

// ToInvoiceListItem converts an invoice header for listings
func ToInvoiceListItem(inv *invoicing.PurchaseInvoice) InvoiceListItem {
	return InvoiceListItem{
		ID:                      inv.ID,
		InvoiceNumber:           inv.InvoiceNumber,
		CommercialInvoiceNumber: inv.CommercialInvoiceNumber,
		Type:                    string(inv.Type),
		VendorCode:              inv.VendorCode,
		VendorName:              inv.VendorName,
		EntityCode:              inv.EntityCode,
		Currency:                inv.Currency.String(),
		Total:                   inv.Total,
		PaymentStatus:           string(inv.PaymentStatus),
		InvoicedAt:              inv.InvoicedAt,
		DueAt:                   inv.DueAt,
		CreatedAt:               inv.CreatedAt,
	}
}

// ToMediaFileResponse converts a media record
func ToMediaFileResponse(file *invoicing.MediaFile) MediaFileResponse {
	return MediaFileResponse{
		ID:          file.ID,
		FileName:    file.FileName,
		ContentType: file.ContentType,
		SizeBytes:   file.SizeBytes,
		UploadedBy:  file.UploadedBy,
		CreatedAt:   file.CreatedAt,
	}
}

// ============================================================================
// Payment terms
// ============================================================================

// PaymentTermResponse is one catalogue entry with its derived day count
type PaymentTermResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Days        int       `json:"days"`
}

// DueDatePreviewResponse is the parsed outcome of a payment term against an
// invoice date
type DueDatePreviewResponse struct {
	DueDate     *time.Time `json:"due_date,omitempty"`
	Category    string     `json:"category"`
	Explanation string     `json:"explanation"`
	NeedsReview bool       `json:"needs_review"`
}

// ============================================================================
// Rates
// ============================================================================

// RateResponse is one resolved exchange rate
type RateResponse struct {
	From       string          `json:"from"`
	To         string          `json:"to"`
	Rate       decimal.Decimal `json:"rate"`
	Origin     string          `json:"origin"`
	ResolvedAt time.Time       `json:"resolved_at"`
}

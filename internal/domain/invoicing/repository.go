package invoicing

import (
	"context"

	"github.com/google/uuid"
)

// ArrivalLineRepository defines the interface for arrival line persistence
type ArrivalLineRepository interface {
	// FindByID finds an arrival line by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ArrivalLine, error)

	// FindByIDs finds arrival lines by a set of IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*ArrivalLine, error)

	// FindUninvoiced lists arrival lines with uninvoiced quantity remaining,
	// narrowed by the filter
	FindUninvoiced(ctx context.Context, filter ArrivalFilter) ([]*ArrivalLine, error)

	// CountUninvoiced counts arrival lines matching the filter
	CountUninvoiced(ctx context.Context, filter ArrivalFilter) (int64, error)

	// Save creates or updates an arrival line
	Save(ctx context.Context, line *ArrivalLine) error
}

// POLineRepository defines the interface for purchase-order line persistence
type POLineRepository interface {
	// FindByID finds a PO line by ID
	FindByID(ctx context.Context, id uuid.UUID) (*POLine, error)

	// FindByIDs finds PO lines by a set of IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*POLine, error)

	// InvoiceHistory returns all non-deleted invoice-detail rows charged
	// against the given PO lines, with their arrival linkage
	InvoiceHistory(ctx context.Context, poLineIDs []uuid.UUID) ([]InvoiceHistoryRow, error)
}

// InvoiceRepository defines the interface for purchase invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice with its lines and attachments
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseInvoice, error)

	// FindRecent lists the most recently created invoices
	FindRecent(ctx context.Context, limit int) ([]*PurchaseInvoice, error)

	// NextSequence returns the next invoice sequence number (max id + 1)
	NextSequence(ctx context.Context) (int, error)

	// CreateWithLines atomically persists the header, its detail rows and the
	// media linkage, and reduces the consumed arrival quantities
	CreateWithLines(ctx context.Context, invoice *PurchaseInvoice, lines []PurchaseInvoiceLine, mediaIDs []uuid.UUID) error

	// Save updates an invoice header (metadata changes)
	Save(ctx context.Context, invoice *PurchaseInvoice) error

	// Delete soft-deletes (voids) an invoice
	Delete(ctx context.Context, id uuid.UUID) error

	// HardDelete physically removes an invoice; implementations must refuse
	// when detail rows exist
	HardDelete(ctx context.Context, id uuid.UUID) error
}

// PaymentTermRepository defines the interface for the payment-term catalogue
type PaymentTermRepository interface {
	// FindByID finds a payment term by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentTerm, error)

	// FindByName finds a payment term by its exact label
	FindByName(ctx context.Context, name string) (*PaymentTerm, error)

	// FindAll lists all non-deleted payment terms
	FindAll(ctx context.Context) ([]*PaymentTerm, error)

	// Save creates or updates a payment term
	Save(ctx context.Context, term *PaymentTerm) error
}

// MediaRepository defines the interface for attachment records
type MediaRepository interface {
	// Create persists a media record for an uploaded object
	Create(ctx context.Context, file *MediaFile) error

	// FindByInvoice lists non-deleted attachments of an invoice
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*MediaFile, error)

	// FindByID finds a media record by ID
	FindByID(ctx context.Context, id uuid.UUID) (*MediaFile, error)

	// Delete soft-deletes a media record
	Delete(ctx context.Context, id uuid.UUID) error
}

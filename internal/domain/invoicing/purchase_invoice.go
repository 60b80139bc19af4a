package invoicing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/vendor-invoice/internal/domain/shared"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// InvoiceType distinguishes commercial invoices from advance payments
type InvoiceType string

const (
	InvoiceTypeCommercial     InvoiceType = "COMMERCIAL"
	InvoiceTypeAdvancePayment InvoiceType = "ADVANCE_PAYMENT"
)

// IsValid checks if the invoice type is valid
func (t InvoiceType) IsValid() bool {
	return t == InvoiceTypeCommercial || t == InvoiceTypeAdvancePayment
}

// NumberSuffix returns the single-letter suffix encoded into invoice numbers
func (t InvoiceType) NumberSuffix() string {
	if t == InvoiceTypeAdvancePayment {
		return "A"
	}
	return "P"
}

// PaymentStatus tracks how much of an invoice has been settled
type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "UNPAID"
	PaymentStatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusPaid          PaymentStatus = "PAID"
)

// PurchaseInvoice is the invoice header. Financial fields are an immutable
// snapshot taken at creation; only metadata may change afterwards, and the
// whole invoice is voided by soft delete once detail rows exist.
type PurchaseInvoice struct {
	ID                      uuid.UUID            `gorm:"type:uuid;primary_key"`
	InvoiceNumber           string               `gorm:"type:varchar(50);uniqueIndex;not null"`
	CommercialInvoiceNumber string               `gorm:"type:varchar(100)"`
	Type                    InvoiceType          `gorm:"type:varchar(20);not null"`
	VendorCode              string               `gorm:"type:varchar(50);not null;index"`
	VendorName              string               `gorm:"type:varchar(200)"`
	EntityCode              string               `gorm:"type:varchar(50);not null;index"`
	Currency                valueobject.Currency `gorm:"type:varchar(3);not null"`
	ExchangeRate            decimal.Decimal      `gorm:"type:decimal(18,6);not null"`
	USDExchangeRate         decimal.Decimal      `gorm:"type:decimal(18,6)"`
	Subtotal                decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	VATAmount               decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Total                   decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	PaymentTermID           *uuid.UUID           `gorm:"type:uuid"`
	PaymentTermName         string               `gorm:"type:varchar(200)"`
	PaymentStatus           PaymentStatus        `gorm:"type:varchar(20);not null;default:'UNPAID'"`
	InvoicedAt              time.Time            `gorm:"not null"`
	DueAt                   *time.Time
	EmailToAccountant       bool       `gorm:"not null;default:false"`
	CreatedBy               string     `gorm:"type:varchar(100);not null"`
	CreatedAt               time.Time  `gorm:"not null"`
	UpdatedAt               time.Time  `gorm:"not null"`
	DeletedAt               *time.Time `gorm:"index"`

	Lines       []PurchaseInvoiceLine `gorm:"foreignKey:InvoiceID"`
	Attachments []MediaFile           `gorm:"foreignKey:InvoiceID"`
}

// TableName returns the table name for GORM
func (PurchaseInvoice) TableName() string {
	return "purchase_invoices"
}

// PurchaseInvoiceLine is one detail row consuming an arrival line. VAT
// percent and converted amounts are stored per line at creation time; later
// rate changes never alter them.
type PurchaseInvoiceLine struct {
	ID               uuid.UUID            `gorm:"type:uuid;primary_key"`
	InvoiceID        uuid.UUID            `gorm:"type:uuid;not null;index"`
	ArrivalLineID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	POLineID         uuid.UUID            `gorm:"type:uuid;not null;index"`
	PONumber         string               `gorm:"type:varchar(50);not null"`
	SKU              string               `gorm:"type:varchar(100)"`
	Quantity         decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	UnitCostAmount   decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	UnitCostCurrency valueobject.Currency `gorm:"type:varchar(3);not null"`
	VATPercent       decimal.Decimal      `gorm:"type:decimal(5,2);not null"`
	AmountExclVAT    decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	AmountInclVAT    decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	CreatedAt        time.Time            `gorm:"not null"`
	UpdatedAt        time.Time            `gorm:"not null"`
	DeletedAt        *time.Time           `gorm:"index"`
}

// TableName returns the table name for GORM
func (PurchaseInvoiceLine) TableName() string {
	return "purchase_invoice_lines"
}

// MediaFile is an uploaded attachment. InvoiceID stays nil between upload and
// the linking step of the creation transaction; an orphaned unlinked row
// therefore marks a creation that failed after upload.
type MediaFile struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	InvoiceID   *uuid.UUID `gorm:"type:uuid;index"`
	FileName    string     `gorm:"type:varchar(255);not null"`
	ObjectKey   string     `gorm:"type:varchar(500);uniqueIndex;not null"`
	ContentType string     `gorm:"type:varchar(100)"`
	SizeBytes   int64      `gorm:"not null"`
	UploadedBy  string     `gorm:"type:varchar(100);not null"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
	DeletedAt   *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (MediaFile) TableName() string {
	return "media_files"
}

// BuildInvoiceNumber encodes date, vendor, buyer entity, sequence and invoice
// type into the invoice number: V-INV{yyyymmdd}-{vendor}{buyer}{seq}-{P|A}.
func BuildInvoiceNumber(invoicedAt time.Time, vendorCode, entityCode string, sequence int, invoiceType InvoiceType) string {
	return fmt.Sprintf("V-INV%s-%s%s%d-%s",
		invoicedAt.Format("20060102"), vendorCode, entityCode, sequence, invoiceType.NumberSuffix())
}

// NewPurchaseInvoice creates an invoice header with its financial snapshot
func NewPurchaseInvoice(
	number string,
	invoiceType InvoiceType,
	vendorCode, vendorName, entityCode string,
	currency valueobject.Currency,
	exchangeRate, usdRate decimal.Decimal,
	totals InvoiceTotals,
	invoicedAt time.Time,
	createdBy string,
) (*PurchaseInvoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invoice number is required")
	}
	if !invoiceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Invalid invoice type: %s", invoiceType))
	}
	if vendorCode == "" || entityCode == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Vendor and entity codes are required")
	}
	if createdBy == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Acting user is required")
	}
	now := time.Now()
	return &PurchaseInvoice{
		ID:              uuid.New(),
		InvoiceNumber:   number,
		Type:            invoiceType,
		VendorCode:      vendorCode,
		VendorName:      vendorName,
		EntityCode:      entityCode,
		Currency:        currency,
		ExchangeRate:    exchangeRate,
		USDExchangeRate: usdRate,
		Subtotal:        totals.Subtotal.Amount(),
		VATAmount:       totals.VAT.Amount(),
		Total:           totals.Total.Amount(),
		PaymentStatus:   PaymentStatusUnpaid,
		InvoicedAt:      invoicedAt,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// InvoiceMetadataUpdate carries the only fields that may change after
// creation. Nil pointers leave the current value untouched.
type InvoiceMetadataUpdate struct {
	CommercialInvoiceNumber *string
	InvoicedAt              *time.Time
	DueAt                   *time.Time
	EmailToAccountant       *bool
}

// UpdateMetadata applies a metadata-only change. Financial fields are never
// touched; fully paid invoices are immutable.
func (inv *PurchaseInvoice) UpdateMetadata(update InvoiceMetadataUpdate, now time.Time) error {
	if inv.PaymentStatus == PaymentStatusPaid {
		return shared.NewDomainError("INVOICE_PAID", "Fully paid invoices cannot be modified")
	}
	invoicedAt := inv.InvoicedAt
	if update.InvoicedAt != nil {
		invoicedAt = *update.InvoicedAt
	}
	dueAt := inv.DueAt
	if update.DueAt != nil {
		dueAt = update.DueAt
	}
	if invoicedAt.After(now) {
		return shared.NewDomainError("INVALID_INVOICE_DATE", "Invoice date cannot be in the future")
	}
	if dueAt != nil && dueAt.Before(invoicedAt) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot precede the invoice date")
	}
	if update.CommercialInvoiceNumber != nil {
		inv.CommercialInvoiceNumber = *update.CommercialInvoiceNumber
	}
	inv.InvoicedAt = invoicedAt
	inv.DueAt = dueAt
	if update.EmailToAccountant != nil {
		inv.EmailToAccountant = *update.EmailToAccountant
	}
	inv.UpdatedAt = now
	return nil
}

// CanHardDelete reports whether the invoice may be physically removed.
// Once detail rows exist the invoice can only be voided by soft delete.
func (inv *PurchaseInvoice) CanHardDelete() bool {
	return len(inv.Lines) == 0
}

// Void marks the invoice as voided
func (inv *PurchaseInvoice) Void(now time.Time) error {
	if inv.PaymentStatus == PaymentStatusPaid {
		return shared.NewDomainError("INVOICE_PAID", "Fully paid invoices cannot be voided")
	}
	if inv.DeletedAt != nil {
		return shared.ErrInvalidState
	}
	inv.DeletedAt = &now
	inv.UpdatedAt = now
	return nil
}

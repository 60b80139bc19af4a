package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// VendorType distinguishes internal group companies from external suppliers
type VendorType string

const (
	VendorTypeInternal VendorType = "INTERNAL"
	VendorTypeExternal VendorType = "EXTERNAL"
)

// IsValid checks if the vendor type is valid
func (t VendorType) IsValid() bool {
	return t == VendorTypeInternal || t == VendorTypeExternal
}

// ArrivalLine is one uninvoiced unit of received goods, the unit selected
// for invoicing. Created when goods are received; invoicing reduces
// UninvoicedQuantity; rows are soft-deleted, never removed.
type ArrivalLine struct {
	ID                 uuid.UUID            `gorm:"type:uuid;primary_key"`
	ArrivalNoteNumber  string               `gorm:"type:varchar(50);not null;index"`
	PONumber           string               `gorm:"type:varchar(50);not null;index"`
	POLineID           uuid.UUID            `gorm:"type:uuid;not null;index"`
	VendorCode         string               `gorm:"type:varchar(50);not null;index"`
	VendorName         string               `gorm:"type:varchar(200)"`
	VendorType         VendorType           `gorm:"type:varchar(20);not null"`
	EntityCode         string               `gorm:"type:varchar(50);not null;index"`
	Brand              string               `gorm:"type:varchar(100)"`
	SKU                string               `gorm:"type:varchar(100)"`
	ProductName        string               `gorm:"type:varchar(300)"`
	BuyingQuantity     decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	UninvoicedQuantity decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	UnitCostAmount     decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	UnitCostCurrency   valueobject.Currency `gorm:"type:varchar(3);not null"`
	VATPercent         decimal.Decimal      `gorm:"type:decimal(5,2);not null"`
	PaymentTermName    string               `gorm:"type:varchar(200)"`
	IsOverDelivered    bool                 `gorm:"not null;default:false"`
	IsOverInvoiced     bool                 `gorm:"not null;default:false"`
	ArrivedAt          time.Time            `gorm:"not null"`
	CreatedAt          time.Time            `gorm:"not null"`
	UpdatedAt          time.Time            `gorm:"not null"`
	DeletedAt          *time.Time           `gorm:"index"`
}

// TableName returns the table name for GORM
func (ArrivalLine) TableName() string {
	return "arrival_lines"
}

// UnitCost returns the unit cost as a Money value
func (l *ArrivalLine) UnitCost() valueobject.Money {
	m, _ := valueobject.NewMoney(l.UnitCostAmount, l.UnitCostCurrency)
	return m
}

// SetUnitCost ingests the combined "123.45 USD" cost form found in source
// feeds. Downstream code only ever sees the (amount, currency) pair.
func (l *ArrivalLine) SetUnitCost(combined string) error {
	m, err := valueobject.ParseMoney(combined)
	if err != nil {
		return err
	}
	l.UnitCostAmount = m.Amount()
	l.UnitCostCurrency = m.Currency()
	return nil
}

// IsFullyInvoiced reports whether nothing remains to invoice on this line
func (l *ArrivalLine) IsFullyInvoiced() bool {
	return !l.UninvoicedQuantity.IsPositive()
}

// ConsumeQuantity reduces the uninvoiced quantity after an invoice line was
// created against this arrival line, clamping at zero.
func (l *ArrivalLine) ConsumeQuantity(qty decimal.Decimal) {
	remaining := l.UninvoicedQuantity.Sub(qty)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	l.UninvoicedQuantity = remaining
	l.UpdatedAt = time.Now()
}

// POLine is one purchase-order line, the quantity ceiling invoicing is
// checked against.
type POLine struct {
	ID              uuid.UUID            `gorm:"type:uuid;primary_key"`
	PONumber        string               `gorm:"type:varchar(50);not null;index"`
	LineNumber      int                  `gorm:"not null"`
	SKU             string               `gorm:"type:varchar(100)"`
	OrderedQuantity decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency        valueobject.Currency `gorm:"type:varchar(3);not null"`
	VATPercent      decimal.Decimal      `gorm:"type:decimal(5,2);not null"`
	CreatedAt       time.Time            `gorm:"not null"`
	UpdatedAt       time.Time            `gorm:"not null"`
	DeletedAt       *time.Time           `gorm:"index"`
}

// TableName returns the table name for GORM
func (POLine) TableName() string {
	return "po_lines"
}

// ArrivalFilter narrows the uninvoiced-arrival listing
type ArrivalFilter struct {
	VendorCodes        []string
	EntityCodes        []string
	VendorTypes        []VendorType
	Brands             []string
	ArrivalNoteNumbers []string
	PONumbers          []string
	ArrivedFrom        *time.Time
	ArrivedTo          *time.Time
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
	Limit              int
	Offset             int
}

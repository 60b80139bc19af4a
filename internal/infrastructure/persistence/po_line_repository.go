package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/vendor-invoice/internal/domain/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/shared"
)

// GormPOLineRepository implements invoicing.POLineRepository using GORM
type GormPOLineRepository struct {
	db *gorm.DB
}

// NewGormPOLineRepository creates a new GORM-based PO line repository
func NewGormPOLineRepository(db *gorm.DB) *GormPOLineRepository {
	return &GormPOLineRepository{db: db}
}

// FindByID finds a PO line by ID
func (r *GormPOLineRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.POLine, error) {
	var line invoicing.POLine
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find PO line: %w", err)
	}
	return &line, nil
}

// FindByIDs finds PO lines by a set of IDs
func (r *GormPOLineRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*invoicing.POLine, error) {
	if len(ids) == 0 {
		return []*invoicing.POLine{}, nil
	}
	var lines []*invoicing.POLine
	err := r.db.WithContext(ctx).
		Where("id IN ? AND deleted_at IS NULL", ids).
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find PO lines: %w", err)
	}
	return lines, nil
}

// InvoiceHistory returns all non-deleted invoice-detail rows charged against
// the given PO lines. Rows from voided invoices are excluded; rows whose
// arrival linkage is NULL are the legacy consumption the reconciliation
// treats as already charged.
func (r *GormPOLineRepository) InvoiceHistory(ctx context.Context, poLineIDs []uuid.UUID) ([]invoicing.InvoiceHistoryRow, error) {
	if len(poLineIDs) == 0 {
		return []invoicing.InvoiceHistoryRow{}, nil
	}
	var rows []invoicing.InvoiceHistoryRow
	err := r.db.WithContext(ctx).
		Table("purchase_invoice_lines").
		Select("purchase_invoice_lines.po_line_id, purchase_invoice_lines.arrival_line_id, purchase_invoice_lines.quantity").
		Joins("JOIN purchase_invoices ON purchase_invoices.id = purchase_invoice_lines.invoice_id AND purchase_invoices.deleted_at IS NULL").
		Where("purchase_invoice_lines.po_line_id IN ? AND purchase_invoice_lines.deleted_at IS NULL", poLineIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice history: %w", err)
	}
	return rows, nil
}

// Ensure GormPOLineRepository implements the POLineRepository interface
var _ invoicing.POLineRepository = (*GormPOLineRepository)(nil)

package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/vendor-invoice/internal/domain/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/shared"
)

// GormInvoiceRepository implements invoicing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GORM-based invoice repository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice with its non-deleted lines and attachments
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.PurchaseInvoice, error) {
	var invoice invoicing.PurchaseInvoice
	err := r.db.WithContext(ctx).
		Preload("Lines", "deleted_at IS NULL").
		Preload("Attachments", "deleted_at IS NULL").
		Where("id = ? AND deleted_at IS NULL", id).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return &invoice, nil
}

// FindRecent lists the most recently created invoices
func (r *GormInvoiceRepository) FindRecent(ctx context.Context, limit int) ([]*invoicing.PurchaseInvoice, error) {
	var invoices []*invoicing.PurchaseInvoice
	err := r.db.WithContext(ctx).
		Preload("Lines", "deleted_at IS NULL").
		Where("deleted_at IS NULL").
		Order("created_at DESC").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent invoices: %w", err)
	}
	return invoices, nil
}

// NextSequence returns the next invoice sequence number. Voided invoices keep
// counting so numbers are never reissued.
func (r *GormInvoiceRepository) NextSequence(ctx context.Context) (int, error) {
	var next int
	err := r.db.WithContext(ctx).
		Raw("SELECT COUNT(*) + 1 FROM purchase_invoices").
		Scan(&next).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute next invoice sequence: %w", err)
	}
	return next, nil
}

// CreateWithLines atomically persists the header, its detail rows and the
// media linkage, and reduces the consumed arrival quantities. A failure at
// any step rolls the whole invoice back.
func (r *GormInvoiceRepository) CreateWithLines(ctx context.Context, invoice *invoicing.PurchaseInvoice, lines []invoicing.PurchaseInvoiceLine, mediaIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(invoice).Error; err != nil {
			return fmt.Errorf("failed to create invoice header: %w", err)
		}

		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return fmt.Errorf("failed to create invoice lines: %w", err)
			}
		}

		if len(mediaIDs) > 0 {
			result := tx.Model(&invoicing.MediaFile{}).
				Where("id IN ? AND invoice_id IS NULL AND deleted_at IS NULL", mediaIDs).
				Updates(map[string]interface{}{
					"invoice_id": invoice.ID,
					"updated_at": time.Now(),
				})
			if result.Error != nil {
				return fmt.Errorf("failed to link attachments: %w", result.Error)
			}
			if result.RowsAffected != int64(len(mediaIDs)) {
				return fmt.Errorf("failed to link attachments: %d of %d media records linked",
					result.RowsAffected, len(mediaIDs))
			}
		}

		for _, line := range lines {
			err := tx.Model(&invoicing.ArrivalLine{}).
				Where("id = ? AND deleted_at IS NULL", line.ArrivalLineID).
				Updates(map[string]interface{}{
					"uninvoiced_quantity": gorm.Expr("GREATEST(uninvoiced_quantity - ?, 0)", line.Quantity),
					"updated_at":          time.Now(),
				}).Error
			if err != nil {
				return fmt.Errorf("failed to consume arrival quantity: %w", err)
			}
		}

		return nil
	})
}

// Save updates an invoice header (metadata changes)
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *invoicing.PurchaseInvoice) error {
	invoice.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(invoice).Error
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// Delete soft-deletes (voids) an invoice
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&invoicing.PurchaseInvoice{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"deleted_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to void invoice: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// HardDelete physically removes an invoice. Refused once detail rows exist,
// voided or not; such invoices can only be soft-deleted.
func (r *GormInvoiceRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lineCount int64
		err := tx.Model(&invoicing.PurchaseInvoiceLine{}).
			Where("invoice_id = ?", id).
			Count(&lineCount).Error
		if err != nil {
			return fmt.Errorf("failed to count invoice lines: %w", err)
		}
		if lineCount > 0 {
			return shared.NewDomainError("INVOICE_HAS_LINES", "Invoices with detail rows can only be voided")
		}

		result := tx.Where("id = ?", id).Delete(&invoicing.PurchaseInvoice{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete invoice: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Ensure GormInvoiceRepository implements the InvoiceRepository interface
var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)

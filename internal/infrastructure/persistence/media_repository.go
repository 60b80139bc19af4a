package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/vendor-invoice/internal/domain/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/shared"
)

// GormMediaRepository implements invoicing.MediaRepository using GORM
type GormMediaRepository struct {
	db *gorm.DB
}

// NewGormMediaRepository creates a new GORM-based media repository
func NewGormMediaRepository(db *gorm.DB) *GormMediaRepository {
	return &GormMediaRepository{db: db}
}

// Create persists a media record for an uploaded object
func (r *GormMediaRepository) Create(ctx context.Context, file *invoicing.MediaFile) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return fmt.Errorf("failed to create media record: %w", err)
	}
	return nil
}

// FindByInvoice lists non-deleted attachments of an invoice
func (r *GormMediaRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*invoicing.MediaFile, error) {
	var files []*invoicing.MediaFile
	err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND deleted_at IS NULL", invoiceID).
		Order("created_at ASC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return files, nil
}

// FindByID finds a media record by ID
func (r *GormMediaRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.MediaFile, error) {
	var file invoicing.MediaFile
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find media record: %w", err)
	}
	return &file, nil
}

// Delete soft-deletes a media record. The stored object is kept for audit.
func (r *GormMediaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&invoicing.MediaFile{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"deleted_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to delete media record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormMediaRepository implements the MediaRepository interface
var _ invoicing.MediaRepository = (*GormMediaRepository)(nil)

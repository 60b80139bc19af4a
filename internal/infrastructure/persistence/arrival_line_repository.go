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

// GormArrivalLineRepository implements invoicing.ArrivalLineRepository using GORM
type GormArrivalLineRepository struct {
	db *gorm.DB
}

// NewGormArrivalLineRepository creates a new GORM-based arrival line repository
func NewGormArrivalLineRepository(db *gorm.DB) *GormArrivalLineRepository {
	return &GormArrivalLineRepository{db: db}
}

// FindByID finds an arrival line by ID
func (r *GormArrivalLineRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.ArrivalLine, error) {
	var line invoicing.ArrivalLine
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find arrival line: %w", err)
	}
	return &line, nil
}

// FindByIDs finds arrival lines by a set of IDs
func (r *GormArrivalLineRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*invoicing.ArrivalLine, error) {
	if len(ids) == 0 {
		return []*invoicing.ArrivalLine{}, nil
	}
	var lines []*invoicing.ArrivalLine
	err := r.db.WithContext(ctx).
		Where("id IN ? AND deleted_at IS NULL", ids).
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find arrival lines: %w", err)
	}
	return lines, nil
}

// FindUninvoiced lists arrival lines with uninvoiced quantity remaining,
// narrowed by the filter
func (r *GormArrivalLineRepository) FindUninvoiced(ctx context.Context, filter invoicing.ArrivalFilter) ([]*invoicing.ArrivalLine, error) {
	var lines []*invoicing.ArrivalLine
	query := r.applyFilter(r.db.WithContext(ctx), filter)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	err := query.Order("arrived_at DESC, arrival_note_number ASC").Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list uninvoiced arrival lines: %w", err)
	}
	return lines, nil
}

// CountUninvoiced counts arrival lines matching the filter
func (r *GormArrivalLineRepository) CountUninvoiced(ctx context.Context, filter invoicing.ArrivalFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&invoicing.ArrivalLine{}), filter).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count uninvoiced arrival lines: %w", err)
	}
	return count, nil
}

// Save creates or updates an arrival line
func (r *GormArrivalLineRepository) Save(ctx context.Context, line *invoicing.ArrivalLine) error {
	line.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(line).Error; err != nil {
		return fmt.Errorf("failed to save arrival line: %w", err)
	}
	return nil
}

// applyFilter applies the uninvoiced-listing conditions to a query
func (r *GormArrivalLineRepository) applyFilter(query *gorm.DB, filter invoicing.ArrivalFilter) *gorm.DB {
	query = query.Where("deleted_at IS NULL").Where("uninvoiced_quantity > 0")
	if len(filter.VendorCodes) > 0 {
		query = query.Where("vendor_code IN ?", filter.VendorCodes)
	}
	if len(filter.EntityCodes) > 0 {
		query = query.Where("entity_code IN ?", filter.EntityCodes)
	}
	if len(filter.VendorTypes) > 0 {
		query = query.Where("vendor_type IN ?", filter.VendorTypes)
	}
	if len(filter.Brands) > 0 {
		query = query.Where("brand IN ?", filter.Brands)
	}
	if len(filter.ArrivalNoteNumbers) > 0 {
		query = query.Where("arrival_note_number IN ?", filter.ArrivalNoteNumbers)
	}
	if len(filter.PONumbers) > 0 {
		query = query.Where("po_number IN ?", filter.PONumbers)
	}
	if filter.ArrivedFrom != nil {
		query = query.Where("arrived_at >= ?", *filter.ArrivedFrom)
	}
	if filter.ArrivedTo != nil {
		query = query.Where("arrived_at <= ?", *filter.ArrivedTo)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return query
}

// Ensure GormArrivalLineRepository implements the ArrivalLineRepository interface
var _ invoicing.ArrivalLineRepository = (*GormArrivalLineRepository)(nil)

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

// GormPaymentTermRepository implements invoicing.PaymentTermRepository using GORM
type GormPaymentTermRepository struct {
	db *gorm.DB
}

// NewGormPaymentTermRepository creates a new GORM-based payment term repository
func NewGormPaymentTermRepository(db *gorm.DB) *GormPaymentTermRepository {
	return &GormPaymentTermRepository{db: db}
}

// FindByID finds a payment term by ID
func (r *GormPaymentTermRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.PaymentTerm, error) {
	var term invoicing.PaymentTerm
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&term).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment term: %w", err)
	}
	return &term, nil
}

// FindByName finds a payment term by its exact label
func (r *GormPaymentTermRepository) FindByName(ctx context.Context, name string) (*invoicing.PaymentTerm, error) {
	var term invoicing.PaymentTerm
	err := r.db.WithContext(ctx).
		Where("name = ? AND deleted_at IS NULL", name).
		First(&term).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment term: %w", err)
	}
	return &term, nil
}

// FindAll lists all non-deleted payment terms
func (r *GormPaymentTermRepository) FindAll(ctx context.Context) ([]*invoicing.PaymentTerm, error) {
	var terms []*invoicing.PaymentTerm
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Order("name ASC").
		Find(&terms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payment terms: %w", err)
	}
	return terms, nil
}

// Save creates or updates a payment term
func (r *GormPaymentTermRepository) Save(ctx context.Context, term *invoicing.PaymentTerm) error {
	term.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(term).Error; err != nil {
		return fmt.Errorf("failed to save payment term: %w", err)
	}
	return nil
}

// Ensure GormPaymentTermRepository implements the PaymentTermRepository interface
var _ invoicing.PaymentTermRepository = (*GormPaymentTermRepository)(nil)

package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/erp/vendor-invoice/internal/domain/currency"
	"github.com/erp/vendor-invoice/internal/domain/shared"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// GormExchangeRateRepository implements currency.RateStore using GORM. It is
// the last resolution tier: rows land here through the rate importer, not
// through cache writes.
type GormExchangeRateRepository struct {
	db *gorm.DB
}

// NewGormExchangeRateRepository creates a new GORM-based exchange rate repository
func NewGormExchangeRateRepository(db *gorm.DB) *GormExchangeRateRepository {
	return &GormExchangeRateRepository{db: db}
}

// LatestRate returns the most recent stored rate for the pair
func (r *GormExchangeRateRepository) LatestRate(ctx context.Context, from, to valueobject.Currency) (*currency.ExchangeRate, error) {
	var rate currency.ExchangeRate
	err := r.db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ? AND deleted_at IS NULL", from, to).
		Order("rate_date DESC, created_at DESC").
		First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find exchange rate: %w", err)
	}
	return &rate, nil
}

// Save creates or updates a stored rate row
func (r *GormExchangeRateRepository) Save(ctx context.Context, rate *currency.ExchangeRate) error {
	rate.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(rate).Error; err != nil {
		return fmt.Errorf("failed to save exchange rate: %w", err)
	}
	return nil
}

// Ensure GormExchangeRateRepository implements the RateStore interface
var _ currency.RateStore = (*GormExchangeRateRepository)(nil)

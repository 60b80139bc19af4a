package currency

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// RateOrigin records where a resolved rate came from
type RateOrigin string

const (
	RateOriginAPI      RateOrigin = "API"
	RateOriginCache    RateOrigin = "CACHE"
	RateOriginDatabase RateOrigin = "DATABASE"
	RateOriginSame     RateOrigin = "SAME_CURRENCY"
)

// ExchangeRate is a persisted currency-pair rate row
type ExchangeRate struct {
	ID           uuid.UUID            `gorm:"type:uuid;primary_key"`
	FromCurrency valueobject.Currency `gorm:"type:varchar(3);not null;index:idx_rate_pair"`
	ToCurrency   valueobject.Currency `gorm:"type:varchar(3);not null;index:idx_rate_pair"`
	Rate         decimal.Decimal      `gorm:"type:decimal(18,6);not null"`
	RateDate     time.Time            `gorm:"not null;index"`
	CreatedAt    time.Time            `gorm:"not null"`
	UpdatedAt    time.Time            `gorm:"not null"`
	DeletedAt    *time.Time           `gorm:"index"`
}

// TableName returns the table name for GORM
func (ExchangeRate) TableName() string {
	return "exchange_rates"
}

// ResolvedRate is a rate with its provenance and resolution time
type ResolvedRate struct {
	From       valueobject.Currency
	To         valueobject.Currency
	Rate       decimal.Decimal
	Origin     RateOrigin
	ResolvedAt time.Time
}

// PairKey is the ordered cache key for a currency pair
func PairKey(from, to valueobject.Currency) string {
	return string(from) + "_" + string(to)
}

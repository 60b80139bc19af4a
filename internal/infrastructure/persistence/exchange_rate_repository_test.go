package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/erp/vendor-invoice/internal/domain/shared"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// newMockExchangeRateRepository creates a GormExchangeRateRepository with a mocked SQL connection
func newMockExchangeRateRepository(t *testing.T) (*GormExchangeRateRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockDB(t)
	return NewGormExchangeRateRepository(gormDB), mock, mockDB
}

func TestGormExchangeRateRepository_LatestRate(t *testing.T) {
	t.Run("returns the most recent pair row", func(t *testing.T) {
		repo, mock, mockDB := newMockExchangeRateRepository(t)
		defer mockDB.Close()

		rateID := uuid.New()
		rateDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows([]string{"id", "from_currency", "to_currency", "rate", "rate_date"}).
			AddRow(rateID, "USD", "VND", decimal.NewFromInt(25000), rateDate)

		mock.ExpectQuery(`SELECT \* FROM "exchange_rates" WHERE from_currency = \$1 AND to_currency = \$2 AND deleted_at IS NULL ORDER BY rate_date DESC, created_at DESC.* LIMIT .*`).
			WithArgs("USD", "VND", 1).
			WillReturnRows(rows)

		rate, err := repo.LatestRate(context.Background(), valueobject.USD, valueobject.VND)

		assert.NoError(t, err)
		assert.NotNil(t, rate)
		assert.True(t, rate.Rate.Equal(decimal.NewFromInt(25000)))
		assert.Equal(t, valueobject.VND, rate.ToCurrency)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing pair reports not found", func(t *testing.T) {
		repo, mock, mockDB := newMockExchangeRateRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "exchange_rates" WHERE from_currency = \$1 AND to_currency = \$2 AND deleted_at IS NULL ORDER BY .* LIMIT .*`).
			WithArgs("EUR", "VND", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		rate, err := repo.LatestRate(context.Background(), valueobject.EUR, valueobject.VND)

		assert.Error(t, err)
		assert.Nil(t, rate)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

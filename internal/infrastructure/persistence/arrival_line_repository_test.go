package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/erp/vendor-invoice/internal/domain/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/shared"
)

// newMockDB creates a GORM connection backed by a mocked SQL driver
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

// newMockArrivalLineRepository creates a GormArrivalLineRepository with a mocked SQL connection
func newMockArrivalLineRepository(t *testing.T) (*GormArrivalLineRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockDB(t)
	return NewGormArrivalLineRepository(gormDB), mock, mockDB
}

func TestGormArrivalLineRepository_FindByID(t *testing.T) {
	t.Run("finds existing arrival line", func(t *testing.T) {
		repo, mock, mockDB := newMockArrivalLineRepository(t)
		defer mockDB.Close()

		lineID := uuid.New()
		poLineID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "arrival_note_number", "po_number", "po_line_id", "vendor_code", "vendor_type", "entity_code", "buying_quantity", "uninvoiced_quantity", "unit_cost_amount", "unit_cost_currency", "vat_percent"}).
			AddRow(lineID, "AN-100", "PO-100", poLineID, "V001", "EXTERNAL", "E01", decimal.NewFromInt(100), decimal.NewFromInt(40), decimal.RequireFromString("2.50"), "USD", decimal.NewFromInt(10))

		mock.ExpectQuery(`SELECT \* FROM "arrival_lines" WHERE id = \$1 AND deleted_at IS NULL ORDER BY .* LIMIT .*`).
			WithArgs(lineID, 1).
			WillReturnRows(rows)

		line, err := repo.FindByID(context.Background(), lineID)

		assert.NoError(t, err)
		assert.NotNil(t, line)
		assert.Equal(t, lineID, line.ID)
		assert.Equal(t, "AN-100", line.ArrivalNoteNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for unknown arrival line", func(t *testing.T) {
		repo, mock, mockDB := newMockArrivalLineRepository(t)
		defer mockDB.Close()

		lineID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "arrival_lines" WHERE id = \$1 AND deleted_at IS NULL ORDER BY .* LIMIT .*`).
			WithArgs(lineID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		line, err := repo.FindByID(context.Background(), lineID)

		assert.Error(t, err)
		assert.Nil(t, line)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormArrivalLineRepository_FindByIDs(t *testing.T) {
	t.Run("empty ID set short-circuits", func(t *testing.T) {
		repo, mock, mockDB := newMockArrivalLineRepository(t)
		defer mockDB.Close()

		lines, err := repo.FindByIDs(context.Background(), nil)

		assert.NoError(t, err)
		assert.Empty(t, lines)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormArrivalLineRepository_FindUninvoiced(t *testing.T) {
	t.Run("filters exclude invoiced and deleted rows", func(t *testing.T) {
		repo, mock, mockDB := newMockArrivalLineRepository(t)
		defer mockDB.Close()

		lineID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "arrival_note_number", "vendor_code"}).
			AddRow(lineID, "AN-100", "V001")

		mock.ExpectQuery(`SELECT \* FROM "arrival_lines" WHERE deleted_at IS NULL AND uninvoiced_quantity > 0 AND vendor_code IN \(\$1\) ORDER BY arrived_at DESC.*`).
			WithArgs("V001").
			WillReturnRows(rows)

		lines, err := repo.FindUninvoiced(context.Background(), invoicing.ArrivalFilter{
			VendorCodes: []string{"V001"},
		})

		assert.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, lineID, lines[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormArrivalLineRepository_CountUninvoiced(t *testing.T) {
	t.Run("counts matching rows", func(t *testing.T) {
		repo, mock, mockDB := newMockArrivalLineRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "arrival_lines" WHERE deleted_at IS NULL AND uninvoiced_quantity > 0.*`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.CountUninvoiced(context.Background(), invoicing.ArrivalFilter{})

		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

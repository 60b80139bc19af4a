package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/vendor-invoice/internal/domain/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/shared"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// newMockInvoiceRepository creates a GormInvoiceRepository with a mocked SQL connection
func newMockInvoiceRepository(t *testing.T) (*GormInvoiceRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockDB(t)
	return NewGormInvoiceRepository(gormDB), mock, mockDB
}

func TestGormInvoiceRepository_NextSequence(t *testing.T) {
	t.Run("counts every invoice including voided ones", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT COUNT\(\*\) \+ 1 FROM purchase_invoices`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		next, err := repo.NextSequence(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, 7, next)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_CreateWithLines(t *testing.T) {
	t.Run("persists header, lines, media linkage and arrival consumption in one transaction", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		now := time.Now()
		invoice := &invoicing.PurchaseInvoice{
			ID:                uuid.New(),
			InvoiceNumber:     "V-INV20250310-V001E017-P",
			Type:              invoicing.InvoiceTypeCommercial,
			VendorCode:        "V001",
			EntityCode:        "E01",
			Currency:          valueobject.USD,
			ExchangeRate:      decimal.NewFromInt(1),
			Subtotal:          decimal.NewFromInt(100),
			VATAmount:         decimal.NewFromInt(8),
			Total:             decimal.NewFromInt(108),
			PaymentStatus:     invoicing.PaymentStatusUnpaid,
			InvoicedAt:        now,
			EmailToAccountant: true,
			CreatedBy:         "buyer@acme.test",
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		lines := []invoicing.PurchaseInvoiceLine{
			{
				ID:            uuid.New(),
				InvoiceID:     invoice.ID,
				ArrivalLineID: uuid.New(),
				POLineID:      uuid.New(),
				PONumber:      "PO-100",
				Quantity:      decimal.NewFromInt(40),
				CreatedAt:     now,
				UpdatedAt:     now,
			},
		}
		mediaIDs := []uuid.UUID{uuid.New()}

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "purchase_invoices"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "purchase_invoice_lines"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "media_files" SET .* WHERE id IN \(\$3\) AND invoice_id IS NULL AND deleted_at IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "arrival_lines" SET .*uninvoiced_quantity.* WHERE id = \$\d+ AND deleted_at IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CreateWithLines(context.Background(), invoice, lines, mediaIDs)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when media linkage falls short", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		now := time.Now()
		invoice := &invoicing.PurchaseInvoice{
			ID:                uuid.New(),
			InvoiceNumber:     "V-INV20250310-V001E018-P",
			Type:              invoicing.InvoiceTypeCommercial,
			VendorCode:        "V001",
			EntityCode:        "E01",
			Currency:          valueobject.USD,
			ExchangeRate:      decimal.NewFromInt(1),
			PaymentStatus:     invoicing.PaymentStatusUnpaid,
			InvoicedAt:        now,
			EmailToAccountant: true,
			CreatedBy:         "buyer@acme.test",
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		mediaIDs := []uuid.UUID{uuid.New(), uuid.New()}

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "purchase_invoices"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// one of the two media rows was already linked elsewhere
		mock.ExpectExec(`UPDATE "media_files" SET .*`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		err := repo.CreateWithLines(context.Background(), invoice, nil, mediaIDs)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to link attachments")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_Delete(t *testing.T) {
	t.Run("voids an existing invoice", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()

		mock.ExpectExec(`UPDATE "purchase_invoices" SET .* WHERE id = \$\d+ AND deleted_at IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(context.Background(), invoiceID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("voiding twice reports not found", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()

		mock.ExpectExec(`UPDATE "purchase_invoices" SET .* WHERE id = \$\d+ AND deleted_at IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), invoiceID)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_HardDelete(t *testing.T) {
	t.Run("refuses when detail rows exist", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "purchase_invoice_lines" WHERE invoice_id = \$1`).
			WithArgs(invoiceID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectRollback()

		err := repo.HardDelete(context.Background(), invoiceID)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INVOICE_HAS_LINES", domainErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("removes an invoice without detail rows", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "purchase_invoice_lines" WHERE invoice_id = \$1`).
			WithArgs(invoiceID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`DELETE FROM "purchase_invoices" WHERE id = \$1`).
			WithArgs(invoiceID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.HardDelete(context.Background(), invoiceID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

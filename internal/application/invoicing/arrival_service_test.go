package invoicing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erp/vendor-invoice/internal/domain/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

func newTestArrivalService(source stubRateSource) (*ArrivalService, *MockArrivalLineRepository, *MockPOLineRepository) {
	arrivalRepo := new(MockArrivalLineRepository)
	poLineRepo := new(MockPOLineRepository)
	service := NewArrivalService(arrivalRepo, poLineRepo, testResolver(source), nil)
	return service, arrivalRepo, poLineRepo
}

func TestListUninvoiced(t *testing.T) {
	ctx := context.Background()
	poLineID := uuid.New()

	t.Run("listing carries reconciled quantities", func(t *testing.T) {
		service, arrivalRepo, poLineRepo := newTestArrivalService(stubRateSource{})
		line := testArrivalLine(poLineID, "40", "2.50", valueobject.USD)
		poLine := testPOLine(poLineID, "100", valueobject.USD, "8")
		history := []invoicing.InvoiceHistoryRow{
			{POLineID: poLineID, ArrivalLineID: nil, Quantity: dec("70")},
		}

		filter := invoicing.ArrivalFilter{VendorCodes: []string{"V001"}}
		arrivalRepo.On("FindUninvoiced", mock.Anything, filter).Return([]*invoicing.ArrivalLine{line}, nil)
		arrivalRepo.On("CountUninvoiced", mock.Anything, filter).Return(int64(1), nil)
		poLineRepo.On("FindByIDs", mock.Anything, []uuid.UUID{poLineID}).Return([]*invoicing.POLine{poLine}, nil)
		poLineRepo.On("InvoiceHistory", mock.Anything, []uuid.UUID{poLineID}).Return(history, nil)

		responses, count, err := service.ListUninvoiced(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		require.Len(t, responses, 1)
		// PO remaining = 100 - 70 legacy = 30, below the 40 uninvoiced
		assert.True(t, responses[0].TrueRemainingQty.Equal(dec("30")))
		assert.True(t, responses[0].IsAdjusted)
		assert.True(t, responses[0].HasLegacy)
		assert.True(t, responses[0].IsNearExhausted)
	})

	t.Run("empty listing short-circuits reconciliation", func(t *testing.T) {
		service, arrivalRepo, poLineRepo := newTestArrivalService(stubRateSource{})
		filter := invoicing.ArrivalFilter{}
		arrivalRepo.On("FindUninvoiced", mock.Anything, filter).Return([]*invoicing.ArrivalLine{}, nil)
		arrivalRepo.On("CountUninvoiced", mock.Anything, filter).Return(int64(0), nil)

		responses, count, err := service.ListUninvoiced(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
		assert.Empty(t, responses)
		poLineRepo.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
	})
}

func TestValidateSelectionService(t *testing.T) {
	ctx := context.Background()
	poLineID := uuid.New()

	t.Run("empty selection blocks without a repository error", func(t *testing.T) {
		service, _, _ := newTestArrivalService(stubRateSource{})

		response, err := service.ValidateSelection(ctx, nil)
		require.NoError(t, err)
		assert.False(t, response.Valid)
		assert.Equal(t, "EMPTY_SELECTION", response.ErrorCode)
	})

	t.Run("unknown arrival line blocks", func(t *testing.T) {
		service, arrivalRepo, _ := newTestArrivalService(stubRateSource{})
		ids := []uuid.UUID{uuid.New(), uuid.New()}
		line := testArrivalLine(poLineID, "10", "1", valueobject.USD)
		arrivalRepo.On("FindByIDs", mock.Anything, ids).Return([]*invoicing.ArrivalLine{line}, nil)

		response, err := service.ValidateSelection(ctx, ids)
		require.NoError(t, err)
		assert.False(t, response.Valid)
		assert.Equal(t, "ARRIVAL_NOT_FOUND", response.ErrorCode)
	})

	t.Run("valid selection collects advisory warnings", func(t *testing.T) {
		service, arrivalRepo, poLineRepo := newTestArrivalService(stubRateSource{})
		lineA := testArrivalLine(poLineID, "10", "1", valueobject.USD)
		lineB := testArrivalLine(poLineID, "10", "1", valueobject.USD)
		lineB.VATPercent = dec("5")
		poLine := testPOLine(poLineID, "100", valueobject.USD, "8")
		ids := []uuid.UUID{lineA.ID, lineB.ID}

		arrivalRepo.On("FindByIDs", mock.Anything, ids).Return([]*invoicing.ArrivalLine{lineA, lineB}, nil)
		poLineRepo.On("FindByIDs", mock.Anything, mock.Anything).Return([]*invoicing.POLine{poLine}, nil)
		poLineRepo.On("InvoiceHistory", mock.Anything, mock.Anything).Return([]invoicing.InvoiceHistoryRow{}, nil)

		response, err := service.ValidateSelection(ctx, ids)
		require.NoError(t, err)
		assert.True(t, response.Valid)
		assert.True(t, hasWarningContaining(response.Warnings, "VAT"))
	})

	t.Run("repository failure propagates", func(t *testing.T) {
		service, arrivalRepo, _ := newTestArrivalService(stubRateSource{})
		ids := []uuid.UUID{uuid.New()}
		arrivalRepo.On("FindByIDs", mock.Anything, ids).Return(nil, errors.New("connection reset"))

		_, err := service.ValidateSelection(ctx, ids)
		assert.Error(t, err)
	})
}

func TestPreviewTotals(t *testing.T) {
	ctx := context.Background()
	poLineID := uuid.New()

	setup := func(source stubRateSource, lines []*invoicing.ArrivalLine, poLines []*invoicing.POLine) *ArrivalService {
		service, arrivalRepo, poLineRepo := newTestArrivalService(source)
		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ID)
		}
		arrivalRepo.On("FindByIDs", mock.Anything, ids).Return(lines, nil)
		poLineRepo.On("FindByIDs", mock.Anything, mock.Anything).Return(poLines, nil)
		poLineRepo.On("InvoiceHistory", mock.Anything, mock.Anything).Return([]invoicing.InvoiceHistoryRow{}, nil)
		return service
	}

	t.Run("same-currency preview", func(t *testing.T) {
		line := testArrivalLine(poLineID, "4", "2.50", valueobject.USD)
		poLine := testPOLine(poLineID, "100", valueobject.USD, "8")
		service := setup(stubRateSource{err: errors.New("api down")}, []*invoicing.ArrivalLine{line}, []*invoicing.POLine{poLine})

		preview, err := service.PreviewTotals(ctx, []uuid.UUID{line.ID}, valueobject.USD)
		require.NoError(t, err)
		assert.Equal(t, 1, preview.LineCount)
		assert.Equal(t, 1, preview.PONumberCount)
		assert.Equal(t, 1, preview.ArrivalNoteCount)
		assert.Equal(t, "USD", preview.Currency)
		// 4 × 2.50 = 10, VAT 10% (the preview uses the arrival line's rate)
		assert.True(t, preview.Subtotal.Equal(dec("10")))
		assert.True(t, preview.VATAmount.Equal(dec("1")))
		assert.True(t, preview.Total.Equal(dec("11")))
		assert.False(t, preview.SameCurrencyFallback)
	})

	t.Run("cross-currency preview converts at the resolved rate", func(t *testing.T) {
		line := testArrivalLine(poLineID, "4", "2.50", valueobject.EUR)
		poLine := testPOLine(poLineID, "100", valueobject.EUR, "8")
		service := setup(stubRateSource{rate: dec("2")}, []*invoicing.ArrivalLine{line}, []*invoicing.POLine{poLine})

		preview, err := service.PreviewTotals(ctx, []uuid.UUID{line.ID}, valueobject.USD)
		require.NoError(t, err)
		assert.Equal(t, "USD", preview.Currency)
		assert.True(t, preview.Subtotal.Equal(dec("20")))
		require.NotNil(t, preview.ExchangeRate)
		assert.True(t, preview.ExchangeRate.Equal(dec("2")))
	})

	t.Run("missing rate falls back to PO-currency totals with a warning", func(t *testing.T) {
		line := testArrivalLine(poLineID, "4", "2.50", valueobject.EUR)
		poLine := testPOLine(poLineID, "100", valueobject.EUR, "8")
		service := setup(stubRateSource{err: errors.New("api down")}, []*invoicing.ArrivalLine{line}, []*invoicing.POLine{poLine})

		preview, err := service.PreviewTotals(ctx, []uuid.UUID{line.ID}, valueobject.USD)
		require.NoError(t, err)
		assert.True(t, preview.SameCurrencyFallback)
		assert.Equal(t, "EUR", preview.Currency)
		assert.Nil(t, preview.ExchangeRate)
		// Never a silent 1.0 conversion: amounts stay in EUR
		assert.True(t, preview.Subtotal.Equal(dec("10")))
		assert.True(t, hasWarningContaining(preview.Warnings, "totals shown in EUR"))
	})

	t.Run("invalid currency is rejected", func(t *testing.T) {
		service, _, _ := newTestArrivalService(stubRateSource{})
		_, err := service.PreviewTotals(ctx, []uuid.UUID{uuid.New()}, valueobject.Currency("XXX"))
		assert.Equal(t, "INVALID_INPUT", domainCode(t, err))
	})
}

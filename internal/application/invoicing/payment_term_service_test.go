package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erp/vendor-invoice/internal/domain/invoicing"
)

func TestPaymentTermServiceList(t *testing.T) {
	ctx := context.Background()
	termRepo := new(MockPaymentTermRepository)
	service := NewPaymentTermService(termRepo)

	terms := []*invoicing.PaymentTerm{
		{ID: uuid.New(), Name: "NET 60 DAYS"},
		{ID: uuid.New(), Name: "ADVANCE"},
		{ID: uuid.New(), Name: "NET 30 DAYS"},
		{ID: uuid.New(), Name: "AMS 15 DAYS"}, // 15 + 15 approximation = 30
	}
	termRepo.On("FindAll", mock.Anything).Return(terms, nil)

	responses, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, responses, 4)

	// Sorted by derived day count, name breaking ties
	assert.Equal(t, "ADVANCE", responses[0].Name)
	assert.Equal(t, 0, responses[0].Days)
	assert.Equal(t, "AMS 15 DAYS", responses[1].Name)
	assert.Equal(t, 30, responses[1].Days)
	assert.Equal(t, "NET 30 DAYS", responses[2].Name)
	assert.Equal(t, "NET 60 DAYS", responses[3].Name)
	assert.Equal(t, 60, responses[3].Days)
}

func TestPaymentTermServicePreviewDueDate(t *testing.T) {
	service := NewPaymentTermService(new(MockPaymentTermRepository))
	invoiceDate := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)

	t.Run("net term derives a firm due date", func(t *testing.T) {
		preview := service.PreviewDueDate("NET 30 DAYS", invoiceDate, "")
		require.NotNil(t, preview.DueDate)
		assert.Equal(t, invoiceDate.AddDate(0, 0, 30), *preview.DueDate)
		assert.False(t, preview.NeedsReview)
	})

	t.Run("split term always needs review", func(t *testing.T) {
		preview := service.PreviewDueDate("50% ADVANCE, 50% NET 30", invoiceDate, "")
		assert.True(t, preview.NeedsReview)
		assert.Equal(t, string(invoicing.PaymentTermSplit), preview.Category)
	})

	t.Run("catalogued term resolves through the repository", func(t *testing.T) {
		termRepo := new(MockPaymentTermRepository)
		svc := NewPaymentTermService(termRepo)
		termID := uuid.New()
		termRepo.On("FindByID", mock.Anything, termID).Return(&invoicing.PaymentTerm{
			ID:   termID,
			Name: "COD",
		}, nil)

		preview, err := svc.PreviewDueDateByID(context.Background(), termID, invoiceDate)
		require.NoError(t, err)
		require.NotNil(t, preview.DueDate)
		assert.Equal(t, invoiceDate, *preview.DueDate)
	})
}

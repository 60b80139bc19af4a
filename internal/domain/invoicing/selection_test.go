package invoicing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arrival(vendor, entity string, vt VendorType) *ArrivalLine {
	return &ArrivalLine{
		ID:         uuid.New(),
		VendorCode: vendor,
		EntityCode: entity,
		VendorType: vt,
	}
}

func TestSelectionSet(t *testing.T) {
	s := NewSelectionSet()
	id := uuid.New()

	assert.True(t, s.Toggle(id))
	assert.True(t, s.Contains(id))
	assert.Equal(t, 1, s.Len())

	assert.False(t, s.Toggle(id))
	assert.False(t, s.Contains(id))
	assert.Equal(t, 0, s.Len())

	s.Toggle(uuid.New())
	s.Toggle(uuid.New())
	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestValidateSelection(t *testing.T) {
	t.Run("empty selection is blocked", func(t *testing.T) {
		result := ValidateSelection(nil)
		require.NotNil(t, result.BlockingError)
		assert.Equal(t, "EMPTY_SELECTION", result.BlockingError.Code)
	})

	t.Run("two vendor codes are blocked", func(t *testing.T) {
		result := ValidateSelection([]*ArrivalLine{
			arrival("V001", "E1", VendorTypeExternal),
			arrival("V002", "E1", VendorTypeExternal),
		})
		require.NotNil(t, result.BlockingError)
		assert.Equal(t, "MULTI_VENDOR", result.BlockingError.Code)
	})

	t.Run("two entity codes are blocked", func(t *testing.T) {
		result := ValidateSelection([]*ArrivalLine{
			arrival("V001", "E1", VendorTypeExternal),
			arrival("V001", "E2", VendorTypeExternal),
		})
		require.NotNil(t, result.BlockingError)
		assert.Equal(t, "MULTI_ENTITY", result.BlockingError.Code)
	})

	t.Run("mixed vendor types are blocked", func(t *testing.T) {
		result := ValidateSelection([]*ArrivalLine{
			arrival("V001", "E1", VendorTypeExternal),
			arrival("V001", "E1", VendorTypeInternal),
		})
		require.NotNil(t, result.BlockingError)
		assert.Equal(t, "MIXED_VENDOR_TYPE", result.BlockingError.Code)
	})

	t.Run("two VAT rates pass with a warning", func(t *testing.T) {
		a := arrival("V001", "E1", VendorTypeExternal)
		a.VATPercent = decimal.NewFromInt(10)
		b := arrival("V001", "E1", VendorTypeExternal)
		b.VATPercent = decimal.NewFromInt(8)
		result := ValidateSelection([]*ArrivalLine{a, b})
		assert.True(t, result.IsValid())
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "VAT")
	})

	t.Run("mixed payment terms warn with the majority term", func(t *testing.T) {
		a := arrival("V001", "E1", VendorTypeExternal)
		a.PaymentTermName = "NET 30 DAYS"
		b := arrival("V001", "E1", VendorTypeExternal)
		b.PaymentTermName = "NET 30 DAYS"
		c := arrival("V001", "E1", VendorTypeExternal)
		c.PaymentTermName = "COD"
		result := ValidateSelection([]*ArrivalLine{a, b, c})
		assert.True(t, result.IsValid())
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "NET 30 DAYS")
	})
}

func TestMajorityPaymentTerm(t *testing.T) {
	a := &ArrivalLine{PaymentTermName: "NET 30 DAYS"}
	b := &ArrivalLine{PaymentTermName: "COD"}

	term, mixed := MajorityPaymentTerm([]*ArrivalLine{a, a, b})
	assert.Equal(t, "NET 30 DAYS", term)
	assert.True(t, mixed)

	term, mixed = MajorityPaymentTerm([]*ArrivalLine{a, a})
	assert.Equal(t, "NET 30 DAYS", term)
	assert.False(t, mixed)

	// tie breaks deterministically towards the smaller term
	term, _ = MajorityPaymentTerm([]*ArrivalLine{a, b})
	assert.Equal(t, "COD", term)
}

// poSelection reconciles a single PO line with the given ordered quantity and
// invoice history against arrival lines carrying the given uninvoiced
// quantities, so validation sees the same statuses production builds.
func poSelection(ordered string, history []InvoiceHistoryRow, uninvoiced ...string) []ArrivalLineStatus {
	poLine := &POLine{
		ID:              uuid.New(),
		PONumber:        "PO-200",
		OrderedQuantity: decimal.RequireFromString(ordered),
	}
	for i := range history {
		history[i].POLineID = poLine.ID
	}
	poStatuses := ReconcilePOLines([]*POLine{poLine}, history)

	lines := make([]*ArrivalLine, 0, len(uninvoiced))
	for _, qty := range uninvoiced {
		lines = append(lines, &ArrivalLine{
			ID:                 uuid.New(),
			POLineID:           poLine.ID,
			ArrivalNoteNumber:  "AN-1",
			UninvoicedQuantity: decimal.RequireFromString(qty),
		})
	}
	return ReconcileArrivals(lines, poStatuses)
}

func legacyRows(qty string, count int) []InvoiceHistoryRow {
	rows := make([]InvoiceHistoryRow, count)
	for i := range rows {
		rows[i] = InvoiceHistoryRow{Quantity: decimal.RequireFromString(qty)}
	}
	return rows
}

func TestValidateSelectionAgainstPO(t *testing.T) {
	t.Run("within remaining passes clean", func(t *testing.T) {
		result := ValidateSelectionAgainstPO(poSelection("100", nil, "40", "30"))
		assert.True(t, result.IsValid())
		assert.Empty(t, result.Warnings)
	})

	t.Run("exactly 110 percent passes", func(t *testing.T) {
		result := ValidateSelectionAgainstPO(poSelection("100", nil, "110"))
		assert.True(t, result.IsValid())
	})

	t.Run("110.01 percent is blocked", func(t *testing.T) {
		result := ValidateSelectionAgainstPO(poSelection("100", nil, "110.01"))
		require.NotNil(t, result.BlockingError)
		assert.Equal(t, "PO_QUANTITY_EXCEEDED", result.BlockingError.Code)
	})

	t.Run("clamped true remaining does not mask over-selection", func(t *testing.T) {
		statuses := poSelection("100", nil, "110.01")
		require.Len(t, statuses, 1)
		assert.True(t, statuses[0].TrueRemainingQty.Equal(decimal.NewFromInt(100)))

		result := ValidateSelectionAgainstPO(statuses)
		require.NotNil(t, result.BlockingError)
		assert.Equal(t, "PO_QUANTITY_EXCEEDED", result.BlockingError.Code)
	})

	t.Run("split across lines sums per PO line", func(t *testing.T) {
		result := ValidateSelectionAgainstPO(poSelection("100", nil, "60", "50.01"))
		require.NotNil(t, result.BlockingError)
		assert.Equal(t, "PO_QUANTITY_EXCEEDED", result.BlockingError.Code)
	})

	t.Run("legacy exposure warns without blocking", func(t *testing.T) {
		result := ValidateSelectionAgainstPO(poSelection("100", legacyRows("12.5", 2), "40"))
		assert.True(t, result.IsValid())
		require.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0], "legacy")
	})

	t.Run("over 90 percent of remaining warns", func(t *testing.T) {
		result := ValidateSelectionAgainstPO(poSelection("100", nil, "95"))
		assert.True(t, result.IsValid())
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "90%")
	})

	t.Run("over-delivery flags surface as warnings", func(t *testing.T) {
		statuses := poSelection("100", nil, "10")
		statuses[0].IsOverDelivered = true
		result := ValidateSelectionAgainstPO(statuses)
		assert.True(t, result.IsValid())
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "over-delivered")
	})
}

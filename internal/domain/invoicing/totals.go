package invoicing

import (
	"github.com/shopspring/decimal"

	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

var hundred = decimal.NewFromInt(100)

// TotalsLine is one validated line entering totals calculation. Quantity is
// the true remaining quantity when reconciliation has run, the raw uninvoiced
// quantity otherwise.
type TotalsLine struct {
	UnitCost   valueobject.Money
	Quantity   decimal.Decimal
	VATPercent decimal.Decimal
}

// InvoiceTotals is the computed financial summary of an invoice. Amounts are
// rounded to 2 decimal places at aggregation, not per line, so heterogeneous
// VAT rates do not compound rounding drift.
type InvoiceTotals struct {
	Subtotal      valueobject.Money
	VAT           valueobject.Money
	Total         valueobject.Money
	LineCount     int
	TotalQuantity decimal.Decimal
}

// CalculateTotals computes subtotal, VAT and total for the given lines in
// the target currency. fxRate converts each line's cost into the target
// currency; pass one when the PO currency differs from the invoice currency
// and nil for same-currency totals. Callers must not substitute 1.0 for a
// missing rate: resolve it or fall back to same-currency totals explicitly.
func CalculateTotals(lines []TotalsLine, fxRate *decimal.Decimal, target valueobject.Currency) InvoiceTotals {
	subtotal := decimal.Zero
	vat := decimal.Zero
	quantity := decimal.Zero
	for _, line := range lines {
		amount := line.UnitCost.Amount().Mul(line.Quantity)
		if fxRate != nil {
			amount = amount.Mul(*fxRate)
		}
		subtotal = subtotal.Add(amount)
		vat = vat.Add(amount.Mul(line.VATPercent).Div(hundred))
		quantity = quantity.Add(line.Quantity)
	}
	subtotal = subtotal.Round(2)
	vat = vat.Round(2)
	return InvoiceTotals{
		Subtotal:      mustMoney(subtotal, target),
		VAT:           mustMoney(vat, target),
		Total:         mustMoney(subtotal.Add(vat), target),
		LineCount:     len(lines),
		TotalQuantity: quantity,
	}
}

// LineAmounts recomputes one line's amount excluding and including VAT at the
// given rate, the per-line counterpart of CalculateTotals used when detail
// rows are persisted with their own snapshot.
func LineAmounts(unitCost valueobject.Money, qty, vatPercent decimal.Decimal, fxRate *decimal.Decimal) (excl, incl decimal.Decimal) {
	excl = unitCost.Amount().Mul(qty)
	if fxRate != nil {
		excl = excl.Mul(*fxRate)
	}
	incl = excl.Add(excl.Mul(vatPercent).Div(hundred))
	return excl.Round(2), incl.Round(2)
}

func mustMoney(amount decimal.Decimal, currency valueobject.Currency) valueobject.Money {
	m, _ := valueobject.NewMoney(amount, currency)
	return m
}

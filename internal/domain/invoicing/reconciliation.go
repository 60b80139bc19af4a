package invoicing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceHistoryRow is one invoice-detail row from the persisted history of a
// PO line. Rows with no arrival linkage predate arrival-level tracking and
// are counted as legacy exposure.
type InvoiceHistoryRow struct {
	POLineID      uuid.UUID
	ArrivalLineID *uuid.UUID
	Quantity      decimal.Decimal
}

// POLineStatus is the reconciled invoicing position of one PO line.
// RemainingQuantity may go negative when history already over-invoices the
// ordered quantity; it is clamped only inside TrueRemaining so that the raw
// exposure stays visible.
type POLineStatus struct {
	POLineID          uuid.UUID
	PONumber          string
	OrderedQuantity   decimal.Decimal
	LegacyQuantity    decimal.Decimal
	LegacyRowCount    int
	NewQuantity       decimal.Decimal
	RemainingQuantity decimal.Decimal
}

// HasLegacy reports whether any invoice-detail rows without arrival linkage
// exist for this PO line
func (s POLineStatus) HasLegacy() bool {
	return s.LegacyQuantity.IsPositive()
}

// ArrivalLineStatus augments an arrival line with its reconciled position
// against the parent PO line.
type ArrivalLineStatus struct {
	Line             *ArrivalLine
	POStatus         POLineStatus
	TrueRemainingQty decimal.Decimal
	HasLegacy        bool
	IsAdjusted       bool
	IsNearExhausted  bool
	IsOverDelivered  bool
	IsOverInvoiced   bool
}

// ReconcilePOLines partitions invoice history by arrival linkage and computes
// the remaining invoiceable quantity per PO line.
func ReconcilePOLines(poLines []*POLine, history []InvoiceHistoryRow) map[uuid.UUID]POLineStatus {
	statuses := make(map[uuid.UUID]POLineStatus, len(poLines))
	for _, line := range poLines {
		statuses[line.ID] = POLineStatus{
			POLineID:          line.ID,
			PONumber:          line.PONumber,
			OrderedQuantity:   line.OrderedQuantity,
			RemainingQuantity: line.OrderedQuantity,
		}
	}
	for _, row := range history {
		status, ok := statuses[row.POLineID]
		if !ok {
			continue
		}
		if row.ArrivalLineID == nil {
			status.LegacyQuantity = status.LegacyQuantity.Add(row.Quantity)
			status.LegacyRowCount++
		} else {
			status.NewQuantity = status.NewQuantity.Add(row.Quantity)
		}
		status.RemainingQuantity = status.OrderedQuantity.
			Sub(status.LegacyQuantity).
			Sub(status.NewQuantity)
		statuses[row.POLineID] = status
	}
	return statuses
}

// TrueRemaining is the ceiling for what may be invoiced from an arrival line:
// the lesser of the AN-level uninvoiced quantity and the PO-level remaining
// quantity, clamped at zero.
func TrueRemaining(uninvoiced, poRemaining decimal.Decimal) decimal.Decimal {
	remaining := decimal.Min(uninvoiced, poRemaining)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ReconcileArrivals computes the true remaining quantity and risk flags for
// each arrival line against its reconciled PO line. Arrival lines whose PO
// line is missing from the status map get a zero true remaining and are
// flagged as adjusted.
func ReconcileArrivals(lines []*ArrivalLine, poStatuses map[uuid.UUID]POLineStatus) []ArrivalLineStatus {
	result := make([]ArrivalLineStatus, 0, len(lines))
	for _, line := range lines {
		poStatus, ok := poStatuses[line.POLineID]
		if !ok {
			result = append(result, ArrivalLineStatus{
				Line:             line,
				TrueRemainingQty: decimal.Zero,
				IsAdjusted:       line.UninvoicedQuantity.IsPositive(),
				IsOverDelivered:  line.IsOverDelivered,
				IsOverInvoiced:   line.IsOverInvoiced,
			})
			continue
		}
		trueRemaining := TrueRemaining(line.UninvoicedQuantity, poStatus.RemainingQuantity)
		result = append(result, ArrivalLineStatus{
			Line:             line,
			POStatus:         poStatus,
			TrueRemainingQty: trueRemaining,
			HasLegacy:        poStatus.HasLegacy(),
			IsAdjusted:       trueRemaining.LessThan(line.UninvoicedQuantity),
			IsNearExhausted:  poStatus.RemainingQuantity.LessThan(line.UninvoicedQuantity),
			IsOverDelivered:  line.IsOverDelivered,
			IsOverInvoiced:   line.IsOverInvoiced,
		})
	}
	return result
}

package invoicing

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/vendor-invoice/internal/domain/shared"
)

// poToleranceFactor is the ceiling multiplier applied to a PO line's
// remaining quantity: selections up to 110% of remaining pass, absorbing
// rounding and timing drift between the ordering and receiving systems.
var poToleranceFactor = decimal.NewFromFloat(1.1)

// poWarningFactor triggers a non-blocking near-exhaustion warning
var poWarningFactor = decimal.NewFromFloat(0.9)

// SelectionSet is the user-curated set of arrival-line IDs for one pending
// invoice. It only tracks membership; consistency is checked by Validate
// against the loaded lines.
type SelectionSet struct {
	members map[uuid.UUID]struct{}
}

// NewSelectionSet creates an empty selection
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{members: make(map[uuid.UUID]struct{})}
}

// Toggle adds the ID when absent and removes it when present, returning
// whether the ID is selected afterwards.
func (s *SelectionSet) Toggle(id uuid.UUID) bool {
	if _, ok := s.members[id]; ok {
		delete(s.members, id)
		return false
	}
	s.members[id] = struct{}{}
	return true
}

// Contains reports membership
func (s *SelectionSet) Contains(id uuid.UUID) bool {
	_, ok := s.members[id]
	return ok
}

// Clear empties the selection
func (s *SelectionSet) Clear() {
	s.members = make(map[uuid.UUID]struct{})
}

// Len returns the number of selected lines
func (s *SelectionSet) Len() int {
	return len(s.members)
}

// IDs returns the selected IDs in stable order
func (s *SelectionSet) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// SelectionValidation is the outcome of validating a selection: a nil
// BlockingError with zero or more advisory warnings means the selection may
// proceed to invoicing.
type SelectionValidation struct {
	BlockingError *shared.DomainError
	Warnings      []string
}

// IsValid reports whether the selection may proceed
func (v SelectionValidation) IsValid() bool {
	return v.BlockingError == nil
}

// ValidateSelection enforces cross-line consistency: the selection must be
// non-empty and all lines must share vendor code, legal-entity code and
// vendor type. The first violation found is the blocking error.
func ValidateSelection(lines []*ArrivalLine) SelectionValidation {
	if len(lines) == 0 {
		return SelectionValidation{
			BlockingError: shared.NewDomainError("EMPTY_SELECTION", "No arrival lines selected"),
		}
	}
	first := lines[0]
	for _, line := range lines[1:] {
		if line.VendorCode != first.VendorCode {
			return SelectionValidation{
				BlockingError: shared.NewDomainError("MULTI_VENDOR",
					fmt.Sprintf("Selection spans multiple vendors: %s and %s", first.VendorCode, line.VendorCode)),
			}
		}
		if line.EntityCode != first.EntityCode {
			return SelectionValidation{
				BlockingError: shared.NewDomainError("MULTI_ENTITY",
					fmt.Sprintf("Selection spans multiple legal entities: %s and %s", first.EntityCode, line.EntityCode)),
			}
		}
		if line.VendorType != first.VendorType {
			return SelectionValidation{
				BlockingError: shared.NewDomainError("MIXED_VENDOR_TYPE",
					"Selection mixes internal and external vendor lines"),
			}
		}
	}
	return SelectionValidation{Warnings: advisoryWarnings(lines)}
}

// ValidateSelectionAgainstPO checks selected quantities against each PO
// line's reconciled remaining quantity. The check sums the raw uninvoiced
// quantity of the selected lines, not the clamped true remaining: the clamp
// would hide over-selection instead of blocking it. Exactly 110% of
// remaining passes; anything above blocks.
func ValidateSelectionAgainstPO(statuses []ArrivalLineStatus) SelectionValidation {
	type poAggregate struct {
		status   POLineStatus
		selected decimal.Decimal
	}
	byPO := make(map[uuid.UUID]*poAggregate)
	order := make([]uuid.UUID, 0)
	for _, s := range statuses {
		agg, ok := byPO[s.Line.POLineID]
		if !ok {
			agg = &poAggregate{status: s.POStatus}
			byPO[s.Line.POLineID] = agg
			order = append(order, s.Line.POLineID)
		}
		agg.selected = agg.selected.Add(s.Line.UninvoicedQuantity)
	}

	var warnings []string
	for _, poID := range order {
		agg := byPO[poID]
		remaining := agg.status.RemainingQuantity
		ceiling := remaining.Mul(poToleranceFactor)
		if agg.selected.GreaterThan(ceiling) {
			return SelectionValidation{
				BlockingError: shared.NewDomainError("PO_QUANTITY_EXCEEDED",
					fmt.Sprintf("PO %s: selected quantity %s exceeds remaining %s beyond the 10%% tolerance",
						agg.status.PONumber, agg.selected, remaining)),
			}
		}
		if agg.status.HasLegacy() {
			warnings = append(warnings, fmt.Sprintf(
				"PO %s has %s units across %d legacy invoice rows not traceable to an arrival",
				agg.status.PONumber, agg.status.LegacyQuantity, agg.status.LegacyRowCount))
		}
		if agg.selected.GreaterThan(remaining.Mul(poWarningFactor)) {
			warnings = append(warnings, fmt.Sprintf(
				"PO %s: selected quantity %s uses over 90%% of remaining %s",
				agg.status.PONumber, agg.selected, remaining))
		}
	}
	for _, s := range statuses {
		if s.IsOverDelivered {
			warnings = append(warnings, fmt.Sprintf("Arrival %s is over-delivered", s.Line.ArrivalNoteNumber))
		}
		if s.IsOverInvoiced {
			warnings = append(warnings, fmt.Sprintf("Arrival %s is over-invoiced", s.Line.ArrivalNoteNumber))
		}
	}
	return SelectionValidation{Warnings: warnings}
}

// advisoryWarnings covers the informational checks: heterogeneous payment
// terms (the majority term wins for the invoice header) and heterogeneous
// VAT rates (each line keeps its own rate).
func advisoryWarnings(lines []*ArrivalLine) []string {
	var warnings []string
	if term, mixed := MajorityPaymentTerm(lines); mixed {
		warnings = append(warnings, fmt.Sprintf(
			"Lines carry different payment terms; using the majority term %q", term))
	}
	vatRates := make(map[string]struct{})
	for _, line := range lines {
		vatRates[line.VATPercent.String()] = struct{}{}
	}
	if len(vatRates) > 1 {
		warnings = append(warnings,
			"Lines carry different VAT rates; each invoice line keeps its own rate")
	}
	return warnings
}

// MajorityPaymentTerm returns the most frequent payment term among the lines
// and whether more than one distinct term appears. Ties break towards the
// lexicographically smaller term so the result is deterministic.
func MajorityPaymentTerm(lines []*ArrivalLine) (string, bool) {
	counts := make(map[string]int)
	for _, line := range lines {
		counts[line.PaymentTermName]++
	}
	best := ""
	bestCount := -1
	for term, count := range counts {
		if count > bestCount || (count == bestCount && term < best) {
			best = term
			bestCount = count
		}
	}
	return best, len(counts) > 1
}

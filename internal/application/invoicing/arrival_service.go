package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/vendor-invoice/internal/domain/currency"
	"github.com/erp/vendor-invoice/internal/domain/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/shared"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// ArrivalService serves the invoice wizard: uninvoiced-arrival listing,
// selection validation and the totals preview.
type ArrivalService struct {
	arrivalRepo invoicing.ArrivalLineRepository
	poLineRepo  invoicing.POLineRepository
	resolver    *currency.Resolver
	logger      *zap.Logger
}

// NewArrivalService creates a new ArrivalService
func NewArrivalService(
	arrivalRepo invoicing.ArrivalLineRepository,
	poLineRepo invoicing.POLineRepository,
	resolver *currency.Resolver,
	logger *zap.Logger,
) *ArrivalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArrivalService{
		arrivalRepo: arrivalRepo,
		poLineRepo:  poLineRepo,
		resolver:    resolver,
		logger:      logger,
	}
}

// ListUninvoiced lists uninvoiced arrival lines matching the filter, each
// reconciled against its PO line so the listing shows true remaining
// quantities, not raw uninvoiced ones.
func (s *ArrivalService) ListUninvoiced(ctx context.Context, filter invoicing.ArrivalFilter) ([]ArrivalLineResponse, int64, error) {
	lines, err := s.arrivalRepo.FindUninvoiced(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.arrivalRepo.CountUninvoiced(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	statuses, err := s.reconcile(ctx, lines)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]ArrivalLineResponse, 0, len(statuses))
	for _, st := range statuses {
		responses = append(responses, ToArrivalLineResponse(st))
	}
	return responses, count, nil
}

// ValidateSelection checks a candidate selection: cross-line consistency
// first, then PO quantity ceilings and the advisory warnings. A blocking
// error short-circuits; warnings accumulate.
func (s *ArrivalService) ValidateSelection(ctx context.Context, ids []uuid.UUID) (*SelectionValidationResponse, error) {
	lines, err := s.loadSelection(ctx, ids)
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			return blockedSelection(de), nil
		}
		return nil, err
	}

	validation := invoicing.ValidateSelection(lines)
	if !validation.IsValid() {
		return blockedSelection(validation.BlockingError), nil
	}
	warnings := validation.Warnings

	statuses, err := s.reconcile(ctx, lines)
	if err != nil {
		return nil, err
	}
	poCheck := invoicing.ValidateSelectionAgainstPO(statuses)
	if !poCheck.IsValid() {
		return blockedSelection(poCheck.BlockingError), nil
	}
	warnings = append(warnings, poCheck.Warnings...)

	return &SelectionValidationResponse{Valid: true, Warnings: warnings}, nil
}

// PreviewTotals computes the selection summary shown before creation: line,
// PO and arrival-note statistics plus subtotal, VAT and total in the invoice
// currency. When the conversion rate cannot be resolved the preview falls
// back to same-currency totals with an explicit warning; it never substitutes
// a silent 1.0 rate.
func (s *ArrivalService) PreviewTotals(ctx context.Context, ids []uuid.UUID, invoiceCurrency valueobject.Currency) (*TotalsPreviewResponse, error) {
	if !invoiceCurrency.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Invalid invoice currency: %s", invoiceCurrency))
	}
	lines, err := s.loadSelection(ctx, ids)
	if err != nil {
		return nil, err
	}
	statuses, err := s.reconcile(ctx, lines)
	if err != nil {
		return nil, err
	}

	poCurrency := lines[0].UnitCostCurrency
	rates := s.resolver.CalculateRates(ctx, poCurrency, invoiceCurrency)
	_, warnings := currency.ValidateRates(rates, poCurrency, invoiceCurrency)

	target := invoiceCurrency
	fallback := false
	var fxRate *decimal.Decimal
	if poCurrency != invoiceCurrency {
		if rates.POToInvoice == nil {
			target = poCurrency
			fallback = true
			warnings = append(warnings, fmt.Sprintf(
				"No %s to %s rate available; totals shown in %s", poCurrency, invoiceCurrency, poCurrency))
		} else {
			rate := rates.POToInvoice.Rate
			fxRate = &rate
		}
	}

	totalsLines := make([]invoicing.TotalsLine, 0, len(statuses))
	poNumbers := make(map[string]struct{})
	arrivalNotes := make(map[string]struct{})
	for _, st := range statuses {
		poNumbers[st.Line.PONumber] = struct{}{}
		arrivalNotes[st.Line.ArrivalNoteNumber] = struct{}{}
		totalsLines = append(totalsLines, invoicing.TotalsLine{
			UnitCost:   st.Line.UnitCost(),
			Quantity:   st.TrueRemainingQty,
			VATPercent: st.Line.VATPercent,
		})
	}
	totals := invoicing.CalculateTotals(totalsLines, fxRate, target)

	return &TotalsPreviewResponse{
		LineCount:            totals.LineCount,
		TotalQuantity:        totals.TotalQuantity,
		PONumberCount:        len(poNumbers),
		ArrivalNoteCount:     len(arrivalNotes),
		Currency:             target.String(),
		Subtotal:             totals.Subtotal.Amount(),
		VATAmount:            totals.VAT.Amount(),
		Total:                totals.Total.Amount(),
		ExchangeRate:         fxRate,
		SameCurrencyFallback: fallback,
		Warnings:             warnings,
	}, nil
}

// loadSelection loads the arrival lines behind a selection, failing when the
// selection is empty or references unknown lines
func (s *ArrivalService) loadSelection(ctx context.Context, ids []uuid.UUID) ([]*invoicing.ArrivalLine, error) {
	if len(ids) == 0 {
		return nil, shared.NewDomainError("EMPTY_SELECTION", "No arrival lines selected")
	}
	lines, err := s.arrivalRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(lines) != len(ids) {
		return nil, shared.NewDomainError("ARRIVAL_NOT_FOUND", "Some selected arrival lines were not found")
	}
	return lines, nil
}

// reconcile loads PO lines and invoice history and computes the reconciled
// position per arrival line
func (s *ArrivalService) reconcile(ctx context.Context, lines []*invoicing.ArrivalLine) ([]invoicing.ArrivalLineStatus, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	poLineIDs := distinctPOLineIDs(lines)
	poLines, err := s.poLineRepo.FindByIDs(ctx, poLineIDs)
	if err != nil {
		return nil, err
	}
	history, err := s.poLineRepo.InvoiceHistory(ctx, poLineIDs)
	if err != nil {
		return nil, err
	}
	poStatuses := invoicing.ReconcilePOLines(poLines, history)
	return invoicing.ReconcileArrivals(lines, poStatuses), nil
}

func blockedSelection(err *shared.DomainError) *SelectionValidationResponse {
	return &SelectionValidationResponse{
		Valid:        false,
		ErrorCode:    err.Code,
		ErrorMessage: err.Message,
	}
}

package invoicing

import (
	"context"

	"github.com/erp/vendor-invoice/internal/domain/currency"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// RateService exposes exchange-rate resolution to the interface layer
type RateService struct {
	resolver *currency.Resolver
}

// NewRateService creates a new RateService
func NewRateService(resolver *currency.Resolver) *RateService {
	return &RateService{resolver: resolver}
}

// GetRate resolves the rate for one currency pair through cache, API and
// database fallback. Returns shared.ErrRateUnavailable when every tier misses.
func (s *RateService) GetRate(ctx context.Context, from, to valueobject.Currency) (*RateResponse, error) {
	resolved, err := s.resolver.Resolve(ctx, from, to)
	if err != nil {
		return nil, err
	}
	response := toRateResponse(resolved)
	return &response, nil
}

// GetRateSet resolves the PO→invoice and USD reporting rates for an invoice
// currency pair. Missing rates are left out rather than failing the set.
func (s *RateService) GetRateSet(ctx context.Context, poCurrency, invoiceCurrency valueobject.Currency) (poToInvoice, usdRate *RateResponse, warnings []string) {
	set := s.resolver.CalculateRates(ctx, poCurrency, invoiceCurrency)
	_, warnings = currency.ValidateRates(set, poCurrency, invoiceCurrency)
	if set.POToInvoice != nil {
		r := toRateResponse(*set.POToInvoice)
		poToInvoice = &r
	}
	if set.USDRate != nil {
		r := toRateResponse(*set.USDRate)
		usdRate = &r
	}
	return poToInvoice, usdRate, warnings
}

func toRateResponse(r currency.ResolvedRate) RateResponse {
	return RateResponse{
		From:       r.From.String(),
		To:         r.To.String(),
		Rate:       r.Rate,
		Origin:     string(r.Origin),
		ResolvedAt: r.ResolvedAt,
	}
}

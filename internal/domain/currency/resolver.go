package currency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/vendor-invoice/internal/domain/shared"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
)

// RateCache is the time-boxed cache in front of the rate source. Entries are
// immutable once written; expiry is purely time-based.
type RateCache interface {
	// Get returns the cached rate for the pair key, or false when absent or
	// expired
	Get(ctx context.Context, key string) (decimal.Decimal, bool)

	// Put stores a rate under the pair key with the given TTL
	Put(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration)
}

// RateSource is the external exchange-rate API
type RateSource interface {
	// FetchRate fetches the current rate for one currency pair. Any failure
	// (missing credentials, transport error, non-success response) is
	// returned as an error; callers fall through to the database.
	FetchRate(ctx context.Context, from, to valueobject.Currency) (decimal.Decimal, error)
}

// RateStore is the persisted rate table fallback
type RateStore interface {
	// LatestRate returns the most recent non-deleted rate for the exact pair
	LatestRate(ctx context.Context, from, to valueobject.Currency) (*ExchangeRate, error)
}

// Resolver resolves currency-pair rates through cache, API and database
// fallback, in that order.
type Resolver struct {
	cache    RateCache
	source   RateSource
	store    RateStore
	cacheTTL time.Duration
}

// NewResolver creates a rate resolver. A non-positive cacheTTL falls back to
// one hour.
func NewResolver(cache RateCache, source RateSource, store RateStore, cacheTTL time.Duration) *Resolver {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Resolver{cache: cache, source: source, store: store, cacheTTL: cacheTTL}
}

// Resolve resolves the rate for one currency pair. Same-currency pairs return
// exactly 1.0 without touching cache, API or database. Only API successes are
// cached, so a database fallback does not mask a recovered API on the next
// call. Returns shared.ErrRateUnavailable when every tier misses.
func (r *Resolver) Resolve(ctx context.Context, from, to valueobject.Currency) (ResolvedRate, error) {
	now := time.Now()
	if from == to {
		return ResolvedRate{From: from, To: to, Rate: decimal.NewFromInt(1), Origin: RateOriginSame, ResolvedAt: now}, nil
	}

	key := PairKey(from, to)
	if rate, ok := r.cache.Get(ctx, key); ok {
		return ResolvedRate{From: from, To: to, Rate: rate, Origin: RateOriginCache, ResolvedAt: now}, nil
	}

	if rate, err := r.source.FetchRate(ctx, from, to); err == nil && rate.IsPositive() {
		r.cache.Put(ctx, key, rate, r.cacheTTL)
		return ResolvedRate{From: from, To: to, Rate: rate, Origin: RateOriginAPI, ResolvedAt: now}, nil
	}

	if rate, ok := r.storedRate(ctx, from, to); ok {
		return ResolvedRate{From: from, To: to, Rate: rate, Origin: RateOriginDatabase, ResolvedAt: now}, nil
	}
	return ResolvedRate{}, shared.ErrRateUnavailable
}

// storedRate looks up the most recent direct-pair rate and falls back to the
// inverted inverse pair, guarding against zero or negative stored values.
func (r *Resolver) storedRate(ctx context.Context, from, to valueobject.Currency) (decimal.Decimal, bool) {
	if row, err := r.store.LatestRate(ctx, from, to); err == nil && row != nil && row.Rate.IsPositive() {
		return row.Rate, true
	}
	row, err := r.store.LatestRate(ctx, to, from)
	if err != nil || row == nil || !row.Rate.IsPositive() {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromInt(1).Div(row.Rate), true
}

// RateSet is the pair of rates an invoice needs: the PO→invoice conversion
// rate and the USD reporting rate. A nil entry means that rate could not be
// resolved.
type RateSet struct {
	POToInvoice *ResolvedRate
	USDRate     *ResolvedRate
}

// CalculateRates resolves the PO→invoice rate plus the USD reporting rate.
// The USD rate is always attempted regardless of whether conversion is
// needed; missing rates are left nil rather than failing the whole set.
func (r *Resolver) CalculateRates(ctx context.Context, poCurrency, invoiceCurrency valueobject.Currency) RateSet {
	var set RateSet
	if rate, err := r.Resolve(ctx, poCurrency, invoiceCurrency); err == nil {
		set.POToInvoice = &rate
	}
	if rate, err := r.Resolve(ctx, valueobject.ReportingCurrency, invoiceCurrency); err == nil {
		set.USDRate = &rate
	}
	return set
}

// ValidateRates checks a resolved rate set. Missing the PO→invoice rate on a
// cross-currency invoice blocks; a missing USD reporting rate only warns.
func ValidateRates(set RateSet, poCurrency, invoiceCurrency valueobject.Currency) (bool, []string) {
	var warnings []string
	if poCurrency != invoiceCurrency && set.POToInvoice == nil {
		return false, []string{fmt.Sprintf(
			"Could not fetch the %s to %s exchange rate required for conversion", poCurrency, invoiceCurrency)}
	}
	if set.USDRate == nil {
		warnings = append(warnings, fmt.Sprintf(
			"Could not fetch the USD to %s reporting rate", invoiceCurrency))
	}
	return true, warnings
}

// IsRateUnavailable reports whether the error is the soft rate-miss sentinel
func IsRateUnavailable(err error) bool {
	return errors.Is(err, shared.ErrRateUnavailable)
}

package core

// ledger.go keeps the exchange-rate history.
//
// Rates are never updated in place: a refresh is a new observation. Latest
// is the observation with the greatest timestamp, which need not be the one
// appended last.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// DefaultHistoryLimit caps History when the caller passes no limit.
const DefaultHistoryLimit = 100

// Ledger records and serves exchange rates on top of a RateStore.
type Ledger struct {
	store RateStore
	now   func() time.Time
}

// NewLedger creates a ledger over store.
func NewLedger(store RateStore) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// NormalizeCurrency trims and upper-cases a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Record appends a rate observation. A zero timestamp is stamped with the
// current time.
func (l *Ledger) Record(ctx context.Context, currency string, rate float64, ts time.Time) (ExchangeRate, error) {
	currency = NormalizeCurrency(currency)
	if currency == "" {
		return ExchangeRate{}, ValidationError{Field: "currency", Message: "required field is empty"}
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return ExchangeRate{}, &InvalidRateError{Currency: currency, Rate: rate}
	}
	if ts.IsZero() {
		ts = l.now()
	}

	rec := ExchangeRate{Currency: currency, Rate: rate, Timestamp: ts.UTC()}
	if err := l.store.AppendRate(ctx, rec); err != nil {
		return ExchangeRate{}, fmt.Errorf("append rate %s: %w", currency, err)
	}

	slog.Info("exchange rate recorded",
		"currency", currency,
		"rate", rate,
		"timestamp", rec.Timestamp,
		"client_ip", ClientIPFromContext(ctx))
	return rec, nil
}

// RecordBatch validates every observation before appending any of them.
// Stores implementing BatchRateStore receive the whole batch at once.
func (l *Ledger) RecordBatch(ctx context.Context, rates []ExchangeRate) ([]ExchangeRate, error) {
	recs := make([]ExchangeRate, 0, len(rates))
	for i, r := range rates {
		cur := NormalizeCurrency(r.Currency)
		if cur == "" {
			return nil, ValidationError{Field: "currency", Value: fmt.Sprintf("row %d", i+1), Message: "required field is empty"}
		}
		if r.Rate <= 0 || math.IsNaN(r.Rate) || math.IsInf(r.Rate, 0) {
			return nil, &InvalidRateError{Currency: cur, Rate: r.Rate}
		}
		ts := r.Timestamp
		if ts.IsZero() {
			ts = l.now()
		}
		recs = append(recs, ExchangeRate{Currency: cur, Rate: r.Rate, Timestamp: ts.UTC()})
	}
	if len(recs) == 0 {
		return recs, nil
	}

	if bs, ok := l.store.(BatchRateStore); ok {
		if err := bs.AppendRates(ctx, recs); err != nil {
			return nil, fmt.Errorf("append rates: %w", err)
		}
	} else {
		for _, rec := range recs {
			if err := l.store.AppendRate(ctx, rec); err != nil {
				return nil, fmt.Errorf("append rate %s: %w", rec.Currency, err)
			}
		}
	}

	slog.Info("exchange rates recorded", "count", len(recs), "client_ip", ClientIPFromContext(ctx))
	return recs, nil
}

// Latest returns the observation with the greatest timestamp for currency.
func (l *Ledger) Latest(ctx context.Context, currency string) (ExchangeRate, error) {
	currency = NormalizeCurrency(currency)
	rec, err := l.store.LatestRate(ctx, currency)
	if err != nil {
		return ExchangeRate{}, fmt.Errorf("latest rate %s: %w", currency, err)
	}
	if rec == nil {
		return ExchangeRate{}, &NotFoundError{Entity: "exchange rate", Key: currency}
	}
	return *rec, nil
}

// History returns observations for currency, newest first.
func (l *Ledger) History(ctx context.Context, currency string, limit int) ([]ExchangeRate, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	currency = NormalizeCurrency(currency)
	recs, err := l.store.RateHistory(ctx, currency, limit)
	if err != nil {
		return nil, fmt.Errorf("rate history %s: %w", currency, err)
	}
	return recs, nil
}

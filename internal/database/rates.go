package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/gamevault/internal/core"
)

const appendRate = `INSERT INTO exchange_rates (currency, rate, recorded_at) VALUES ($1, $2, $3)`

// AppendRate inserts one observation. Rows are never updated.
func (q *Queries) AppendRate(ctx context.Context, rate core.ExchangeRate) error {
	if _, err := q.db.Exec(ctx, appendRate, rate.Currency, rate.Rate, rate.Timestamp); err != nil {
		return fmt.Errorf("insert exchange rate: %w", err)
	}
	return nil
}

// AppendRates inserts observations in one round trip. It needs a DBTX that
// can send batches; wrap the call in a transaction for all-or-nothing.
func (q *Queries) AppendRates(ctx context.Context, rates []core.ExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}
	b, ok := q.db.(batcher)
	if !ok {
		for _, r := range rates {
			if err := q.AppendRate(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rates {
		batch.Queue(appendRate, r.Currency, r.Rate, r.Timestamp)
	}

	br := b.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert exchange rate %d of %d: %w", i+1, batch.Len(), err)
		}
	}
	return nil
}

// LatestRate returns the observation with the greatest timestamp, the most
// recently inserted one on ties, or nil when the currency has none.
func (q *Queries) LatestRate(ctx context.Context, currency string) (*core.ExchangeRate, error) {
	const query = `SELECT currency, rate, recorded_at FROM exchange_rates
		WHERE currency = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`

	var r core.ExchangeRate
	err := q.db.QueryRow(ctx, query, currency).Scan(&r.Currency, &r.Rate, &r.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest rate: %w", err)
	}
	r.Timestamp = r.Timestamp.UTC()
	return &r, nil
}

// RateHistory returns up to limit observations, newest first.
func (q *Queries) RateHistory(ctx context.Context, currency string, limit int) ([]core.ExchangeRate, error) {
	const query = `SELECT currency, rate, recorded_at FROM exchange_rates
		WHERE currency = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2`

	rows, err := q.db.Query(ctx, query, currency, limit)
	if err != nil {
		return nil, fmt.Errorf("query rate history: %w", err)
	}
	defer rows.Close()

	history := []core.ExchangeRate{}
	for rows.Next() {
		var r core.ExchangeRate
		if err := rows.Scan(&r.Currency, &r.Rate, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan exchange rate: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		history = append(history, r)
	}
	return history, rows.Err()
}

// Package cache puts Redis in front of the exchange-rate store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/gamevault/internal/core"
)

// DefaultRateTTL bounds how long a cached latest rate is served.
const DefaultRateTTL = 10 * time.Minute

// RateCacheConfig holds configuration for the Redis rate cache.
type RateCacheConfig struct {
	Addr      string        // Redis address (e.g., "127.0.0.1:6379")
	Password  string        // Redis password (empty if none)
	DB        int           // Redis database number
	TTL       time.Duration // Lifetime of a cached latest rate
	KeyPrefix string        // Namespace for every key, e.g. "gamevault:"
}

// RateCache is a core.RateStore that caches LatestRate in Redis.
//
// Writes go to the underlying store first. The cache then recomputes the
// latest rate from the store and writes it through, because an append is
// not necessarily the new latest (observations may arrive out of order).
// Every cache write is a compare-and-set on the rate timestamp, so a reader
// that loaded an older rate can never replace a newer one written by a
// concurrent append. Redis failures are logged and the store is used
// directly.
type RateCache struct {
	client    *redis.Client
	entries   latestEntries
	store     core.RateStore
	ttl       time.Duration
	keyPrefix string
}

var (
	_ core.RateStore      = (*RateCache)(nil)
	_ core.BatchRateStore = (*RateCache)(nil)
)

// NewRateCache connects to Redis and wraps store.
func NewRateCache(ctx context.Context, cfg RateCacheConfig, store core.RateStore) (*RateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	c := NewRateCacheWithClient(client, store, cfg.TTL, cfg.KeyPrefix)
	slog.Info("rate cache connected", "addr", cfg.Addr, "db", cfg.DB, "prefix", c.keyPrefix, "ttl", c.ttl)
	return c, nil
}

// NewRateCacheWithClient wraps store using an existing client.
func NewRateCacheWithClient(client *redis.Client, store core.RateStore, ttl time.Duration, keyPrefix string) *RateCache {
	c := newRateCache(redisEntries{client: client}, store, ttl, keyPrefix)
	c.client = client
	return c
}

func newRateCache(entries latestEntries, store core.RateStore, ttl time.Duration, keyPrefix string) *RateCache {
	if ttl <= 0 {
		ttl = DefaultRateTTL
	}
	if keyPrefix == "" {
		keyPrefix = "gamevault:"
	}
	return &RateCache{entries: entries, store: store, ttl: ttl, keyPrefix: keyPrefix}
}

// latestKey returns the namespaced key of a currency's latest rate.
func (c *RateCache) latestKey(currency string) string {
	return c.keyPrefix + "rate:latest:" + currency
}

// AppendRate stores rate and refreshes the cached latest rate.
func (c *RateCache) AppendRate(ctx context.Context, rate core.ExchangeRate) error {
	if err := c.store.AppendRate(ctx, rate); err != nil {
		return err
	}
	c.refresh(ctx, rate.Currency)
	return nil
}

// AppendRates stores rates, in one batch when the store supports it.
func (c *RateCache) AppendRates(ctx context.Context, rates []core.ExchangeRate) error {
	if bs, ok := c.store.(core.BatchRateStore); ok {
		if err := bs.AppendRates(ctx, rates); err != nil {
			return err
		}
	} else {
		for _, r := range rates {
			if err := c.store.AppendRate(ctx, r); err != nil {
				return err
			}
		}
	}

	seen := make(map[string]bool)
	var currencies []string
	for _, r := range rates {
		if !seen[r.Currency] {
			seen[r.Currency] = true
			currencies = append(currencies, r.Currency)
		}
	}
	c.refresh(ctx, currencies...)
	return nil
}

// refresh writes the store's current latest rate through to the cache. An
// entry that cannot be refreshed is dropped so the next read goes to the
// store.
func (c *RateCache) refresh(ctx context.Context, currencies ...string) {
	for _, cur := range currencies {
		key := c.latestKey(cur)
		latest, err := c.store.LatestRate(ctx, cur)
		if err == nil && latest != nil {
			err = c.entries.offer(ctx, key, *latest, c.ttl, true)
		}
		if err == nil {
			continue
		}
		slog.Warn("rate cache refresh failed", "key", key, "error", err)
		if err := c.entries.del(ctx, key); err != nil {
			slog.Warn("rate cache invalidate failed", "key", key, "error", err)
		}
	}
}

// LatestRate serves the cached latest rate or reads through to the store.
// A currency with no observations is not cached.
func (c *RateCache) LatestRate(ctx context.Context, currency string) (*core.ExchangeRate, error) {
	key := c.latestKey(currency)

	cached, err := c.entries.get(ctx, key)
	if err != nil {
		slog.Warn("rate cache read failed", "key", key, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	rate, err := c.store.LatestRate(ctx, currency)
	if err != nil || rate == nil {
		return rate, err
	}

	// Equal timestamps stay with the entry already cached: it came from a
	// write, which saw every append this read saw.
	if err := c.entries.offer(ctx, key, *rate, c.ttl, false); err != nil {
		slog.Warn("rate cache write failed", "key", key, "error", err)
	}
	return rate, nil
}

// RateHistory is not cached.
func (c *RateCache) RateHistory(ctx context.Context, currency string, limit int) ([]core.ExchangeRate, error) {
	return c.store.RateHistory(ctx, currency, limit)
}

// Ping checks the Redis connection.
func (c *RateCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *RateCache) Close() error {
	return c.client.Close()
}

// latestEntries holds one cached latest rate per key.
type latestEntries interface {
	// get returns nil, nil on a miss.
	get(ctx context.Context, key string) (*core.ExchangeRate, error)
	// offer stores rate unless the entry already holds a newer one, or an
	// equal one when replaceEqual is false.
	offer(ctx context.Context, key string, rate core.ExchangeRate, ttl time.Duration, replaceEqual bool) error
	del(ctx context.Context, key string) error
}

// supersedes reports whether next may replace the cached entry cur.
func supersedes(cur *core.ExchangeRate, next core.ExchangeRate, replaceEqual bool) bool {
	if cur == nil {
		return true
	}
	c, n := cur.Timestamp.UnixMicro(), next.Timestamp.UnixMicro()
	return n > c || (n == c && replaceEqual)
}

var errBadEntry = errors.New("unreadable rate cache entry")

// maxOfferRetries bounds optimistic retries when a watched key changes
// between the read and the write.
const maxOfferRetries = 5

type redisEntries struct {
	client *redis.Client
}

func (e redisEntries) get(ctx context.Context, key string) (*core.ExchangeRate, error) {
	return readEntry(ctx, e.client, key)
}

// stringGetter is the part of *redis.Client and *redis.Tx that readEntry
// needs.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readEntry(ctx context.Context, cmd stringGetter, key string) (*core.ExchangeRate, error) {
	data, err := cmd.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rate core.ExchangeRate
	if err := json.Unmarshal(data, &rate); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errBadEntry, key, err)
	}
	return &rate, nil
}

// offer runs the compare-and-set under WATCH; the transaction aborts when
// another client touches key after it was read.
func (e redisEntries) offer(ctx context.Context, key string, rate core.ExchangeRate, ttl time.Duration, replaceEqual bool) error {
	data, err := json.Marshal(rate)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		cur, err := readEntry(ctx, tx, key)
		if err != nil && !errors.Is(err, errBadEntry) {
			return err
		}
		if !supersedes(cur, rate, replaceEqual) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxOfferRetries; i++ {
		err = e.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (e redisEntries) del(ctx context.Context, key string) error {
	return e.client.Del(ctx, key).Err()
}

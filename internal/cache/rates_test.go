package cache

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/gamevault/internal/core"
	"github.com/JonMunkholm/gamevault/internal/database"
)

// newTestCache connects to REDIS_ADDR or skips. Keys are namespaced per
// test run so parallel runs do not collide.
func newTestCache(t *testing.T) (*RateCache, *database.MemoryStore) {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	store := database.NewMemoryStore()
	prefix := "gamevault-test:" + uuid.NewString() + ":"
	c, err := NewRateCache(context.Background(), RateCacheConfig{Addr: addr, TTL: time.Minute, KeyPrefix: prefix}, store)
	if err != nil {
		t.Fatalf("NewRateCache() error: %v", err)
	}
	t.Cleanup(func() {
		c.client.Del(context.Background(), c.latestKey("NOK"))
		c.Close()
	})
	return c, store
}

func TestLatestKey(t *testing.T) {
	c := NewRateCacheWithClient(redis.NewClient(&redis.Options{}), database.NewMemoryStore(), 0, "")
	defer c.Close()

	if got := c.latestKey("NOK"); got != "gamevault:rate:latest:NOK" {
		t.Errorf("latestKey() = %q", got)
	}
	if c.ttl != DefaultRateTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultRateTTL)
	}
}

func TestRateCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	if got, err := c.LatestRate(ctx, "NOK"); err != nil || got != nil {
		t.Fatalf("LatestRate() on empty = %v, %v", got, err)
	}

	if err := c.AppendRate(ctx, core.ExchangeRate{Currency: "NOK", Rate: 10.1, Timestamp: base}); err != nil {
		t.Fatalf("AppendRate() error: %v", err)
	}
	got, err := c.LatestRate(ctx, "NOK")
	if err != nil || got.Rate != 10.1 {
		t.Fatalf("LatestRate() = %v, %v; want 10.1", got, err)
	}

	// A write that bypasses the cache is not seen until the entry expires.
	_ = store.AppendRate(ctx, core.ExchangeRate{Currency: "NOK", Rate: 99, Timestamp: base.Add(time.Hour)})
	if got, _ := c.LatestRate(ctx, "NOK"); got.Rate != 10.1 {
		t.Errorf("LatestRate() = %v, want cached 10.1", got.Rate)
	}

	// Writes through the cache refresh it from the store.
	if err := c.AppendRate(ctx, core.ExchangeRate{Currency: "NOK", Rate: 10.5, Timestamp: base.Add(-time.Hour)}); err != nil {
		t.Fatalf("AppendRate() error: %v", err)
	}
	if got, _ := c.LatestRate(ctx, "NOK"); got.Rate != 99 {
		t.Errorf("LatestRate() after refresh = %v, want 99", got.Rate)
	}
}

func TestRateCache_WithLedger(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	ledger := core.NewLedger(c)

	_, err := ledger.RecordBatch(ctx, []core.ExchangeRate{
		{Currency: "NOK", Rate: 10, Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Currency: "NOK", Rate: 11, Timestamp: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("RecordBatch() error: %v", err)
	}
	latest, err := ledger.Latest(ctx, "NOK")
	if err != nil || latest.Rate != 11 {
		t.Errorf("Latest() = %+v, %v; want 11", latest, err)
	}
}

// memEntries is an in-process latestEntries with the same compare-and-set
// rule as the Redis implementation.
type memEntries struct {
	mu      sync.Mutex
	entries map[string]core.ExchangeRate
}

func newMemEntries() *memEntries {
	return &memEntries{entries: make(map[string]core.ExchangeRate)}
}

func (m *memEntries) get(_ context.Context, key string) (*core.ExchangeRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memEntries) offer(_ context.Context, key string, rate core.ExchangeRate, _ time.Duration, replaceEqual bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cur *core.ExchangeRate
	if r, ok := m.entries[key]; ok {
		cur = &r
	}
	if supersedes(cur, rate, replaceEqual) {
		m.entries[key] = rate
	}
	return nil
}

func (m *memEntries) del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// interleavingStore runs onLatest once, after LatestRate has read the store
// but before the result is returned to the cache.
type interleavingStore struct {
	core.RateStore
	onLatest func()
}

func (s *interleavingStore) LatestRate(ctx context.Context, currency string) (*core.ExchangeRate, error) {
	rate, err := s.RateStore.LatestRate(ctx, currency)
	if fn := s.onLatest; fn != nil {
		s.onLatest = nil
		fn()
	}
	return rate, err
}

func TestSupersedes(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cur := &core.ExchangeRate{Currency: "NOK", Rate: 10, Timestamp: base}

	tests := []struct {
		name         string
		cur          *core.ExchangeRate
		next         time.Time
		replaceEqual bool
		want         bool
	}{
		{"empty entry", nil, base, false, true},
		{"newer", cur, base.Add(time.Second), false, true},
		{"older", cur, base.Add(-time.Second), true, false},
		{"equal from read", cur, base, false, false},
		{"equal from write", cur, base, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := core.ExchangeRate{Currency: "NOK", Rate: 11, Timestamp: tt.next}
			if got := supersedes(tt.cur, next, tt.replaceEqual); got != tt.want {
				t.Errorf("supersedes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRateCache_ReadRacingAppendKeepsNewest(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mem := database.NewMemoryStore()
	store := &interleavingStore{RateStore: mem}
	c := newRateCache(newMemEntries(), store, time.Minute, "")

	if err := mem.AppendRate(ctx, core.ExchangeRate{Currency: "NOK", Rate: 10.1, Timestamp: base}); err != nil {
		t.Fatalf("AppendRate() error: %v", err)
	}

	// The reader misses and loads 10.1; a newer rate is appended through the
	// cache before the reader populates the entry.
	store.onLatest = func() {
		if err := c.AppendRate(ctx, core.ExchangeRate{Currency: "NOK", Rate: 10.9, Timestamp: base.Add(time.Hour)}); err != nil {
			t.Errorf("AppendRate() error: %v", err)
		}
	}
	got, err := c.LatestRate(ctx, "NOK")
	if err != nil || got.Rate != 10.1 {
		t.Fatalf("racing LatestRate() = %v, %v; want the 10.1 it loaded", got, err)
	}

	got, err = c.LatestRate(ctx, "NOK")
	if err != nil || got.Rate != 10.9 {
		t.Errorf("LatestRate() after race = %v, %v; want 10.9", got, err)
	}
}

func TestRateCache_AppendRefreshesEntry(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	entries := newMemEntries()
	c := newRateCache(entries, database.NewMemoryStore(), 0, "")

	steps := []struct {
		name string
		rate core.ExchangeRate
		want float64
	}{
		{"first", core.ExchangeRate{Currency: "NOK", Rate: 10, Timestamp: base}, 10},
		{"newer", core.ExchangeRate{Currency: "NOK", Rate: 11, Timestamp: base.Add(time.Hour)}, 11},
		{"out of order", core.ExchangeRate{Currency: "NOK", Rate: 9, Timestamp: base.Add(-time.Hour)}, 11},
		{"tie goes to later append", core.ExchangeRate{Currency: "NOK", Rate: 12, Timestamp: base.Add(time.Hour)}, 12},
	}

	for _, st := range steps {
		if err := c.AppendRate(ctx, st.rate); err != nil {
			t.Fatalf("%s: AppendRate() error: %v", st.name, err)
		}
		cached, _ := entries.get(ctx, c.latestKey("NOK"))
		if cached == nil || cached.Rate != st.want {
			t.Errorf("%s: cached = %v, want %v", st.name, cached, st.want)
		}
	}
}

func TestRateCache_BatchRefreshesEachCurrency(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	entries := newMemEntries()
	c := newRateCache(entries, database.NewMemoryStore(), 0, "")

	err := c.AppendRates(ctx, []core.ExchangeRate{
		{Currency: "NOK", Rate: 10, Timestamp: base},
		{Currency: "SEK", Rate: 11, Timestamp: base},
		{Currency: "NOK", Rate: 10.5, Timestamp: base.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("AppendRates() error: %v", err)
	}

	for cur, want := range map[string]float64{"NOK": 10.5, "SEK": 11} {
		got, err := c.LatestRate(ctx, cur)
		if err != nil || got == nil || got.Rate != want {
			t.Errorf("LatestRate(%s) = %v, %v; want %v", cur, got, err, want)
		}
	}
}

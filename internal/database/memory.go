package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/gamevault/internal/core"
)

// MemoryStore is an in-process core.Store used by tests and CLI dry runs.
// It enforces the same unique and foreign-key rules as schema.sql.
type MemoryStore struct {
	mu sync.RWMutex

	games    map[int64]core.CatalogGame
	items    map[int64]core.CollectionItem
	consoles map[int64]core.Console
	regions  map[int64]core.Region
	rates    []core.ExchangeRate
	nextID   int64
}

var _ core.Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:    make(map[int64]core.CatalogGame),
		items:    make(map[int64]core.CollectionItem),
		consoles: make(map[int64]core.Console),
		regions:  make(map[int64]core.Region),
	}
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func fkError(table, ref string) error {
	return fmt.Errorf("insert or update on table %q violates foreign key constraint on %s", table, ref)
}

// ============================================================================
// Games
// ============================================================================

func matchGame(g core.CatalogGame, f core.GameFilter) bool {
	if f.ID != 0 && g.ID != f.ID {
		return false
	}
	if t := strings.TrimSpace(f.Title); t != "" && !strings.EqualFold(g.Title, t) {
		return false
	}
	if f.MatchConsole {
		if !sameID(g.ConsoleID, f.ConsoleID) {
			return false
		}
	} else if f.ConsoleID != nil && !sameID(g.ConsoleID, f.ConsoleID) {
		return false
	}
	if f.RegionID != nil && !sameID(g.RegionID, f.RegionID) {
		return false
	}
	if u := strings.TrimSpace(f.PricechartingURL); u != "" && g.PricechartingURL != u {
		return false
	}
	if p := strings.TrimSpace(f.PricechartingID); p != "" && g.PricechartingID != p {
		return false
	}
	if s := strings.TrimSpace(f.Search); s != "" && !strings.Contains(strings.ToLower(g.Title), strings.ToLower(s)) {
		return false
	}
	return true
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// FindGames returns games matching filter ordered by id.
func (m *MemoryStore) FindGames(ctx context.Context, filter core.GameFilter) ([]core.CatalogGame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	games := []core.CatalogGame{}
	for _, g := range m.games {
		if matchGame(g, filter) {
			games = append(games, g)
		}
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
	if filter.Limit > 0 && len(games) > filter.Limit {
		games = games[:filter.Limit]
	}
	return games, nil
}

// GetGame returns game id or a NotFoundError.
func (m *MemoryStore) GetGame(ctx context.Context, id int64) (core.CatalogGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return core.CatalogGame{}, notFound("game", id)
	}
	return g, nil
}

// checkGame enforces the games table constraints for a write of g as id.
func (m *MemoryStore) checkGame(id int64, g core.CatalogGame) error {
	if g.ConsoleID != nil {
		if _, ok := m.consoles[*g.ConsoleID]; !ok {
			return fkError("games", "console_id")
		}
	}
	if g.RegionID != nil {
		if _, ok := m.regions[*g.RegionID]; !ok {
			return fkError("games", "region_id")
		}
	}
	for _, other := range m.games {
		if other.ID == id {
			continue
		}
		if strings.EqualFold(other.Title, g.Title) && sameID(other.ConsoleID, g.ConsoleID) {
			return fmt.Errorf("%w: games_title_console_key", core.ErrConflict)
		}
		if g.PricechartingURL != "" && other.PricechartingURL == g.PricechartingURL {
			return fmt.Errorf("%w: games_pricecharting_url_key", core.ErrConflict)
		}
	}
	return nil
}

// InsertGame inserts game and returns its id.
func (m *MemoryStore) InsertGame(ctx context.Context, game core.CatalogGame) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	game.Title = strings.TrimSpace(game.Title)
	if err := m.checkGame(0, game); err != nil {
		return 0, err
	}
	game.ID = m.id()
	m.games[game.ID] = game
	return game.ID, nil
}

// UpdateGame overwrites game id.
func (m *MemoryStore) UpdateGame(ctx context.Context, id int64, game core.CatalogGame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[id]; !ok {
		return notFound("game", id)
	}
	game.Title = strings.TrimSpace(game.Title)
	if err := m.checkGame(id, game); err != nil {
		return err
	}
	game.ID = id
	m.games[id] = game
	return nil
}

// DeleteGame removes game id unless a collection item references it.
func (m *MemoryStore) DeleteGame(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[id]; !ok {
		return notFound("game", id)
	}
	for _, it := range m.items {
		if it.GameID == id {
			return &core.ReferentialError{Entity: "game", ID: id, Dependents: "collection_items"}
		}
	}
	delete(m.games, id)
	return nil
}

// ============================================================================
// Collection
// ============================================================================

// FindCollectionItems returns items matching filter ordered by id.
func (m *MemoryStore) FindCollectionItems(ctx context.Context, filter core.ItemFilter) ([]core.CollectionItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := []core.CollectionItem{}
	for _, it := range m.items {
		if filter.ID != 0 && it.ID != filter.ID {
			continue
		}
		if filter.GameID != 0 && it.GameID != filter.GameID {
			continue
		}
		if filter.ConsoleID != nil && !sameID(it.ConsoleID, filter.ConsoleID) {
			continue
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

// GetCollectionItem returns item id or a NotFoundError.
func (m *MemoryStore) GetCollectionItem(ctx context.Context, id int64) (core.CollectionItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return core.CollectionItem{}, notFound("collection item", id)
	}
	return it, nil
}

func (m *MemoryStore) checkItem(it core.CollectionItem) error {
	if _, ok := m.games[it.GameID]; !ok {
		return fkError("collection_items", "game_id")
	}
	if it.ConsoleID != nil {
		if _, ok := m.consoles[*it.ConsoleID]; !ok {
			return fkError("collection_items", "console_id")
		}
	}
	if it.RegionID != nil {
		if _, ok := m.regions[*it.RegionID]; !ok {
			return fkError("collection_items", "region_id")
		}
	}
	return nil
}

// InsertCollectionItem inserts item and returns its id.
func (m *MemoryStore) InsertCollectionItem(ctx context.Context, item core.CollectionItem) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkItem(item); err != nil {
		return 0, err
	}
	item.ID = m.id()
	m.items[item.ID] = item
	return item.ID, nil
}

// UpdateCollectionItem overwrites item id.
func (m *MemoryStore) UpdateCollectionItem(ctx context.Context, id int64, item core.CollectionItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return notFound("collection item", id)
	}
	if err := m.checkItem(item); err != nil {
		return err
	}
	item.ID = id
	m.items[id] = item
	return nil
}

// DeleteCollectionItem removes item id.
func (m *MemoryStore) DeleteCollectionItem(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return notFound("collection item", id)
	}
	delete(m.items, id)
	return nil
}

// ============================================================================
// Exchange rates
// ============================================================================

// AppendRate records one observation.
func (m *MemoryStore) AppendRate(ctx context.Context, rate core.ExchangeRate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = append(m.rates, rate)
	return nil
}

// history returns the currency's observations newest first; ties keep the
// later append first.
func (m *MemoryStore) history(currency string) []core.ExchangeRate {
	var out []core.ExchangeRate
	for i := len(m.rates) - 1; i >= 0; i-- {
		if m.rates[i].Currency == currency {
			out = append(out, m.rates[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// LatestRate returns the observation with the greatest timestamp, or nil.
func (m *MemoryStore) LatestRate(ctx context.Context, currency string) (*core.ExchangeRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.history(currency)
	if len(h) == 0 {
		return nil, nil
	}
	r := h[0]
	return &r, nil
}

// RateHistory returns up to limit observations, newest first.
func (m *MemoryStore) RateHistory(ctx context.Context, currency string, limit int) ([]core.ExchangeRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.history(currency)
	if limit > 0 && len(h) > limit {
		h = h[:limit]
	}
	if h == nil {
		h = []core.ExchangeRate{}
	}
	return h, nil
}

// ============================================================================
// Consoles and regions
// ============================================================================

// ListConsoles returns every console ordered by name.
func (m *MemoryStore) ListConsoles(ctx context.Context) ([]core.Console, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Console, 0, len(m.consoles))
	for _, c := range m.consoles {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// InsertConsole creates a console; names are unique.
func (m *MemoryStore) InsertConsole(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.consoles {
		if c.Name == name {
			return 0, fmt.Errorf("%w: consoles_name_key", core.ErrConflict)
		}
	}
	id := m.id()
	m.consoles[id] = core.Console{ID: id, Name: name}
	return id, nil
}

// DeleteConsole removes console id unless a game or item references it.
func (m *MemoryStore) DeleteConsole(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.consoles[id]; !ok {
		return notFound("console", id)
	}
	for _, g := range m.games {
		if g.ConsoleID != nil && *g.ConsoleID == id {
			return &core.ReferentialError{Entity: "console", ID: id, Dependents: "games"}
		}
	}
	for _, it := range m.items {
		if it.ConsoleID != nil && *it.ConsoleID == id {
			return &core.ReferentialError{Entity: "console", ID: id, Dependents: "collection_items"}
		}
	}
	delete(m.consoles, id)
	return nil
}

// ListRegions returns every region ordered by name.
func (m *MemoryStore) ListRegions(ctx context.Context) ([]core.Region, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Region, 0, len(m.regions))
	for _, r := range m.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// InsertRegion creates a region; names are unique.
func (m *MemoryStore) InsertRegion(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regions {
		if r.Name == name {
			return 0, fmt.Errorf("%w: regions_name_key", core.ErrConflict)
		}
	}
	id := m.id()
	m.regions[id] = core.Region{ID: id, Name: name}
	return id, nil
}

// DeleteRegion removes region id unless a game or item references it.
func (m *MemoryStore) DeleteRegion(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.regions[id]; !ok {
		return notFound("region", id)
	}
	for _, g := range m.games {
		if g.RegionID != nil && *g.RegionID == id {
			return &core.ReferentialError{Entity: "region", ID: id, Dependents: "games"}
		}
	}
	for _, it := range m.items {
		if it.RegionID != nil && *it.RegionID == id {
			return &core.ReferentialError{Entity: "region", ID: id, Dependents: "collection_items"}
		}
	}
	delete(m.regions, id)
	return nil
}

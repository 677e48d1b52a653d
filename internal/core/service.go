package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultImportTimeout is the maximum duration of one import run.
const DefaultImportTimeout = 2 * time.Minute

// ServiceConfig tunes a Service. Zero values fall back to defaults.
type ServiceConfig struct {
	MaxImportBytes       int64
	MaxConcurrentImports int
	ImportWait           time.Duration
	ImportTimeout        time.Duration

	// DefaultColumn is used by valuations when the caller names none.
	DefaultColumn Column

	// ConvertedCurrency is the currency of the NOK column; its latest rate
	// drives USD conversion.
	ConvertedCurrency string

	// Rates overrides the store for exchange-rate reads and writes, so a
	// cache can sit in front of it.
	Rates RateStore
}

// Service is the entry point for every catalog, collection, rate and import
// operation. Web handlers and the CLI call it; it holds no per-request state.
type Service struct {
	store    Store
	ledger   *Ledger
	detector *DuplicateDetector
	importer *Importer
	limiter  *ImportLimiter
	cfg      ServiceConfig
	now      func() time.Time
}

// NewService wires the core components over store.
func NewService(store Store, cfg ServiceConfig) *Service {
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = DefaultImportTimeout
	}
	if cfg.DefaultColumn == "" {
		cfg.DefaultColumn = ColumnNOK2
	}
	if cfg.ConvertedCurrency == "" {
		cfg.ConvertedCurrency = "NOK"
	}
	cfg.ConvertedCurrency = NormalizeCurrency(cfg.ConvertedCurrency)

	rates := cfg.Rates
	if rates == nil {
		rates = store
	}

	detector := NewDuplicateDetector(store)
	return &Service{
		store:    store,
		ledger:   NewLedger(rates),
		detector: detector,
		importer: NewImporter(store, detector, cfg.MaxImportBytes),
		limiter:  NewImportLimiter(cfg.MaxConcurrentImports, cfg.ImportWait),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// DefaultColumn returns the configured valuation column.
func (s *Service) DefaultColumn() Column {
	return s.cfg.DefaultColumn
}

// ImportStatus reports import slot usage.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// Drain waits for running imports to finish. Called on shutdown.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.Drain(ctx)
}

// ============================================================================
// Catalog
// ============================================================================

// AddGame validates game, refuses duplicates and inserts it.
func (s *Service) AddGame(ctx context.Context, game CatalogGame) (CatalogGame, error) {
	if err := ValidateGame(game); err != nil {
		return CatalogGame{}, err
	}

	dup, err := s.detector.Check(ctx, game.Title, game.ConsoleID, game.PricechartingURL)
	if err != nil {
		return CatalogGame{}, err
	}
	if dup.Exists {
		return CatalogGame{}, &DuplicateError{Result: dup}
	}

	id, err := s.store.InsertGame(ctx, game)
	if err != nil {
		return CatalogGame{}, fmt.Errorf("insert game: %w", err)
	}
	game.ID = id

	slog.Info("game added", "game_id", id, "title", game.Title)
	return game, nil
}

// UpdateGame replaces every field of game id. The duplicate rules apply
// with the game itself excluded.
func (s *Service) UpdateGame(ctx context.Context, id int64, game CatalogGame) (CatalogGame, error) {
	if _, err := s.store.GetGame(ctx, id); err != nil {
		return CatalogGame{}, err
	}
	if err := ValidateGame(game); err != nil {
		return CatalogGame{}, err
	}

	dup, err := s.detector.Check(ctx, game.Title, game.ConsoleID, game.PricechartingURL)
	if err != nil {
		return CatalogGame{}, err
	}
	if dup.Exists && dup.MatchID != id {
		return CatalogGame{}, &DuplicateError{Result: dup}
	}
	if dup.Exists && dup.Reason == ReasonTitle && game.PricechartingURL != "" {
		// The title hit was the game itself, which short-circuits the URL
		// rule. Check the URL against the rest of the catalog.
		if err := s.checkURLElsewhere(ctx, id, game.PricechartingURL); err != nil {
			return CatalogGame{}, err
		}
	}

	game.ID = id
	if err := s.store.UpdateGame(ctx, id, game); err != nil {
		return CatalogGame{}, fmt.Errorf("update game %d: %w", id, err)
	}
	return game, nil
}

func (s *Service) checkURLElsewhere(ctx context.Context, id int64, url string) error {
	dup, err := s.detector.Check(ctx, "", nil, url)
	if err != nil {
		return err
	}
	if dup.Exists && dup.MatchID != id {
		return &DuplicateError{Result: dup}
	}
	return nil
}

// GetGame returns one game.
func (s *Service) GetGame(ctx context.Context, id int64) (CatalogGame, error) {
	return s.store.GetGame(ctx, id)
}

// ListGames returns games matching filter.
func (s *Service) ListGames(ctx context.Context, filter GameFilter) ([]CatalogGame, error) {
	return s.store.FindGames(ctx, filter)
}

// DeleteGame removes a game that no collection item references.
func (s *Service) DeleteGame(ctx context.Context, id int64) error {
	if _, err := s.store.GetGame(ctx, id); err != nil {
		return err
	}
	items, err := s.store.FindCollectionItems(ctx, ItemFilter{GameID: id, Limit: 1})
	if err != nil {
		return fmt.Errorf("check game references: %w", err)
	}
	if len(items) > 0 {
		return &ReferentialError{Entity: "game", ID: id, Dependents: "collection items"}
	}
	return s.store.DeleteGame(ctx, id)
}

// CheckDuplicate runs the duplicate rules without writing anything.
func (s *Service) CheckDuplicate(ctx context.Context, title string, consoleID *int64, url string) (DuplicateResult, error) {
	return s.detector.Check(ctx, title, consoleID, url)
}

// PricesByExternalID returns the fifteen raw price columns of the game with
// the given PriceCharting id.
func (s *Service) PricesByExternalID(ctx context.Context, pricechartingID string) (map[string]*float64, error) {
	games, err := s.store.FindGames(ctx, GameFilter{PricechartingID: pricechartingID, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("find prices: %w", err)
	}
	if len(games) == 0 {
		return nil, &NotFoundError{Entity: "prices", Key: pricechartingID}
	}
	return games[0].Prices.Flat(), nil
}

// ConvertPrices recomputes every game's NOK column from USD at the latest
// rate. NOK2 values are pinned and never touched. Returns how many games
// changed.
func (s *Service) ConvertPrices(ctx context.Context) (int, error) {
	rate, err := s.ledger.Latest(ctx, s.cfg.ConvertedCurrency)
	if err != nil {
		return 0, err
	}

	games, err := s.store.FindGames(ctx, GameFilter{})
	if err != nil {
		return 0, fmt.Errorf("list games: %w", err)
	}

	updated := 0
	for _, g := range games {
		changed := false
		for _, t := range Tiers {
			usd := g.Prices.Get(t, ColumnUSD)
			if usd == nil {
				continue
			}
			nok := ConvertAmount(*usd, rate.Rate)
			if cur := g.Prices.Get(t, ColumnNOK); cur == nil || *cur != nok {
				g.Prices.Set(t, ColumnNOK, ptr(nok))
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := s.store.UpdateGame(ctx, g.ID, g); err != nil {
			return updated, fmt.Errorf("update game %d: %w", g.ID, err)
		}
		updated++
	}

	slog.Info("prices converted", "currency", rate.Currency, "rate", rate.Rate, "updated", updated)
	return updated, nil
}

// ============================================================================
// Collection
// ============================================================================

// AddToCollection records an owned copy. Console and region default to the
// game's, AddedDate to now, and a new copy is pinned to mint.
func (s *Service) AddToCollection(ctx context.Context, item CollectionItem) (CollectionItem, error) {
	game, err := s.store.GetGame(ctx, item.GameID)
	if err != nil {
		return CollectionItem{}, err
	}

	if item.ConsoleID == nil {
		item.ConsoleID = game.ConsoleID
	}
	if item.RegionID == nil {
		item.RegionID = game.RegionID
	}
	if item.AddedDate.IsZero() {
		item.AddedDate = s.now().UTC()
	}
	if item.IsNew {
		item = item.WithConditions(item.Conditions().MarkNew())
	}
	if err := ValidateItem(item); err != nil {
		return CollectionItem{}, err
	}

	id, err := s.store.InsertCollectionItem(ctx, item)
	if err != nil {
		return CollectionItem{}, fmt.Errorf("insert collection item: %w", err)
	}
	item.ID = id
	return item, nil
}

// UpdateCollectionItem replaces an item's conditions, flags and override.
// The game link and added date are kept when left zero.
func (s *Service) UpdateCollectionItem(ctx context.Context, id int64, item CollectionItem) (CollectionItem, error) {
	existing, err := s.store.GetCollectionItem(ctx, id)
	if err != nil {
		return CollectionItem{}, err
	}

	item.ID = id
	if item.GameID == 0 {
		item.GameID = existing.GameID
	}
	if item.AddedDate.IsZero() {
		item.AddedDate = existing.AddedDate
	}
	if item.ConsoleID == nil {
		item.ConsoleID = existing.ConsoleID
	}
	if item.RegionID == nil {
		item.RegionID = existing.RegionID
	}
	if err := ValidateItem(item); err != nil {
		return CollectionItem{}, err
	}

	if err := s.store.UpdateCollectionItem(ctx, id, item); err != nil {
		return CollectionItem{}, fmt.Errorf("update collection item %d: %w", id, err)
	}
	return item, nil
}

// MarkNew moves an item into the New state in one step.
func (s *Service) MarkNew(ctx context.Context, id int64) (CollectionItem, error) {
	item, err := s.store.GetCollectionItem(ctx, id)
	if err != nil {
		return CollectionItem{}, err
	}
	item = item.WithConditions(item.Conditions().MarkNew())
	if err := s.store.UpdateCollectionItem(ctx, id, item); err != nil {
		return CollectionItem{}, fmt.Errorf("mark item %d new: %w", id, err)
	}
	return item, nil
}

// DeleteCollectionItem removes an owned copy.
func (s *Service) DeleteCollectionItem(ctx context.Context, id int64) error {
	return s.store.DeleteCollectionItem(ctx, id)
}

// ListCollection returns items matching filter.
func (s *Service) ListCollection(ctx context.Context, filter ItemFilter) ([]CollectionItem, error) {
	return s.store.FindCollectionItems(ctx, filter)
}

// ============================================================================
// Valuation
// ============================================================================

// Valuation is the resolved price of one owned copy.
type Valuation struct {
	ItemID       int64        `json:"item_id"`
	GameID       int64        `json:"game_id"`
	Title        string       `json:"title"`
	Completeness Completeness `json:"completeness"`
	Resolution
	Formatted string `json:"formatted,omitempty"`
}

// CollectionSummary totals the resolved prices of a collection.
type CollectionSummary struct {
	Column       Column             `json:"column"`
	Currency     string             `json:"currency"`
	Items        int                `json:"items"`
	Priced       int                `json:"priced"`
	Total        float64            `json:"total"`
	Formatted    string             `json:"formatted"`
	ByProvenance map[Provenance]int `json:"by_provenance"`
}

func (s *Service) column(col Column) Column {
	if col == "" {
		return s.cfg.DefaultColumn
	}
	return col
}

// ValueItem resolves the price of item id in col (default column when empty).
func (s *Service) ValueItem(ctx context.Context, id int64, col Column) (Valuation, error) {
	col = s.column(col)
	item, err := s.store.GetCollectionItem(ctx, id)
	if err != nil {
		return Valuation{}, err
	}
	game, err := s.store.GetGame(ctx, item.GameID)
	if err != nil {
		return Valuation{}, err
	}
	return valuate(item, game, col), nil
}

func valuate(item CollectionItem, game CatalogGame, col Column) Valuation {
	res := Resolve(item, game, col)
	v := Valuation{
		ItemID:       item.ID,
		GameID:       game.ID,
		Title:        game.Title,
		Completeness: item.Conditions().Classify(),
		Resolution:   res,
	}
	if res.Amount != nil {
		var t Total
		t.Add(res.Amount)
		v.Formatted = t.Format(col.Currency())
	}
	return v
}

// CollectionSummary values every owned copy in col.
func (s *Service) CollectionSummary(ctx context.Context, col Column) (CollectionSummary, error) {
	col = s.column(col)
	items, err := s.store.FindCollectionItems(ctx, ItemFilter{})
	if err != nil {
		return CollectionSummary{}, fmt.Errorf("list collection: %w", err)
	}

	games := make(map[int64]CatalogGame)
	var total Total
	summary := CollectionSummary{
		Column:       col,
		Currency:     col.Currency(),
		Items:        len(items),
		ByProvenance: make(map[Provenance]int),
	}
	for _, item := range items {
		game, ok := games[item.GameID]
		if !ok {
			game, err = s.store.GetGame(ctx, item.GameID)
			if err != nil {
				return CollectionSummary{}, err
			}
			games[item.GameID] = game
		}
		res := Resolve(item, game, col)
		summary.ByProvenance[res.Provenance]++
		total.Add(res.Amount)
	}

	summary.Priced = total.Count()
	summary.Total = total.Float64()
	summary.Formatted = total.Format(summary.Currency)
	return summary, nil
}

// ============================================================================
// Exchange rates
// ============================================================================

// RecordRate appends a rate observation.
func (s *Service) RecordRate(ctx context.Context, currency string, rate float64, ts time.Time) (ExchangeRate, error) {
	return s.ledger.Record(ctx, currency, rate, ts)
}

// RecordRates appends a batch of observations; nothing is written if any
// of them is invalid.
func (s *Service) RecordRates(ctx context.Context, rates []ExchangeRate) ([]ExchangeRate, error) {
	return s.ledger.RecordBatch(ctx, rates)
}

// LatestRate returns the newest observation for currency.
func (s *Service) LatestRate(ctx context.Context, currency string) (ExchangeRate, error) {
	return s.ledger.Latest(ctx, currency)
}

// RateHistory returns observations for currency, newest first.
func (s *Service) RateHistory(ctx context.Context, currency string, limit int) ([]ExchangeRate, error) {
	return s.ledger.History(ctx, currency, limit)
}

// ============================================================================
// Import
// ============================================================================

// Import runs one bulk import under the concurrency limit and timeout.
// Region names are loaded from the store, and the latest converted-currency
// rate fills the NOK column, unless opts already carries them.
func (s *Service) Import(ctx context.Context, raw string, opts ImportOptions) (*ImportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ImportTimeout)
	defer cancel()

	opts, err := s.importOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	return s.importer.Import(ctx, raw, opts)
}

// importOptions fills the region index and conversion rate unless opts
// already carries them.
func (s *Service) importOptions(ctx context.Context, opts ImportOptions) (ImportOptions, error) {
	if opts.RegionID == nil && opts.Regions == nil {
		regions, err := s.store.ListRegions(ctx)
		if err != nil {
			return opts, fmt.Errorf("load regions: %w", err)
		}
		opts.Regions = RegionIndex(regions)
	}

	if opts.Rate == nil {
		rate, err := s.ledger.Latest(ctx, s.cfg.ConvertedCurrency)
		switch {
		case err == nil:
			opts.Rate = &rate
		case errors.Is(err, ErrNotFound):
			slog.Debug("import without conversion rate", "currency", s.cfg.ConvertedCurrency)
		default:
			return opts, err
		}
	}
	return opts, nil
}

// ============================================================================
// Consoles and regions
// ============================================================================

// ListConsoles returns all consoles.
func (s *Service) ListConsoles(ctx context.Context) ([]Console, error) {
	return s.store.ListConsoles(ctx)
}

// AddConsole creates a console.
func (s *Service) AddConsole(ctx context.Context, name string) (Console, error) {
	name, err := lookupName(name)
	if err != nil {
		return Console{}, err
	}
	id, err := s.store.InsertConsole(ctx, name)
	if err != nil {
		return Console{}, fmt.Errorf("insert console: %w", err)
	}
	return Console{ID: id, Name: name}, nil
}

// DeleteConsole removes a console no game or item references.
func (s *Service) DeleteConsole(ctx context.Context, id int64) error {
	games, err := s.store.FindGames(ctx, GameFilter{ConsoleID: &id, Limit: 1})
	if err != nil {
		return fmt.Errorf("check console references: %w", err)
	}
	if len(games) > 0 {
		return &ReferentialError{Entity: "console", ID: id, Dependents: "games"}
	}
	items, err := s.store.FindCollectionItems(ctx, ItemFilter{ConsoleID: &id, Limit: 1})
	if err != nil {
		return fmt.Errorf("check console references: %w", err)
	}
	if len(items) > 0 {
		return &ReferentialError{Entity: "console", ID: id, Dependents: "collection items"}
	}
	return s.store.DeleteConsole(ctx, id)
}

// ListRegions returns all regions.
func (s *Service) ListRegions(ctx context.Context) ([]Region, error) {
	return s.store.ListRegions(ctx)
}

// AddRegion creates a region.
func (s *Service) AddRegion(ctx context.Context, name string) (Region, error) {
	name, err := lookupName(name)
	if err != nil {
		return Region{}, err
	}
	id, err := s.store.InsertRegion(ctx, name)
	if err != nil {
		return Region{}, fmt.Errorf("insert region: %w", err)
	}
	return Region{ID: id, Name: name}, nil
}

// DeleteRegion removes a region no game references.
func (s *Service) DeleteRegion(ctx context.Context, id int64) error {
	games, err := s.store.FindGames(ctx, GameFilter{RegionID: &id, Limit: 1})
	if err != nil {
		return fmt.Errorf("check region references: %w", err)
	}
	if len(games) > 0 {
		return &ReferentialError{Entity: "region", ID: id, Dependents: "games"}
	}
	return s.store.DeleteRegion(ctx, id)
}

func lookupName(name string) (string, error) {
	name = CleanCell(name)
	if name == "" {
		return "", ValidationError{Field: "name", Message: "required field is empty"}
	}
	return name, nil
}

// PreviewImport reports what Import would do with raw without writing.
func (s *Service) PreviewImport(ctx context.Context, raw string, opts ImportOptions) (*PreviewResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ImportTimeout)
	defer cancel()

	opts, err := s.importOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s.importer.Preview(ctx, raw, opts)
}

package core

import "context"

// GameStore persists catalog games.
type GameStore interface {
	FindGames(ctx context.Context, filter GameFilter) ([]CatalogGame, error)
	GetGame(ctx context.Context, id int64) (CatalogGame, error)
	InsertGame(ctx context.Context, game CatalogGame) (int64, error)
	UpdateGame(ctx context.Context, id int64, game CatalogGame) error
	DeleteGame(ctx context.Context, id int64) error
}

// CollectionStore persists owned copies.
type CollectionStore interface {
	FindCollectionItems(ctx context.Context, filter ItemFilter) ([]CollectionItem, error)
	GetCollectionItem(ctx context.Context, id int64) (CollectionItem, error)
	InsertCollectionItem(ctx context.Context, item CollectionItem) (int64, error)
	UpdateCollectionItem(ctx context.Context, id int64, item CollectionItem) error
	DeleteCollectionItem(ctx context.Context, id int64) error
}

// RateStore is the append-only exchange-rate history.
// LatestRate returns nil, nil when no record exists for the currency.
type RateStore interface {
	AppendRate(ctx context.Context, rate ExchangeRate) error
	LatestRate(ctx context.Context, currency string) (*ExchangeRate, error)
	RateHistory(ctx context.Context, currency string, limit int) ([]ExchangeRate, error)
}

// LookupStore persists consoles and regions.
type LookupStore interface {
	ListConsoles(ctx context.Context) ([]Console, error)
	InsertConsole(ctx context.Context, name string) (int64, error)
	DeleteConsole(ctx context.Context, id int64) error
	ListRegions(ctx context.Context) ([]Region, error)
	InsertRegion(ctx context.Context, name string) (int64, error)
	DeleteRegion(ctx context.Context, id int64) error
}

// Store is the full persistence collaborator.
type Store interface {
	GameStore
	CollectionStore
	RateStore
	LookupStore
	Ping(ctx context.Context) error
}

// BatchRateStore is a RateStore that can append many observations in one
// round trip.
type BatchRateStore interface {
	AppendRates(ctx context.Context, rates []ExchangeRate) error
}

// Package application wires configuration into a running core.Service:
// the Postgres pool, the optional Redis rate cache and the service itself.
// Both binaries start through Open.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gamevault/internal/cache"
	"github.com/JonMunkholm/gamevault/internal/config"
	"github.com/JonMunkholm/gamevault/internal/core"
	"github.com/JonMunkholm/gamevault/internal/database"
)

// App holds the opened resources behind a Service.
type App struct {
	Service *core.Service
	Store   core.Store

	pool  *pgxpool.Pool
	cache *cache.RateCache
}

// Options adjusts Open.
type Options struct {
	// DryRun keeps everything in memory; no database or cache is contacted.
	DryRun bool
}

// Open connects the store and cache described by cfg and builds the service.
// Call Close when done.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	app := &App{}

	if opts.DryRun {
		app.Store = database.NewMemoryStore()
		slog.Info("dry run: using in-memory store")
	} else {
		pool, err := database.Open(ctx, database.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		app.pool = pool
		slog.Info("connected to database", "name", databaseName(cfg.Database.URL))

		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				app.Close()
				return nil, err
			}
			slog.Info("schema applied")
		}
		app.Store = database.New(pool)
	}

	var rates core.RateStore
	if cfg.Cache.Enabled && !opts.DryRun {
		rc, err := cache.NewRateCache(ctx, cache.RateCacheConfig{
			Addr:      cfg.Cache.Addr,
			Password:  cfg.Cache.Password,
			DB:        cfg.Cache.DB,
			TTL:       cfg.Cache.TTL,
			KeyPrefix: cfg.Cache.Prefix,
		}, app.Store)
		if err != nil {
			// Rates still work straight from the database
			slog.Warn("rate cache unavailable, continuing without it", "error", err)
		} else {
			app.cache = rc
			rates = rc
		}
	}

	col, ok := core.ParseColumn(cfg.Valuation.DefaultColumn)
	if !ok {
		app.Close()
		return nil, fmt.Errorf("invalid valuation column %q", cfg.Valuation.DefaultColumn)
	}

	app.Service = core.NewService(app.Store, core.ServiceConfig{
		MaxImportBytes:       cfg.Import.MaxBytes,
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		ImportWait:           cfg.Import.MaxWaitTime,
		ImportTimeout:        cfg.Import.Timeout,
		DefaultColumn:        col,
		ConvertedCurrency:    cfg.Valuation.Currency,
		Rates:                rates,
	})
	return app, nil
}

// Close releases the cache client and the pool.
func (a *App) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("close rate cache", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// databaseName extracts the database name from a connection URL for logs,
// so credentials never reach the log.
func databaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/gamevault/internal/core"
)

func int64Ptr(v int64) *int64 { return &v }

func mustConsole(t *testing.T, m *MemoryStore, name string) int64 {
	t.Helper()
	id, err := m.InsertConsole(context.Background(), name)
	if err != nil {
		t.Fatalf("InsertConsole(%q) error: %v", name, err)
	}
	return id
}

func TestMemoryStore_GameUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	ps2 := mustConsole(t, m, "PlayStation 2")
	gc := mustConsole(t, m, "GameCube")

	if _, err := m.InsertGame(ctx, core.CatalogGame{Title: "Resident Evil 4", ConsoleID: &ps2, PricechartingURL: "https://pc/re4-ps2"}); err != nil {
		t.Fatalf("InsertGame() error: %v", err)
	}

	tests := []struct {
		name     string
		game     core.CatalogGame
		conflict bool
	}{
		{"same title other case same console", core.CatalogGame{Title: "resident evil 4", ConsoleID: &ps2}, true},
		{"same title other console", core.CatalogGame{Title: "Resident Evil 4", ConsoleID: &gc}, false},
		{"same url other title", core.CatalogGame{Title: "RE4", ConsoleID: &gc, PricechartingURL: "https://pc/re4-ps2"}, true},
		{"same title no console", core.CatalogGame{Title: "Resident Evil 4"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.InsertGame(ctx, tt.game)
			if tt.conflict != errors.Is(err, core.ErrConflict) {
				t.Errorf("InsertGame() error = %v, conflict want %v", err, tt.conflict)
			}
		})
	}
}

func TestMemoryStore_FindGames(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	xbox := mustConsole(t, m, "Xbox 360")

	for _, g := range []core.CatalogGame{
		{Title: "Halo 3", ConsoleID: &xbox, PricechartingID: "pc-1"},
		{Title: "Halo Wars", ConsoleID: &xbox},
		{Title: "Halo 3"},
	} {
		if _, err := m.InsertGame(ctx, g); err != nil {
			t.Fatalf("InsertGame() error: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter core.GameFilter
		want   int
	}{
		{"all", core.GameFilter{}, 3},
		{"title any console", core.GameFilter{Title: "HALO 3"}, 2},
		{"title on console", core.GameFilter{Title: "Halo 3", ConsoleID: &xbox, MatchConsole: true}, 1},
		{"title with no console", core.GameFilter{Title: "Halo 3", MatchConsole: true}, 1},
		{"console only", core.GameFilter{ConsoleID: &xbox}, 2},
		{"search", core.GameFilter{Search: "wars"}, 1},
		{"external id", core.GameFilter{PricechartingID: "pc-1"}, 1},
		{"limit", core.GameFilter{Limit: 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.FindGames(ctx, tt.filter)
			if err != nil {
				t.Fatalf("FindGames() error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("FindGames() returned %d games, want %d", len(got), tt.want)
			}
		})
	}
}

func TestMemoryStore_ForeignKeys(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_, err := m.InsertGame(ctx, core.CatalogGame{Title: "Ico", ConsoleID: int64Ptr(99)})
	if core.MapError(err).Code != "DB003" {
		t.Errorf("InsertGame() with unknown console: %v, want DB003", err)
	}

	ps2 := mustConsole(t, m, "PlayStation 2")
	gameID, err := m.InsertGame(ctx, core.CatalogGame{Title: "Ico", ConsoleID: &ps2})
	if err != nil {
		t.Fatalf("InsertGame() error: %v", err)
	}

	if _, err := m.InsertCollectionItem(ctx, core.CollectionItem{GameID: 12345}); err == nil {
		t.Error("InsertCollectionItem() with unknown game: expected error")
	}
	if _, err := m.InsertCollectionItem(ctx, core.CollectionItem{GameID: gameID, ConsoleID: &ps2}); err != nil {
		t.Fatalf("InsertCollectionItem() error: %v", err)
	}

	if err := m.DeleteGame(ctx, gameID); !errors.Is(err, core.ErrReferential) {
		t.Errorf("DeleteGame() = %v, want ErrReferential", err)
	}
	if err := m.DeleteConsole(ctx, ps2); !errors.Is(err, core.ErrReferential) {
		t.Errorf("DeleteConsole() = %v, want ErrReferential", err)
	}
	if err := m.DeleteGame(ctx, 777); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteGame(missing) = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Rates(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	latest, err := m.LatestRate(ctx, "NOK")
	if err != nil || latest != nil {
		t.Fatalf("LatestRate() on empty = %v, %v; want nil, nil", latest, err)
	}

	appends := []core.ExchangeRate{
		{Currency: "NOK", Rate: 10.5, Timestamp: base.Add(2 * time.Hour)},
		{Currency: "NOK", Rate: 10.1, Timestamp: base},
		{Currency: "SEK", Rate: 11.0, Timestamp: base.Add(5 * time.Hour)},
		{Currency: "NOK", Rate: 10.7, Timestamp: base.Add(2 * time.Hour)},
	}
	for _, r := range appends {
		if err := m.AppendRate(ctx, r); err != nil {
			t.Fatalf("AppendRate() error: %v", err)
		}
	}

	latest, err = m.LatestRate(ctx, "NOK")
	if err != nil {
		t.Fatalf("LatestRate() error: %v", err)
	}
	if latest.Rate != 10.7 {
		t.Errorf("LatestRate() = %v, want 10.7 (later append wins the tie)", latest.Rate)
	}

	history, err := m.RateHistory(ctx, "NOK", 10)
	if err != nil {
		t.Fatalf("RateHistory() error: %v", err)
	}
	want := []float64{10.7, 10.5, 10.1}
	if len(history) != len(want) {
		t.Fatalf("RateHistory() returned %d rates, want %d", len(history), len(want))
	}
	for i, r := range history {
		if r.Rate != want[i] {
			t.Errorf("history[%d] = %v, want %v", i, r.Rate, want[i])
		}
	}

	limited, _ := m.RateHistory(ctx, "NOK", 1)
	if len(limited) != 1 {
		t.Errorf("RateHistory(limit 1) returned %d rates", len(limited))
	}
}

func TestMemoryStore_LookupNamesUnique(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if _, err := m.InsertRegion(ctx, "PAL"); err != nil {
		t.Fatalf("InsertRegion() error: %v", err)
	}
	if _, err := m.InsertRegion(ctx, "PAL"); !errors.Is(err, core.ErrConflict) {
		t.Errorf("second InsertRegion() = %v, want ErrConflict", err)
	}

	regions, _ := m.ListRegions(ctx)
	if len(regions) != 1 || regions[0].Name != "PAL" {
		t.Errorf("ListRegions() = %+v", regions)
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemoryStore()
	if _, err := m.InsertGame(ctx, core.CatalogGame{Title: "Okami"}); !errors.Is(err, context.Canceled) {
		t.Errorf("InsertGame() = %v, want context.Canceled", err)
	}
}

package core_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/JonMunkholm/gamevault/internal/core"
	"github.com/JonMunkholm/gamevault/internal/database"
)

func TestLedger_LatestIsGreatestTimestamp(t *testing.T) {
	ctx := context.Background()
	ledger := core.NewLedger(database.NewMemoryStore())
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// Appended out of order: the back-filled observation must not win.
	if _, err := ledger.Record(ctx, "nok", 10.9, base.Add(48*time.Hour)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if _, err := ledger.Record(ctx, "NOK", 10.2, base); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	latest, err := ledger.Latest(ctx, " nok ")
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if latest.Rate != 10.9 || latest.Currency != "NOK" {
		t.Errorf("Latest() = %+v, want NOK 10.9", latest)
	}

	history, err := ledger.History(ctx, "NOK", 0)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 2 || history[0].Rate != 10.9 || history[1].Rate != 10.2 {
		t.Errorf("History() = %+v, want newest first", history)
	}
}

func TestLedger_RecordRejectsInvalidRates(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	ledger := core.NewLedger(store)

	for _, rate := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := ledger.Record(ctx, "NOK", rate, time.Time{})
		var invalid *core.InvalidRateError
		if !errors.As(err, &invalid) {
			t.Errorf("Record(%v) error = %v, want InvalidRateError", rate, err)
		}
		if core.MapError(err).Code != "RATE001" {
			t.Errorf("Record(%v) code = %q, want RATE001", rate, core.MapError(err).Code)
		}
	}

	if _, err := ledger.Record(ctx, "  ", 10, time.Time{}); err == nil {
		t.Error("Record() with blank currency: expected error")
	}

	if latest, _ := store.LatestRate(ctx, "NOK"); latest != nil {
		t.Errorf("invalid rates reached the store: %+v", latest)
	}
}

func TestLedger_RecordStampsNow(t *testing.T) {
	ledger := core.NewLedger(database.NewMemoryStore())
	before := time.Now().UTC()

	rec, err := ledger.Record(context.Background(), "NOK", 11, time.Time{})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if rec.Timestamp.Before(before) || rec.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp = %v, want now in UTC", rec.Timestamp)
	}
}

func TestLedger_LatestNotFound(t *testing.T) {
	ledger := core.NewLedger(database.NewMemoryStore())
	_, err := ledger.Latest(context.Background(), "SEK")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Latest() error = %v, want ErrNotFound", err)
	}
}

func TestLedger_RecordBatch(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	ledger := core.NewLedger(store)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := ledger.RecordBatch(ctx, []core.ExchangeRate{
		{Currency: "NOK", Rate: 10, Timestamp: base},
		{Currency: "NOK", Rate: 0, Timestamp: base.Add(time.Hour)},
	})
	if err == nil {
		t.Fatal("RecordBatch() with an invalid rate: expected error")
	}
	if latest, _ := store.LatestRate(ctx, "NOK"); latest != nil {
		t.Fatal("RecordBatch() wrote part of an invalid batch")
	}

	recs, err := ledger.RecordBatch(ctx, []core.ExchangeRate{
		{Currency: "nok", Rate: 10, Timestamp: base},
		{Currency: "NOK", Rate: 10.4, Timestamp: base.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("RecordBatch() error: %v", err)
	}
	if len(recs) != 2 || recs[0].Currency != "NOK" {
		t.Errorf("RecordBatch() = %+v", recs)
	}
	latest, _ := ledger.Latest(ctx, "NOK")
	if latest.Rate != 10.4 {
		t.Errorf("Latest() = %v, want 10.4", latest.Rate)
	}
}

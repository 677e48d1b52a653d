package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/gamevault/internal/core"
	"github.com/JonMunkholm/gamevault/internal/database"
	"github.com/JonMunkholm/gamevault/internal/schema"
)

// tsvRow builds one import line with the given cells set by position.
func tsvRow(cells map[int]string) string {
	row := make([]string, schema.ColumnCount)
	for col, v := range cells {
		row[col] = v
	}
	return strings.Join(row, "\t")
}

func tsv(rows ...map[int]string) string {
	lines := []string{strings.Join(schema.Header(), "\t")}
	for _, r := range rows {
		lines = append(lines, tsvRow(r))
	}
	return strings.Join(lines, "\n") + "\n"
}

func newImporter(store *database.MemoryStore) *core.Importer {
	return core.NewImporter(store, core.NewDuplicateDetector(store), 0)
}

func TestImport_PartialFailure(t *testing.T) {
	store := database.NewMemoryStore()
	raw := tsv(
		map[int]string{schema.ColTitle: "Halo 3", schema.ColLoosePrice: "$9.99"},
		map[int]string{schema.ColTitle: "", schema.ColLoosePrice: "5"},
		map[int]string{schema.ColTitle: "Fable II", schema.ColCIBPrice: "12"},
	)

	result, err := newImporter(store).Import(context.Background(), raw, core.ImportOptions{})
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	if len(result.Accepted) != 2 {
		t.Fatalf("accepted %d rows, want 2", len(result.Accepted))
	}
	if result.Accepted[0].Title != "Halo 3" || result.Accepted[1].Title != "Fable II" {
		t.Errorf("accepted order = %q, %q", result.Accepted[0].Title, result.Accepted[1].Title)
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("rejected %d rows, want 1", len(result.Rejected))
	}
	rej := result.Rejected[0]
	if rej.Row != 2 || rej.Line != 3 {
		t.Errorf("rejected row = %d line = %d, want row 2 line 3", rej.Row, rej.Line)
	}
	if rej.Code != "VAL003" {
		t.Errorf("rejected code = %q, want VAL003", rej.Code)
	}
	if result.Total() != 3 {
		t.Errorf("Total() = %d, want 3", result.Total())
	}

	games, _ := store.FindGames(context.Background(), core.GameFilter{})
	if len(games) != 2 {
		t.Errorf("store holds %d games, want 2", len(games))
	}
}

func TestImport_Coercion(t *testing.T) {
	store := database.NewMemoryStore()
	raw := tsv(
		map[int]string{
			schema.ColTitle:        `"Okami"`,
			schema.ColReleaseDate:  "Apr 2006",
			schema.ColLoosePrice:   "$1,234.50",
			schema.ColCIBPrice:     "n/a",
			schema.ColNewPrice:     "-3",
			schema.ColMobyGamesURL: "https://mobygames.example/okami",
			schema.ColPublisher:    " Capcom ",
		},
		map[int]string{schema.ColTitle: "Shenmue", schema.ColReleaseDate: "TBA"},
		map[int]string{schema.ColTitle: "Ico", schema.ColReleaseDate: "09/24/2001"},
	)

	result, err := newImporter(store).Import(context.Background(), raw, core.ImportOptions{})
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if len(result.Accepted) != 2 || len(result.Rejected) != 1 {
		t.Fatalf("accepted %d rejected %d, want 2 and 1", len(result.Accepted), len(result.Rejected))
	}

	okami := result.Accepted[0]
	if okami.Title != "Okami" || okami.Publisher != "Capcom" {
		t.Errorf("cells not cleaned: %+v", okami)
	}
	if okami.ReleaseYear == nil || *okami.ReleaseYear != 2006 {
		t.Errorf("ReleaseYear = %v, want 2006", okami.ReleaseYear)
	}
	if v := okami.Prices.Loose.USD; v == nil || *v != 1234.5 {
		t.Errorf("loose USD = %v, want 1234.5", v)
	}
	if okami.Prices.CIB.USD != nil {
		t.Errorf("unparseable CIB price = %v, want nil", *okami.Prices.CIB.USD)
	}
	if okami.Prices.New.USD != nil {
		t.Errorf("negative new price = %v, want nil", *okami.Prices.New.USD)
	}
	if okami.Prices.Loose.NOK != nil {
		t.Error("NOK derived without a rate")
	}

	if y := result.Accepted[1].ReleaseYear; y == nil || *y != 2001 {
		t.Errorf("Ico ReleaseYear = %v, want 2001", y)
	}

	if rej := result.Rejected[0]; rej.Title != "Shenmue" || rej.Code != "VAL001" {
		t.Errorf("rejected = %+v, want Shenmue with VAL001", rej)
	}
}

func TestImport_DerivesNOK(t *testing.T) {
	store := database.NewMemoryStore()
	raw := tsv(map[int]string{schema.ColTitle: "Rez", schema.ColLoosePrice: "19.99", schema.ColManualPrice: "4"})

	opts := core.ImportOptions{Rate: &core.ExchangeRate{Currency: "NOK", Rate: 10.5}}
	result, err := newImporter(store).Import(context.Background(), raw, opts)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	g := result.Accepted[0]
	if v := g.Prices.Loose.NOK; v == nil || *v != 209.9 {
		t.Errorf("loose NOK = %v, want 209.9", v)
	}
	if v := g.Prices.Manual.NOK; v == nil || *v != 42 {
		t.Errorf("manual NOK = %v, want 42", v)
	}
	if g.Prices.Loose.NOK2 != nil {
		t.Error("import must not write the pinned NOK2 column")
	}
}

func TestImport_Duplicates(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	console, _ := store.InsertConsole(ctx, "Dreamcast")
	if _, err := store.InsertGame(ctx, core.CatalogGame{Title: "Jet Set Radio", PricechartingURL: "https://pc/jsr"}); err != nil {
		t.Fatalf("seed game: %v", err)
	}

	raw := tsv(
		map[int]string{schema.ColTitle: "Crazy Taxi"},
		map[int]string{schema.ColTitle: "CRAZY TAXI"},
		map[int]string{schema.ColTitle: "JSR", schema.ColPricechartingURL: "https://pc/jsr"},
		map[int]string{schema.ColTitle: "Jet Set Radio"},
	)

	result, err := newImporter(store).Import(ctx, raw, core.ImportOptions{ConsoleID: &console})
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	if len(result.Accepted) != 2 {
		t.Fatalf("accepted %d, want 2 (Crazy Taxi and Jet Set Radio on this console)", len(result.Accepted))
	}
	wantCodes := []string{"DUP001", "DUP002"}
	if len(result.Rejected) != len(wantCodes) {
		t.Fatalf("rejected %d, want %d", len(result.Rejected), len(wantCodes))
	}
	for i, code := range wantCodes {
		if result.Rejected[i].Code != code {
			t.Errorf("rejected[%d].Code = %q, want %q", i, result.Rejected[i].Code, code)
		}
	}
	if *result.Accepted[1].ConsoleID != console {
		t.Errorf("ConsoleID not applied to accepted rows")
	}
}

func TestImport_RegionInference(t *testing.T) {
	store := database.NewMemoryStore()
	opts := core.ImportOptions{Regions: map[string]int64{}}
	for _, name := range []string{core.RegionPAL, core.RegionNTSCU, core.RegionNTSCJ} {
		id, err := store.InsertRegion(context.Background(), name)
		if err != nil {
			t.Fatalf("InsertRegion() error: %v", err)
		}
		opts.Regions[name] = id
	}

	raw := tsv(
		map[int]string{schema.ColTitle: "Halo", schema.ColRating: "NTSC ESRB M"},
		map[int]string{schema.ColTitle: "Ico", schema.ColPEGI: "PEGI 12"},
		map[int]string{schema.ColTitle: "Mother 3", schema.ColRating: "CERO A"},
	)

	result, err := newImporter(store).Import(context.Background(), raw, opts)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	want := []int64{opts.Regions[core.RegionNTSCU], opts.Regions[core.RegionPAL], opts.Regions[core.RegionNTSCJ]}
	for i, g := range result.Accepted {
		if g.RegionID == nil || *g.RegionID != want[i] {
			t.Errorf("%s RegionID = %v, want %d", g.Title, g.RegionID, want[i])
		}
	}
}

func TestImport_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"only blank lines", "\n\r\n   \n"},
		{"no tabs", "Title Rating\nHalo 3 M\n"},
		{"binary", "PK\x03\x04\x00\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newImporter(database.NewMemoryStore()).Import(context.Background(), tt.raw, core.ImportOptions{})
			if !errors.Is(err, core.ErrMalformedImport) {
				t.Errorf("Import() error = %v, want ErrMalformedImport", err)
			}
		})
	}
}

func TestImport_HeaderOnlyAndBlankLines(t *testing.T) {
	store := database.NewMemoryStore()

	result, err := newImporter(store).Import(context.Background(), tsv(), core.ImportOptions{})
	if err != nil {
		t.Fatalf("Import() header only error: %v", err)
	}
	if result.Total() != 0 {
		t.Errorf("header only processed %d rows", result.Total())
	}

	raw := "\xEF\xBB\xBF" + strings.Join(schema.Header(), "\t") + "\r\n\r\n" + tsvRow(map[int]string{schema.ColTitle: "Vib-Ribbon"}) + "\r\n"
	result, err = newImporter(store).Import(context.Background(), raw, core.ImportOptions{})
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if len(result.Accepted) != 1 || result.Accepted[0].Title != "Vib-Ribbon" {
		t.Errorf("accepted = %+v", result.Accepted)
	}
}

func TestImport_TabOnlyLinesAreBlank(t *testing.T) {
	store := database.NewMemoryStore()
	raw := strings.Join([]string{
		strings.Join(schema.Header(), "\t"),
		tsvRow(map[int]string{schema.ColTitle: "Halo"}),
		"\t\t\t",
		" \t ",
		tsvRow(map[int]string{schema.ColPEGI: "PEGI 12"}),
		tsvRow(map[int]string{schema.ColTitle: "Fable"}),
	}, "\n")

	result, err := newImporter(store).Import(context.Background(), raw, core.ImportOptions{})
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if len(result.Accepted) != 2 {
		t.Errorf("accepted %d, want 2", len(result.Accepted))
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("rejected = %+v, want only the untitled row", result.Rejected)
	}

	// Skipped lines take no row number but keep their physical line.
	if got := result.Rejected[0]; got.Row != 2 || got.Line != 5 {
		t.Errorf("rejected row %d line %d, want row 2 line 5", got.Row, got.Line)
	}
}

func TestImport_Aborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := database.NewMemoryStore()
	raw := tsv(map[int]string{schema.ColTitle: "Killer7"}, map[int]string{schema.ColTitle: "Gitaroo Man"})

	result, err := newImporter(store).Import(ctx, raw, core.ImportOptions{})
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if result.Aborted == "" {
		t.Error("expected Aborted to be set")
	}
	if result.Total() != 0 {
		t.Errorf("processed %d rows after cancel", result.Total())
	}
}

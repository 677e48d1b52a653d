package core

// importer.go turns pasted spreadsheet text into catalog games.
//
// Import flow:
//  1. Normalize: strip a BOM, sanitize UTF-8, reject binary or oversized input
//  2. Tokenize: split lines (\r\n tolerated), drop blank lines, split on tabs
//  3. Map: read cells by position through schema.GameColumns
//  4. Coerce: prices to float64 (nil when unparseable), release date to a year
//  5. Validate and dedup each row against the catalog
//  6. Insert rows one at a time; a failure rejects only that row
//
// There is no transaction around the batch. Rows inserted before a failing
// row stay inserted, and each accepted row is visible to the duplicate check
// of the rows after it.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/gamevault/internal/logging"
	"github.com/JonMunkholm/gamevault/internal/schema"
)

// DefaultMaxImportBytes caps import input when no limit is configured.
const DefaultMaxImportBytes = 10 << 20

// ImportOptions scopes an import run.
type ImportOptions struct {
	// ConsoleID is assigned to every imported game and scopes the title
	// uniqueness check.
	ConsoleID *int64

	// RegionID, when set, is assigned to every row. Otherwise the region is
	// inferred from each row's rating code and looked up in Regions.
	RegionID *int64
	Regions  map[string]int64 // upper-case region name -> id, see RegionIndex

	// Rate, when set, derives the NOK column from the imported USD prices.
	Rate *ExchangeRate
}

// RejectedRow records why one data row was not imported.
type RejectedRow struct {
	Row    int    `json:"row"`  // 1-based data row, header excluded
	Line   int    `json:"line"` // 1-based physical line in the input
	Title  string `json:"title,omitempty"`
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"`
}

// ImportResult is the outcome of one import run.
type ImportResult struct {
	ImportID uuid.UUID     `json:"import_id"`
	Accepted []CatalogGame `json:"accepted"`
	Rejected []RejectedRow `json:"rejected"`
	Duration time.Duration `json:"duration"`

	// Aborted is set when the context ended before every row was processed.
	Aborted string `json:"aborted,omitempty"`
}

// Total returns the number of data rows processed.
func (r *ImportResult) Total() int {
	return len(r.Accepted) + len(r.Rejected)
}

// Importer runs imports against a game store.
type Importer struct {
	games    GameStore
	detector *DuplicateDetector
	maxBytes int64
}

// NewImporter creates an importer. maxBytes <= 0 uses DefaultMaxImportBytes.
func NewImporter(games GameStore, detector *DuplicateDetector, maxBytes int64) *Importer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImportBytes
	}
	return &Importer{games: games, detector: detector, maxBytes: maxBytes}
}

// importLine is one non-blank input line split into cells.
type importLine struct {
	num   int
	cells []string
}

// Import parses raw tab-separated text and inserts each valid row. Only
// input that is not tabular text at all fails the call; everything else is
// reported per row in the result.
func (im *Importer) Import(ctx context.Context, raw string, opts ImportOptions) (*ImportResult, error) {
	start := time.Now()

	text, err := ReadImport(strings.NewReader(raw), im.maxBytes)
	if err != nil {
		return nil, err
	}

	header, rows, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		ImportID: uuid.New(),
		Accepted: []CatalogGame{},
		Rejected: []RejectedRow{},
	}
	log := logging.WithFields(ctx, "import_id", result.ImportID, "client_ip", ClientIPFromContext(ctx))
	log.Info("import started", "rows", len(rows))
	log.Debug("import header", "columns", header)

	for i, line := range rows {
		if err := ctx.Err(); err != nil {
			result.Aborted = err.Error()
			log.Warn("import aborted", "error", err, "processed", i, "rows", len(rows))
			break
		}

		rowNum := i + 1
		game, err := im.importRow(ctx, line.cells, opts)
		if err != nil && ctx.Err() != nil {
			result.Aborted = ctx.Err().Error()
			log.Warn("import aborted", "error", ctx.Err(), "processed", i, "rows", len(rows))
			break
		}
		if err != nil {
			rej := RejectedRow{
				Row:    rowNum,
				Line:   line.num,
				Title:  CleanCell(schema.Cell(line.cells, schema.ColTitle)),
				Reason: rejectReason(err),
				Code:   MapError(err).Code,
			}
			result.Rejected = append(result.Rejected, rej)
			log.Debug("import row rejected", "row", rowNum, "line", line.num, "reason", rej.Reason, "error", err)
			continue
		}
		result.Accepted = append(result.Accepted, game)
	}

	result.Duration = time.Since(start)
	log.Info("import finished",
		"accepted", len(result.Accepted),
		"rejected", len(result.Rejected),
		"duration", result.Duration)

	return result, nil
}

// tokenize splits normalized text into a header and data lines. Blank lines,
// including lines of only tabs and spaces, are dropped: they carry no cells
// and do not get a row number. They still count for line numbers.
func tokenize(text string) ([]string, []importLine, error) {
	var lines []importLine
	for i, l := range strings.Split(text, "\n") {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, importLine{num: i + 1, cells: strings.Split(l, "\t")})
	}

	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("%w: no content", ErrMalformedImport)
	}
	if len(lines[0].cells) < 2 {
		return nil, nil, fmt.Errorf("%w: header has no tab separators", ErrMalformedImport)
	}
	return lines[0].cells, lines[1:], nil
}

// importRow maps, validates, dedups and inserts one data row.
func (im *Importer) importRow(ctx context.Context, cells []string, opts ImportOptions) (CatalogGame, error) {
	game, err := gameFromRow(cells, opts)
	if err != nil {
		return CatalogGame{}, err
	}

	dup, err := im.detector.Check(ctx, game.Title, game.ConsoleID, game.PricechartingURL)
	if err != nil {
		return CatalogGame{}, fmt.Errorf("duplicate check: %w", err)
	}
	if dup.Exists {
		return CatalogGame{}, &DuplicateError{Result: dup}
	}

	id, err := im.games.InsertGame(ctx, game)
	if err != nil {
		return CatalogGame{}, fmt.Errorf("insert: %w", err)
	}
	game.ID = id
	return game, nil
}

// priceColumns maps import price cells onto tiers. Imported prices are USD.
var priceColumns = []struct {
	tier Tier
	col  int
}{
	{TierLoose, schema.ColLoosePrice},
	{TierCIB, schema.ColCIBPrice},
	{TierNew, schema.ColNewPrice},
	{TierBox, schema.ColBoxPrice},
	{TierManual, schema.ColManualPrice},
}

// gameFromRow maps one row onto a CatalogGame through the positional schema.
func gameFromRow(cells []string, opts ImportOptions) (CatalogGame, error) {
	cell := func(col int) string { return CleanCell(schema.Cell(cells, col)) }

	g := CatalogGame{
		Title:            cell(schema.ColTitle),
		ConsoleID:        opts.ConsoleID,
		PricechartingURL: cell(schema.ColPricechartingURL),
		CoverURL:         cell(schema.ColCoverURL),
		PricechartingID:  cell(schema.ColPricechartingID),
		Developer:        cell(schema.ColDeveloper),
		Publisher:        cell(schema.ColPublisher),
		Genre:            cell(schema.ColGenre),
		AgeRating:        cell(schema.ColPEGI),
	}
	if g.Title == "" {
		return CatalogGame{}, ValidationError{Field: "title", Message: "required field is empty"}
	}

	year, err := ParseReleaseYear(cell(schema.ColReleaseDate))
	if err != nil {
		return CatalogGame{}, err
	}
	g.ReleaseYear = year

	g.RegionID = resolveRegion(cell(schema.ColRating), g.AgeRating, opts)

	for _, pc := range priceColumns {
		usd := nonNegative(ParsePrice(cell(pc.col)))
		g.Prices.Set(pc.tier, ColumnUSD, usd)
		if usd != nil && opts.Rate != nil {
			g.Prices.Set(pc.tier, ColumnNOK, ptr(ConvertAmount(*usd, opts.Rate.Rate)))
		}
	}

	if err := ValidateGame(g); err != nil {
		return CatalogGame{}, err
	}
	return g, nil
}

// resolveRegion picks the row's region id: the explicit option first, then
// the region inferred from the rating code (or the PEGI cell when the rating
// column is blank).
func resolveRegion(ratingCode, pegi string, opts ImportOptions) *int64 {
	if opts.RegionID != nil {
		return opts.RegionID
	}
	if len(opts.Regions) == 0 {
		return nil
	}
	code := ratingCode
	if code == "" {
		code = pegi
	}
	if id, ok := opts.Regions[InferRegion(code)]; ok {
		return ptr(id)
	}
	return nil
}

// nonNegative drops negative amounts, which only show up as spreadsheet noise.
func nonNegative(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}

// rejectReason is the human-readable reason stored on a rejected row.
// Store failures are mapped so raw driver text never reaches the user.
func rejectReason(err error) string {
	var ve ValidationError
	var dup *DuplicateError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &dup):
		return dup.Result.Message
	}
	return MapError(err).Message
}

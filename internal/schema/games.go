// Package schema defines the positional column layout of catalog import files.
//
// Import files are tab-separated with a header row. The header is only
// logged; a column's meaning comes from its position, so historical files
// keep importing the same way. Changing the layout is a one-line edit to
// GameColumns.
package schema

// FieldType represents the expected data type of an import column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldURL
	FieldDate
	FieldNumeric
)

// FieldSpec describes one positional column.
type FieldSpec struct {
	Name     string    // Header label as exported by the source spreadsheet
	Type     FieldType // Expected data type
	Required bool      // Row is rejected when the cell is blank
}

// Column positions in a game import row.
const (
	ColTitle = iota
	ColRating
	ColPricechartingURL
	ColMobyGamesURL
	ColIGDBURL
	ColWikipediaURL
	ColGameFAQsURL
	ColEbayURL
	ColCoverURL
	ColPricechartingID
	ColDeveloper
	ColPublisher
	ColReleaseDate
	ColGenre
	ColPEGI
	ColLoosePrice
	ColCIBPrice
	ColNewPrice
	ColBoxPrice
	ColManualPrice

	ColumnCount
)

// GameColumns is the fixed layout of a game import row, indexed by the
// Col* constants.
var GameColumns = [ColumnCount]FieldSpec{
	ColTitle:            {Name: "Title", Type: FieldText, Required: true},
	ColRating:           {Name: "Rating", Type: FieldText},
	ColPricechartingURL: {Name: "PriceCharting URL", Type: FieldURL},
	ColMobyGamesURL:     {Name: "MobyGames URL", Type: FieldURL},
	ColIGDBURL:          {Name: "IGDB URL", Type: FieldURL},
	ColWikipediaURL:     {Name: "Wikipedia URL", Type: FieldURL},
	ColGameFAQsURL:      {Name: "GameFAQs URL", Type: FieldURL},
	ColEbayURL:          {Name: "eBay URL", Type: FieldURL},
	ColCoverURL:         {Name: "Cover URL", Type: FieldURL},
	ColPricechartingID:  {Name: "PriceCharting ID", Type: FieldText},
	ColDeveloper:        {Name: "Developer", Type: FieldText},
	ColPublisher:        {Name: "Publisher", Type: FieldText},
	ColReleaseDate:      {Name: "Release Date", Type: FieldDate},
	ColGenre:            {Name: "Genre", Type: FieldText},
	ColPEGI:             {Name: "PEGI", Type: FieldText},
	ColLoosePrice:       {Name: "Loose Price", Type: FieldNumeric},
	ColCIBPrice:         {Name: "CIB Price", Type: FieldNumeric},
	ColNewPrice:         {Name: "New Price", Type: FieldNumeric},
	ColBoxPrice:         {Name: "Box Price", Type: FieldNumeric},
	ColManualPrice:      {Name: "Manual Price", Type: FieldNumeric},
}

// Header returns the column labels in positional order, as written to the
// first line of an export or template file.
func Header() []string {
	out := make([]string, len(GameColumns))
	for i, spec := range GameColumns {
		out[i] = spec.Name
	}
	return out
}

// Cell returns the value at position col, or "" when the row is too short.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

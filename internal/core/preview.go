package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/gamevault/internal/schema"
)

// PreviewSummary counts what an import would do.
type PreviewSummary struct {
	TotalRows       int `json:"total_rows"`
	NewRows         int `json:"new_rows"`
	ExistingRows    int `json:"existing_rows"`
	ErrorRows       int `json:"error_rows"`
	DuplicateInFile int `json:"duplicate_in_file"`
}

// RowPreview is a row that would be inserted.
type RowPreview struct {
	LineNumber int               `json:"line_number"`
	RowKey     string            `json:"row_key"`
	Values     map[string]string `json:"values"`
}

// ExistingPreview is a row that collides with a catalogued game.
type ExistingPreview struct {
	LineNumber int             `json:"line_number"`
	RowKey     string          `json:"row_key"`
	Duplicate  DuplicateResult `json:"duplicate"`
}

// ErrorPreview is a row that fails coercion or validation.
type ErrorPreview struct {
	LineNumber int               `json:"line_number"`
	Values     map[string]string `json:"values"`
	Errors     []string          `json:"errors"`
}

// DuplicatePreview is a key that appears on more than one line of the input.
type DuplicatePreview struct {
	RowKey      string `json:"row_key"`
	LineNumbers []int  `json:"line_numbers"`
}

// PreviewResponse is the read-only analysis of an import.
type PreviewResponse struct {
	Summary          PreviewSummary     `json:"summary"`
	NewRowSamples    []RowPreview       `json:"new_row_samples"`
	ExistingSamples  []ExistingPreview  `json:"existing_samples"`
	ErrorSamples     []ErrorPreview     `json:"error_samples"`
	DuplicateSamples []DuplicatePreview `json:"duplicate_samples"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
}

// Sample limits
const (
	maxNewRowSamples    = 10
	maxExistingSamples  = 10
	maxErrorSamples     = 20
	maxDuplicateSamples = 10
)

// Preview analyzes an import without writing anything. Rows are coerced and
// validated exactly as Import would, then checked against the catalog and
// against earlier rows of the same input.
func (im *Importer) Preview(ctx context.Context, raw string, opts ImportOptions) (*PreviewResponse, error) {
	startTime := time.Now()

	text, err := ReadImport(strings.NewReader(raw), im.maxBytes)
	if err != nil {
		return nil, err
	}
	_, rows, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	resp := &PreviewResponse{
		Summary:          PreviewSummary{TotalRows: len(rows)},
		NewRowSamples:    []RowPreview{},
		ExistingSamples:  []ExistingPreview{},
		ErrorSamples:     []ErrorPreview{},
		DuplicateSamples: []DuplicatePreview{},
	}

	// rowKey -> line numbers, in input order
	seenKeys := make(map[string][]int)
	var keyOrder []string
	seenURLs := make(map[string]bool)

	for _, line := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		values := extractRowValues(line.cells)
		game, err := gameFromRow(line.cells, opts)
		if err != nil {
			resp.Summary.ErrorRows++
			if len(resp.ErrorSamples) < maxErrorSamples {
				resp.ErrorSamples = append(resp.ErrorSamples, ErrorPreview{
					LineNumber: line.num,
					Values:     values,
					Errors:     []string{rejectReason(err)},
				})
			}
			continue
		}

		key := previewKey(game)
		if _, ok := seenKeys[key]; !ok {
			keyOrder = append(keyOrder, key)
		}
		seenKeys[key] = append(seenKeys[key], line.num)
		if len(seenKeys[key]) > 1 || (game.PricechartingURL != "" && seenURLs[game.PricechartingURL]) {
			resp.Summary.DuplicateInFile++
			continue
		}
		if game.PricechartingURL != "" {
			seenURLs[game.PricechartingURL] = true
		}

		dup, err := im.detector.Check(ctx, game.Title, game.ConsoleID, game.PricechartingURL)
		if err != nil {
			return nil, fmt.Errorf("duplicate check: %w", err)
		}
		if dup.Exists {
			resp.Summary.ExistingRows++
			if len(resp.ExistingSamples) < maxExistingSamples {
				resp.ExistingSamples = append(resp.ExistingSamples, ExistingPreview{
					LineNumber: line.num,
					RowKey:     key,
					Duplicate:  dup,
				})
			}
			continue
		}

		resp.Summary.NewRows++
		if len(resp.NewRowSamples) < maxNewRowSamples {
			resp.NewRowSamples = append(resp.NewRowSamples, RowPreview{
				LineNumber: line.num,
				RowKey:     key,
				Values:     values,
			})
		}
	}

	for _, key := range keyOrder {
		lines := seenKeys[key]
		if len(lines) > 1 && len(resp.DuplicateSamples) < maxDuplicateSamples {
			resp.DuplicateSamples = append(resp.DuplicateSamples, DuplicatePreview{
				RowKey:      key,
				LineNumbers: lines,
			})
		}
	}

	resp.ProcessingTimeMs = time.Since(startTime).Milliseconds()
	return resp, nil
}

// previewKey is the title uniqueness key of a game: lower-cased title and
// console id.
func previewKey(g CatalogGame) string {
	console := "none"
	if g.ConsoleID != nil {
		console = fmt.Sprint(*g.ConsoleID)
	}
	return strings.ToLower(g.Title) + "|" + console
}

// extractRowValues returns the non-empty cells of a row keyed by column name.
func extractRowValues(cells []string) map[string]string {
	values := make(map[string]string)
	for i, spec := range schema.GameColumns {
		if v := CleanCell(schema.Cell(cells, i)); v != "" {
			values[spec.Name] = v
		}
	}
	return values
}

package core

// validation.go checks entities before they reach the store.
//
// Validation happens at two levels:
//  1. Row validation: an import row must carry a title and a parseable
//     release date (see importer.go)
//  2. Entity validation: games and collection items are checked here before
//     every insert or update, whichever surface they came from
//
// Validation errors include the field name, invalid value, and a
// human-readable message.

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field/column name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidateGame checks a catalog game before insert or update.
func ValidateGame(g CatalogGame) error {
	if strings.TrimSpace(g.Title) == "" {
		return ValidationError{Field: "title", Message: "required field is empty"}
	}
	if g.ReleaseYear != nil && (*g.ReleaseYear < 1950 || *g.ReleaseYear > 2100) {
		return ValidationError{Field: "release_year", Value: fmt.Sprint(*g.ReleaseYear), Message: "invalid date: year out of range"}
	}
	for _, t := range Tiers {
		for _, c := range Columns {
			v := g.Prices.Get(t, c)
			if v == nil {
				continue
			}
			if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
				return ValidationError{
					Field:   fmt.Sprintf("%s_%s", t, strings.ToLower(string(c))),
					Value:   fmt.Sprint(*v),
					Message: "invalid number: price must be a non-negative amount",
				}
			}
		}
	}
	return nil
}

// ValidateItem checks a collection item before insert or update.
func ValidateItem(item CollectionItem) error {
	if item.GameID <= 0 {
		return ValidationError{Field: "game_id", Message: "required field is empty"}
	}
	if err := item.Conditions().Validate(); err != nil {
		return err
	}
	if item.PriceOverride != nil && (math.IsNaN(*item.PriceOverride) || math.IsInf(*item.PriceOverride, 0)) {
		return ValidationError{Field: "price_override", Message: "invalid number"}
	}
	return nil
}

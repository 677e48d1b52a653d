package core

import (
	"math"
	"strconv"
	"strings"
)

// Provenance tags which precedence rule produced a resolved price.
type Provenance string

const (
	ProvenanceOverride Provenance = "override"
	ProvenanceNew      Provenance = "new"
	ProvenanceCIB      Provenance = "cib"
	ProvenanceLoose    Provenance = "loose"
	ProvenanceNone     Provenance = "none"
)

// Resolution is the single displayed price of a copy and where it came from.
type Resolution struct {
	Amount     *float64   `json:"amount"`
	Provenance Provenance `json:"provenance"`
	Column     Column     `json:"column"`
}

// Resolve picks the final price of item in column col. The first matching
// rule wins:
//
//  1. a price override, taken as already denominated in col
//  2. the New tier, when the copy is new
//  3. the CIB tier, when box, manual and disc are all present
//  4. the Loose tier
//
// Missing data degrades to ProvenanceNone; Resolve never fails.
func Resolve(item CollectionItem, game CatalogGame, col Column) Resolution {
	if item.PriceOverride != nil && !math.IsNaN(*item.PriceOverride) {
		return Resolution{Amount: ptr(*item.PriceOverride), Provenance: ProvenanceOverride, Column: col}
	}

	if item.IsNew {
		if v := game.Prices.New.Get(col); v != nil {
			return Resolution{Amount: ptr(*v), Provenance: ProvenanceNew, Column: col}
		}
	}

	if Classify(item.Box, item.Manual, item.Disc, item.IsNew).IsCIB {
		if v := game.Prices.CIB.Get(col); v != nil {
			return Resolution{Amount: ptr(*v), Provenance: ProvenanceCIB, Column: col}
		}
	}

	if v := game.Prices.Loose.Get(col); v != nil {
		return Resolution{Amount: ptr(*v), Provenance: ProvenanceLoose, Column: col}
	}

	return Resolution{Provenance: ProvenanceNone, Column: col}
}

// ParseOverride converts a user-supplied override. Blank input means no
// override; any finite number, zero included, is a valid override.
func ParseOverride(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, ValidationError{Field: "price_override", Value: s, Message: "must be a number"}
	}
	return &v, nil
}

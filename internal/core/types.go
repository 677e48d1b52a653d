package core

import (
	"strings"
	"time"
)

// Tier is one of the five completeness-linked price categories stored per game.
type Tier string

const (
	TierLoose  Tier = "loose"
	TierCIB    Tier = "cib"
	TierNew    Tier = "new"
	TierBox    Tier = "box"
	TierManual Tier = "manual"
)

// Tiers lists every tier in column order.
var Tiers = []Tier{TierLoose, TierCIB, TierNew, TierBox, TierManual}

// Column selects one of the three currency/snapshot columns of a tier.
type Column string

const (
	ColumnUSD  Column = "USD"  // live market price
	ColumnNOK  Column = "NOK"  // live-converted from USD
	ColumnNOK2 Column = "NOK2" // pinned local valuation
)

// Columns lists every column in storage order.
var Columns = []Column{ColumnUSD, ColumnNOK, ColumnNOK2}

// ParseColumn resolves a column name case-insensitively.
func ParseColumn(s string) (Column, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "USD":
		return ColumnUSD, true
	case "NOK":
		return ColumnNOK, true
	case "NOK2", "FIXED":
		return ColumnNOK2, true
	}
	return "", false
}

// Currency returns the ISO currency an amount in this column is denominated in.
func (c Column) Currency() string {
	if c == ColumnUSD {
		return "USD"
	}
	return "NOK"
}

// TierPrices holds one tier's price in each column. Nil means no price.
type TierPrices struct {
	USD  *float64 `json:"usd"`
	NOK  *float64 `json:"nok"`
	NOK2 *float64 `json:"nok2"`
}

// Get returns the price for the given column.
func (p TierPrices) Get(c Column) *float64 {
	switch c {
	case ColumnUSD:
		return p.USD
	case ColumnNOK:
		return p.NOK
	case ColumnNOK2:
		return p.NOK2
	}
	return nil
}

// Prices holds the fifteen price fields of a catalog game.
type Prices struct {
	Loose  TierPrices `json:"loose"`
	CIB    TierPrices `json:"cib"`
	New    TierPrices `json:"new"`
	Box    TierPrices `json:"box"`
	Manual TierPrices `json:"manual"`
}

// Tier returns the prices of a single tier.
func (p Prices) Tier(t Tier) TierPrices {
	switch t {
	case TierLoose:
		return p.Loose
	case TierCIB:
		return p.CIB
	case TierNew:
		return p.New
	case TierBox:
		return p.Box
	case TierManual:
		return p.Manual
	}
	return TierPrices{}
}

// tierRef returns a pointer to the tier for in-place updates.
func (p *Prices) tierRef(t Tier) *TierPrices {
	switch t {
	case TierLoose:
		return &p.Loose
	case TierCIB:
		return &p.CIB
	case TierNew:
		return &p.New
	case TierBox:
		return &p.Box
	case TierManual:
		return &p.Manual
	}
	return nil
}

// Get returns a single price cell.
func (p Prices) Get(t Tier, c Column) *float64 {
	return p.Tier(t).Get(c)
}

// Set replaces a single price cell. Unknown tiers or columns are ignored.
func (p *Prices) Set(t Tier, c Column, v *float64) {
	tp := p.tierRef(t)
	if tp == nil {
		return
	}
	switch c {
	case ColumnUSD:
		tp.USD = v
	case ColumnNOK:
		tp.NOK = v
	case ColumnNOK2:
		tp.NOK2 = v
	}
}

// Flat returns the fifteen raw columns keyed as "<tier>_<column>", e.g. "cib_nok2".
func (p Prices) Flat() map[string]*float64 {
	out := make(map[string]*float64, len(Tiers)*len(Columns))
	for _, t := range Tiers {
		for _, c := range Columns {
			out[string(t)+"_"+strings.ToLower(string(c))] = p.Get(t, c)
		}
	}
	return out
}

// CatalogGame is a catalog entry with its market valuations.
type CatalogGame struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	ConsoleID        *int64 `json:"console_id"`
	RegionID         *int64 `json:"region_id"`
	RatingID         *int64 `json:"rating_id"`
	PricechartingID  string `json:"pricecharting_id,omitempty"`
	PricechartingURL string `json:"pricecharting_url,omitempty"`
	CoverURL         string `json:"cover_url,omitempty"`
	Developer        string `json:"developer,omitempty"`
	Publisher        string `json:"publisher,omitempty"`
	ReleaseYear      *int   `json:"release_year"`
	Genre            string `json:"genre,omitempty"`
	AgeRating        string `json:"age_rating,omitempty"`
	IsSpecial        bool   `json:"is_special"`
	IsKinect         bool   `json:"is_kinect"`
	Prices           Prices `json:"prices"`
}

// CollectionItem is one owned copy of a catalog game.
type CollectionItem struct {
	ID            int64     `json:"id"`
	GameID        int64     `json:"game_id"`
	ConsoleID     *int64    `json:"console_id"`
	RegionID      *int64    `json:"region_id"`
	Box           Rating    `json:"box_condition"`
	Manual        Rating    `json:"manual_condition"`
	Disc          Rating    `json:"disc_condition"`
	PriceOverride *float64  `json:"price_override"`
	IsSpecial     bool      `json:"is_special"`
	IsKinect      bool      `json:"is_kinect"`
	IsNew         bool      `json:"is_new"`
	IsPromo       bool      `json:"is_promo"`
	AddedDate     time.Time `json:"added_date"`
}

// Conditions returns the item's condition ratings as a value object.
func (i CollectionItem) Conditions() Conditions {
	return Conditions{Box: i.Box, Manual: i.Manual, Disc: i.Disc, New: i.IsNew}
}

// WithConditions returns a copy of the item carrying c.
func (i CollectionItem) WithConditions(c Conditions) CollectionItem {
	i.Box, i.Manual, i.Disc, i.IsNew = c.Box, c.Manual, c.Disc, c.New
	return i
}

// ExchangeRate is a single observation of a currency rate.
type ExchangeRate struct {
	Currency  string    `json:"currency"`
	Rate      float64   `json:"rate"`
	Timestamp time.Time `json:"timestamp"`
}

// Console is a gaming platform games are catalogued under.
type Console struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Region is a release region such as PAL or NTSC-U.
type Region struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GameFilter narrows FindGames. Zero fields are ignored.
type GameFilter struct {
	ID               int64
	Title            string // case-insensitive exact match
	ConsoleID        *int64
	MatchConsole     bool // when true ConsoleID is compared even if nil
	RegionID         *int64
	PricechartingURL string
	PricechartingID  string
	Search           string // case-insensitive substring of title
	Limit            int
}

// ItemFilter narrows FindCollectionItems. Zero fields are ignored.
type ItemFilter struct {
	ID        int64
	GameID    int64
	ConsoleID *int64
	Limit     int
}

func ptr[T any](v T) *T { return &v }

package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Rating is the ordinal physical condition of one component of a copy:
// 5 (mint) down to 1 (poor). RatingMissing marks an absent component.
type Rating int

const (
	RatingMissing Rating = 0
	RatingPoor    Rating = 1
	RatingFair    Rating = 2
	RatingGood    Rating = 3
	RatingGreat   Rating = 4
	RatingMint    Rating = 5
)

// Ratings lists the full rating domain, best first.
var Ratings = []Rating{RatingMint, RatingGreat, RatingGood, RatingFair, RatingPoor, RatingMissing}

// ParseRating accepts "1".."5", "0" and "missing".
func ParseRating(s string) (Rating, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "missing", "0":
		return RatingMissing, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < int(RatingPoor) || n > int(RatingMint) {
		return RatingMissing, ValidationError{Field: "condition", Value: s, Message: "must be 1-5 or \"missing\""}
	}
	return Rating(n), nil
}

// Absent reports whether the component is missing.
func (r Rating) Absent() bool { return r == RatingMissing }

// Valid reports whether r lies in the rating domain.
func (r Rating) Valid() bool { return r >= RatingMissing && r <= RatingMint }

func (r Rating) String() string {
	if r.Absent() {
		return "missing"
	}
	return strconv.Itoa(int(r))
}

// MarshalJSON encodes present ratings as numbers and absent ones as "missing".
func (r Rating) MarshalJSON() ([]byte, error) {
	if r.Absent() {
		return []byte(`"missing"`), nil
	}
	return []byte(strconv.Itoa(int(r))), nil
}

// UnmarshalJSON accepts numbers, numeric strings, "missing" and null.
func (r *Rating) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = RatingMissing
		return nil
	}
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	parsed, err := ParseRating(raw)
	if err != nil {
		return fmt.Errorf("rating: %w", err)
	}
	*r = parsed
	return nil
}

// Completeness is the classification derived from a copy's condition ratings.
type Completeness struct {
	IsCIB bool `json:"is_cib"`
	IsNew bool `json:"is_new"`
}

// Classify derives completeness from three ratings and the new flag.
// A copy is CIB when none of box, manual and disc is absent; IsNew mirrors
// the flag and is never derived from the ratings.
func Classify(box, manual, disc Rating, isNew bool) Completeness {
	return Completeness{
		IsCIB: !box.Absent() && !manual.Absent() && !disc.Absent(),
		IsNew: isNew,
	}
}

// Conditions is the immutable condition state of a copy. Transitions return
// a new value; callers never mutate ratings piecemeal.
type Conditions struct {
	Box    Rating `json:"box"`
	Manual Rating `json:"manual"`
	Disc   Rating `json:"disc"`
	New    bool   `json:"is_new"`
}

// Classify classifies the condition set.
func (c Conditions) Classify() Completeness {
	return Classify(c.Box, c.Manual, c.Disc, c.New)
}

// MarkNew enters the New state: all three ratings are pinned to mint in the
// same step.
func (c Conditions) MarkNew() Conditions {
	return Conditions{Box: RatingMint, Manual: RatingMint, Disc: RatingMint, New: true}
}

// ClearNew leaves the New state and keeps the pinned ratings as they are.
func (c Conditions) ClearNew() Conditions {
	c.New = false
	return c
}

// Component names a rated part of a copy.
type Component string

const (
	ComponentBox    Component = "box"
	ComponentManual Component = "manual"
	ComponentDisc   Component = "disc"
)

// WithRating changes one component's rating. Lowering any rating below mint
// leaves the New state, since a new copy is mint by definition.
func (c Conditions) WithRating(comp Component, r Rating) Conditions {
	switch comp {
	case ComponentBox:
		c.Box = r
	case ComponentManual:
		c.Manual = r
	case ComponentDisc:
		c.Disc = r
	}
	if c.New && r != RatingMint {
		c.New = false
	}
	return c
}

// Validate reports ratings outside the domain and a New state that is not
// pinned to mint.
func (c Conditions) Validate() error {
	for _, f := range []struct {
		name string
		r    Rating
	}{{"box_condition", c.Box}, {"manual_condition", c.Manual}, {"disc_condition", c.Disc}} {
		if !f.r.Valid() {
			return ValidationError{Field: f.name, Value: strconv.Itoa(int(f.r)), Message: "must be 1-5 or \"missing\""}
		}
	}
	if c.New && (c.Box != RatingMint || c.Manual != RatingMint || c.Disc != RatingMint) {
		return ValidationError{Field: "is_new", Message: "new copies must have all conditions at 5"}
	}
	return nil
}

package core

import (
	"context"
	"fmt"
	"strings"
)

// DuplicateReason names which uniqueness rule a candidate collided with.
type DuplicateReason string

const (
	ReasonTitle DuplicateReason = "title"
	ReasonURL   DuplicateReason = "url"
)

// DuplicateResult is the outcome of a duplicate check. It is a value, not an
// error: callers decide whether a collision fails their operation.
type DuplicateResult struct {
	Exists  bool            `json:"exists"`
	Reason  DuplicateReason `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
	MatchID int64           `json:"match_id,omitempty"`
}

// DuplicateDetector enforces catalog uniqueness before a game is accepted.
//
// Titles are unique per console, case-insensitively. PriceCharting URLs are
// unique across the whole catalog. The title rule is checked first and
// short-circuits the URL rule.
type DuplicateDetector struct {
	games GameStore
}

// NewDuplicateDetector creates a detector reading from games.
func NewDuplicateDetector(games GameStore) *DuplicateDetector {
	return &DuplicateDetector{games: games}
}

// Check reports whether a game with this title on this console, or with
// this PriceCharting URL anywhere, already exists.
func (d *DuplicateDetector) Check(ctx context.Context, title string, consoleID *int64, url string) (DuplicateResult, error) {
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)

	if title != "" {
		matches, err := d.games.FindGames(ctx, GameFilter{Title: title, ConsoleID: consoleID, MatchConsole: true})
		if err != nil {
			return DuplicateResult{}, fmt.Errorf("duplicate check by title: %w", err)
		}
		for _, g := range matches {
			if strings.EqualFold(g.Title, title) && sameConsole(g.ConsoleID, consoleID) {
				return DuplicateResult{
					Exists:  true,
					Reason:  ReasonTitle,
					Message: fmt.Sprintf("a game titled %q already exists for this console", g.Title),
					MatchID: g.ID,
				}, nil
			}
		}
	}

	if url != "" {
		matches, err := d.games.FindGames(ctx, GameFilter{PricechartingURL: url})
		if err != nil {
			return DuplicateResult{}, fmt.Errorf("duplicate check by url: %w", err)
		}
		for _, g := range matches {
			if g.PricechartingURL == url {
				return DuplicateResult{
					Exists:  true,
					Reason:  ReasonURL,
					Message: fmt.Sprintf("a game with PriceCharting URL %q already exists (%s)", url, g.Title),
					MatchID: g.ID,
				}, nil
			}
		}
	}

	return DuplicateResult{}, nil
}

func sameConsole(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

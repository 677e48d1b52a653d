package database

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/gamevault/internal/core"
)

// ListConsoles returns every console ordered by name.
func (q *Queries) ListConsoles(ctx context.Context) ([]core.Console, error) {
	rows, err := q.db.Query(ctx, "SELECT id, name FROM consoles ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query consoles: %w", err)
	}
	defer rows.Close()

	consoles := []core.Console{}
	for rows.Next() {
		var c core.Console
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan console: %w", err)
		}
		consoles = append(consoles, c)
	}
	return consoles, rows.Err()
}

// InsertConsole creates a console and returns its id.
func (q *Queries) InsertConsole(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := q.db.QueryRow(ctx, "INSERT INTO consoles (name) VALUES ($1) RETURNING id", name).Scan(&id); err != nil {
		return 0, writeError(err)
	}
	return id, nil
}

// DeleteConsole removes console id.
func (q *Queries) DeleteConsole(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, "DELETE FROM consoles WHERE id = $1", id)
	if err != nil {
		return deleteError(err, "console", id)
	}
	return requireAffected(tag, "console", id)
}

// ListRegions returns every region ordered by name.
func (q *Queries) ListRegions(ctx context.Context) ([]core.Region, error) {
	rows, err := q.db.Query(ctx, "SELECT id, name FROM regions ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	regions := []core.Region{}
	for rows.Next() {
		var r core.Region
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

// InsertRegion creates a region and returns its id.
func (q *Queries) InsertRegion(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := q.db.QueryRow(ctx, "INSERT INTO regions (name) VALUES ($1) RETURNING id", name).Scan(&id); err != nil {
		return 0, writeError(err)
	}
	return id, nil
}

// DeleteRegion removes region id.
func (q *Queries) DeleteRegion(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, "DELETE FROM regions WHERE id = $1", id)
	if err != nil {
		return deleteError(err, "region", id)
	}
	return requireAffected(tag, "region", id)
}

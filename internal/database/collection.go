package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/gamevault/internal/core"
)

const itemColumns = `id, game_id, console_id, region_id,
	box_condition, manual_condition, disc_condition, price_override,
	is_special, is_kinect, is_new, is_promo, added_date`

func itemArgs(it core.CollectionItem) []any {
	return []any{
		it.GameID,
		core.ToPgInt8(it.ConsoleID),
		core.ToPgInt8(it.RegionID),
		int16(it.Box),
		int16(it.Manual),
		int16(it.Disc),
		core.ToPgFloat8(it.PriceOverride),
		it.IsSpecial,
		it.IsKinect,
		it.IsNew,
		it.IsPromo,
		it.AddedDate,
	}
}

func scanItem(row pgx.Row) (core.CollectionItem, error) {
	var (
		it                  core.CollectionItem
		consoleID, regionID pgtype.Int8
		box, manual, disc   int16
		override            pgtype.Float8
	)
	err := row.Scan(
		&it.ID, &it.GameID, &consoleID, &regionID,
		&box, &manual, &disc, &override,
		&it.IsSpecial, &it.IsKinect, &it.IsNew, &it.IsPromo, &it.AddedDate,
	)
	if err != nil {
		return core.CollectionItem{}, err
	}
	it.ConsoleID = core.FromPgInt8(consoleID)
	it.RegionID = core.FromPgInt8(regionID)
	it.Box, it.Manual, it.Disc = core.Rating(box), core.Rating(manual), core.Rating(disc)
	it.PriceOverride = core.FromPgFloat8(override)
	return it, nil
}

// FindCollectionItems returns items matching filter ordered by id.
func (q *Queries) FindCollectionItems(ctx context.Context, filter core.ItemFilter) ([]core.CollectionItem, error) {
	wb := NewWhereBuilder()
	wb.Add("id", filter.ID)
	wb.Add("game_id", filter.GameID)
	wb.Add("console_id", filter.ConsoleID)
	where, args := wb.Build()

	query := "SELECT " + itemColumns + " FROM collection_items" + where + " ORDER BY id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", wb.NextArgIndex())
		args = append(args, filter.Limit)
	}

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query collection items: %w", err)
	}
	defer rows.Close()

	items := []core.CollectionItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetCollectionItem returns item id or a NotFoundError.
func (q *Queries) GetCollectionItem(ctx context.Context, id int64) (core.CollectionItem, error) {
	row := q.db.QueryRow(ctx, "SELECT "+itemColumns+" FROM collection_items WHERE id = $1", id)
	it, err := scanItem(row)
	if err != nil {
		return core.CollectionItem{}, rowError(err, "collection item", id)
	}
	return it, nil
}

// InsertCollectionItem inserts item and returns its id.
func (q *Queries) InsertCollectionItem(ctx context.Context, item core.CollectionItem) (int64, error) {
	const query = `INSERT INTO collection_items (
		game_id, console_id, region_id,
		box_condition, manual_condition, disc_condition, price_override,
		is_special, is_kinect, is_new, is_promo, added_date
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`

	var id int64
	if err := q.db.QueryRow(ctx, query, itemArgs(item)...).Scan(&id); err != nil {
		return 0, writeError(err)
	}
	return id, nil
}

// UpdateCollectionItem overwrites every column of item id.
func (q *Queries) UpdateCollectionItem(ctx context.Context, id int64, item core.CollectionItem) error {
	const query = `UPDATE collection_items SET
		game_id = $1, console_id = $2, region_id = $3,
		box_condition = $4, manual_condition = $5, disc_condition = $6,
		price_override = $7, is_special = $8, is_kinect = $9,
		is_new = $10, is_promo = $11, added_date = $12
	WHERE id = $13`

	tag, err := q.db.Exec(ctx, query, append(itemArgs(item), id)...)
	if err != nil {
		return writeError(err)
	}
	return requireAffected(tag, "collection item", id)
}

// DeleteCollectionItem removes item id.
func (q *Queries) DeleteCollectionItem(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, "DELETE FROM collection_items WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "collection item", id)
}

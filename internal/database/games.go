package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/gamevault/internal/core"
)

// gameColumns is the select list shared by every game query. scanGame reads
// the columns in this order.
const gameColumns = `id, title, console_id, region_id, rating_id,
	pricecharting_id, pricecharting_url, cover_url, developer, publisher,
	release_year, genre, age_rating, is_special, is_kinect,
	loose_usd, loose_nok, loose_nok2,
	cib_usd, cib_nok, cib_nok2,
	new_usd, new_nok, new_nok2,
	box_usd, box_nok, box_nok2,
	manual_usd, manual_nok, manual_nok2`

const insertGame = `INSERT INTO games (
	title, console_id, region_id, rating_id,
	pricecharting_id, pricecharting_url, cover_url, developer, publisher,
	release_year, genre, age_rating, is_special, is_kinect,
	loose_usd, loose_nok, loose_nok2,
	cib_usd, cib_nok, cib_nok2,
	new_usd, new_nok, new_nok2,
	box_usd, box_nok, box_nok2,
	manual_usd, manual_nok, manual_nok2
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
	$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29
) RETURNING id`

const updateGame = `UPDATE games SET
	title = $1, console_id = $2, region_id = $3, rating_id = $4,
	pricecharting_id = $5, pricecharting_url = $6, cover_url = $7,
	developer = $8, publisher = $9, release_year = $10, genre = $11,
	age_rating = $12, is_special = $13, is_kinect = $14,
	loose_usd = $15, loose_nok = $16, loose_nok2 = $17,
	cib_usd = $18, cib_nok = $19, cib_nok2 = $20,
	new_usd = $21, new_nok = $22, new_nok2 = $23,
	box_usd = $24, box_nok = $25, box_nok2 = $26,
	manual_usd = $27, manual_nok = $28, manual_nok2 = $29
WHERE id = $30`

// gameArgs returns the 29 write parameters shared by insert and update.
func gameArgs(g core.CatalogGame) []any {
	args := []any{
		strings.TrimSpace(g.Title),
		core.ToPgInt8(g.ConsoleID),
		core.ToPgInt8(g.RegionID),
		core.ToPgInt8(g.RatingID),
		core.ToPgText(g.PricechartingID),
		core.ToPgText(g.PricechartingURL),
		core.ToPgText(g.CoverURL),
		core.ToPgText(g.Developer),
		core.ToPgText(g.Publisher),
		core.ToPgInt4(g.ReleaseYear),
		core.ToPgText(g.Genre),
		core.ToPgText(g.AgeRating),
		g.IsSpecial,
		g.IsKinect,
	}
	for _, t := range core.Tiers {
		for _, c := range core.Columns {
			args = append(args, core.ToPgFloat8(g.Prices.Get(t, c)))
		}
	}
	return args
}

func scanGame(row pgx.Row) (core.CatalogGame, error) {
	var (
		g                                        core.CatalogGame
		consoleID, regionID, ratingID            pgtype.Int8
		pcID, pcURL, cover, dev, pub, genre, age pgtype.Text
		year                                     pgtype.Int4
		prices                                   [15]pgtype.Float8
	)

	dest := []any{
		&g.ID, &g.Title, &consoleID, &regionID, &ratingID,
		&pcID, &pcURL, &cover, &dev, &pub,
		&year, &genre, &age, &g.IsSpecial, &g.IsKinect,
	}
	for i := range prices {
		dest = append(dest, &prices[i])
	}
	if err := row.Scan(dest...); err != nil {
		return core.CatalogGame{}, err
	}

	g.ConsoleID = core.FromPgInt8(consoleID)
	g.RegionID = core.FromPgInt8(regionID)
	g.RatingID = core.FromPgInt8(ratingID)
	g.PricechartingID = core.FromPgText(pcID)
	g.PricechartingURL = core.FromPgText(pcURL)
	g.CoverURL = core.FromPgText(cover)
	g.Developer = core.FromPgText(dev)
	g.Publisher = core.FromPgText(pub)
	g.ReleaseYear = core.FromPgInt4(year)
	g.Genre = core.FromPgText(genre)
	g.AgeRating = core.FromPgText(age)

	i := 0
	for _, t := range core.Tiers {
		for _, c := range core.Columns {
			g.Prices.Set(t, c, core.FromPgFloat8(prices[i]))
			i++
		}
	}
	return g, nil
}

// gameWhere builds the WHERE clause for filter.
func gameWhere(filter core.GameFilter) *WhereBuilder {
	wb := NewWhereBuilder()
	wb.Add("id", filter.ID)
	wb.AddFold("title", strings.TrimSpace(filter.Title))
	if filter.MatchConsole {
		wb.AddNullable("console_id", filter.ConsoleID)
	} else {
		wb.Add("console_id", filter.ConsoleID)
	}
	wb.Add("region_id", filter.RegionID)
	wb.Add("pricecharting_url", strings.TrimSpace(filter.PricechartingURL))
	wb.Add("pricecharting_id", strings.TrimSpace(filter.PricechartingID))
	wb.AddSearch(filter.Search, "title")
	return wb
}

// FindGames returns games matching filter ordered by id.
func (q *Queries) FindGames(ctx context.Context, filter core.GameFilter) ([]core.CatalogGame, error) {
	wb := gameWhere(filter)
	where, args := wb.Build()

	query := "SELECT " + gameColumns + " FROM games" + where + " ORDER BY id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", wb.NextArgIndex())
		args = append(args, filter.Limit)
	}

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	games := []core.CatalogGame{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// GetGame returns game id or a NotFoundError.
func (q *Queries) GetGame(ctx context.Context, id int64) (core.CatalogGame, error) {
	row := q.db.QueryRow(ctx, "SELECT "+gameColumns+" FROM games WHERE id = $1", id)
	g, err := scanGame(row)
	if err != nil {
		return core.CatalogGame{}, rowError(err, "game", id)
	}
	return g, nil
}

// InsertGame inserts game and returns its id.
func (q *Queries) InsertGame(ctx context.Context, game core.CatalogGame) (int64, error) {
	var id int64
	if err := q.db.QueryRow(ctx, insertGame, gameArgs(game)...).Scan(&id); err != nil {
		return 0, writeError(err)
	}
	return id, nil
}

// UpdateGame overwrites every column of game id.
func (q *Queries) UpdateGame(ctx context.Context, id int64, game core.CatalogGame) error {
	args := append(gameArgs(game), id)
	tag, err := q.db.Exec(ctx, updateGame, args...)
	if err != nil {
		return writeError(err)
	}
	return requireAffected(tag, "game", id)
}

// DeleteGame removes game id.
func (q *Queries) DeleteGame(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, "DELETE FROM games WHERE id = $1", id)
	if err != nil {
		return deleteError(err, "game", id)
	}
	return requireAffected(tag, "game", id)
}

package database

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/gamevault/internal/core"
)

// PostgreSQL SQLSTATE codes mapped onto core errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// writeError translates a failed INSERT or UPDATE. Unique violations become
// core.ErrConflict; everything else is returned as is.
func writeError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", core.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// deleteError translates a failed DELETE. Foreign key violations mean some
// other row still points at the one being removed.
func deleteError(err error, entity string, id int64) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return &core.ReferentialError{Entity: entity, ID: id, Dependents: pgErr.TableName}
	}
	return err
}

// rowError translates a single-row read.
func rowError(err error, entity string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(entity, id)
	}
	return err
}

func notFound(entity string, id int64) error {
	return &core.NotFoundError{Entity: entity, Key: strconv.FormatInt(id, 10)}
}

// requireAffected turns an UPDATE or DELETE that touched nothing into a
// NotFoundError.
func requireAffected(tag pgconn.CommandTag, entity string, id int64) error {
	if tag.RowsAffected() == 0 {
		return notFound(entity, id)
	}
	return nil
}

package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrReferential is matched by every ReferentialError.
	ErrReferential = errors.New("referential constraint")

	// ErrConflict is returned by stores when a unique constraint rejects a write.
	ErrConflict = errors.New("unique constraint violated")

	// ErrMalformedImport is returned when import input is not tabular text at all.
	ErrMalformedImport = errors.New("malformed import: input is not tab-separated text")
)

// NotFoundError reports a missing entity, rate or price row.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ReferentialError reports a delete blocked by rows that still reference the entity.
type ReferentialError struct {
	Entity     string
	ID         int64
	Dependents string
}

func (e *ReferentialError) Error() string {
	if e.Dependents == "" {
		return fmt.Sprintf("%s %d is still referenced", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s %d is still referenced by %s", e.Entity, e.ID, e.Dependents)
}

func (e *ReferentialError) Is(target error) bool { return target == ErrReferential }

// InvalidRateError is returned when a non-positive rate is recorded.
type InvalidRateError struct {
	Currency string
	Rate     float64
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("invalid rate for %s: %v (must be positive)", e.Currency, e.Rate)
}

// DuplicateError wraps a positive duplicate check for single-entity operations.
type DuplicateError struct {
	Result DuplicateResult
}

func (e *DuplicateError) Error() string {
	return e.Result.Message
}

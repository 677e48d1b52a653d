// Package core provides the valuation and ingestion logic for a game collection.
//
// This package holds all domain decisions, independent of any transport or
// storage. Web handlers, the CLI and tests all go through [Service], backed
// by any [Store] implementation.
//
// # Architecture
//
// The package is organized around a few small components:
//
//   - Conditions: box, manual and disc ratings as an immutable value;
//     [Classify] derives CIB and New from them.
//   - Price resolution: [Resolve] picks one displayed price per copy from
//     override, New, CIB and Loose tiers, in that order.
//   - Exchange rates: [Ledger] appends observations and serves the one with
//     the greatest timestamp.
//   - Duplicates: [DuplicateDetector] enforces console-scoped titles and
//     catalog-wide PriceCharting URLs.
//   - Import: [Importer] turns pasted tab-separated text into catalog games,
//     one row at a time.
//
// # Import
//
// Imports are positional: cell meaning comes from schema.GameColumns, not
// from the header text. The flow is:
//
//  1. Input is wrapped with BOM skipping, UTF-8 sanitization and a size limit
//  2. Lines are split on tabs; blank lines are skipped
//  3. Each row is coerced, validated and checked for duplicates
//  4. Valid rows are inserted immediately; invalid rows are reported
//
// There is no batch transaction. A failing row never undoes earlier rows,
// and [Service.Import] runs under an [ImportLimiter] and a timeout.
//
// # Price Columns
//
// Every tier carries three columns: USD (market), NOK (derived from USD at
// the latest rate, see [Service.ConvertPrices]) and NOK2 (a pinned local
// valuation that nothing in this package overwrites).
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB007: Database errors (duplicates, constraints, connections)
//   - VAL001-VAL005: Validation errors (dates, numbers, conditions)
//   - DUP001-DUP002: Duplicate titles and URLs
//   - NF001, REF001: Missing and still-referenced records
//   - RATE001-RATE002: Exchange rate and request rate errors
//   - IMP001-IMP005: Import errors (size, format, busy, cancelled, timeout)
package core

// Package store is the typed persistent store shared by the vault, the
// token manager and the user registry.
//
// Config entries are checked against the static key schema
// (models.CheckValid) before every write and after every read; a stored row
// that fails the check is reported as common.ErrCorrupt and never coerced.
//
// Two SQL backends are supported: SQLite through modernc.org/sqlite and
// PostgreSQL through pgx's database/sql driver. The schema is applied with
// goose from the embedded migrations on Open. Every mutation touching more
// than one row runs inside a single transaction.
package store

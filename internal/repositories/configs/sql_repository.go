package configs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Individual-1/notifier/internal/dbx"
	"github.com/Individual-1/notifier/internal/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Get(ctx context.Context, key string) (*models.ConfigEntry, error) {
	var (
		isEnc, isArray bool
		value          []byte
	)
	err := r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT is_enc, is_array, value FROM config WHERE key = ?`), key,
	).Scan(&isEnc, &isArray, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config[%s]: %w", key, err)
	}
	return fromRow(key, isEnc, isArray, value), nil
}

func (r *SQLRepository) Put(ctx context.Context, entry *models.ConfigEntry) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO config (key, is_enc, is_array, value) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			is_enc = excluded.is_enc,
			is_array = excluded.is_array,
			value = excluded.value
	`), entry.Key, entry.IsEnc, entry.IsArray, entry.Value())
	if err != nil {
		return fmt.Errorf("failed to put config[%s]: %w", entry.Key, err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM config WHERE key = ?`), key)
	if err != nil {
		return fmt.Errorf("failed to delete config[%s]: %w", key, err)
	}
	return nil
}

// DeleteKeys removes every listed key. Absent keys are ignored.
func (r *SQLRepository) DeleteKeys(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if err := r.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLRepository) List(ctx context.Context) ([]*models.ConfigEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, is_enc, is_array, value FROM config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list config: %w", err)
	}
	defer rows.Close()

	var result []*models.ConfigEntry
	for rows.Next() {
		var (
			key            string
			isEnc, isArray bool
			value          []byte
		)
		if err := rows.Scan(&key, &isEnc, &isArray, &value); err != nil {
			return nil, fmt.Errorf("failed to scan config row: %w", err)
		}
		result = append(result, fromRow(key, isEnc, isArray, value))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate config rows: %w", err)
	}

	return result, nil
}

func (r *SQLRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM config`)
	if err != nil {
		return fmt.Errorf("failed to clear config: %w", err)
	}
	return nil
}

func fromRow(key string, isEnc, isArray bool, value []byte) *models.ConfigEntry {
	e := &models.ConfigEntry{Key: key, IsEnc: isEnc, IsArray: isArray}
	if isArray {
		e.Bytes = value
	} else {
		e.Text = string(value)
	}
	return e
}

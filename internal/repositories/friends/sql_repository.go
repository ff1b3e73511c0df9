package friends

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

// Get returns (nil, nil) when the friends feed is disabled.
func (r *SQLRepository) Get(ctx context.Context) (*models.Friends, error) {
	f := &models.Friends{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`
		SELECT key, last_submission, last_comment FROM friends WHERE key = ?
	`), models.FriendsKey).Scan(&f.Key, &f.LastSubmission, &f.LastComment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}
	return f, nil
}

// Put upserts the singleton row; f.Key is forced to models.FriendsKey.
func (r *SQLRepository) Put(ctx context.Context, f *models.Friends) error {
	f.Key = models.FriendsKey
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO friends (key, last_submission, last_comment) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			last_submission = excluded.last_submission,
			last_comment = excluded.last_comment
	`), f.Key, f.LastSubmission, f.LastComment)
	if err != nil {
		return fmt.Errorf("failed to put friends: %w", err)
	}
	return nil
}

// UpdateCursors writes the cursors of an existing row. It reports false,
// and writes nothing, when the feed has been disabled.
func (r *SQLRepository) UpdateCursors(ctx context.Context, f *models.Friends) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		UPDATE friends SET last_submission = ?, last_comment = ? WHERE key = ?
	`), f.LastSubmission, f.LastComment, models.FriendsKey)
	if err != nil {
		return false, fmt.Errorf("failed to update friends: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update friends: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) Delete(ctx context.Context) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM friends WHERE key = ?`), models.FriendsKey)
	if err != nil {
		return false, fmt.Errorf("failed to delete friends: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete friends: %w", err)
	}
	return n > 0, nil
}

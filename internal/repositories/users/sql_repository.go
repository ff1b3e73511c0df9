package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Individual-1/notifier/internal/common"
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

// Get returns (nil, nil) when the user is not tracked.
func (r *SQLRepository) Get(ctx context.Context, userName string) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`
		SELECT user_name, full_name, last_post, submitted, comments
		FROM users WHERE user_name = ?
	`), userName).Scan(&u.UserName, &u.FullName, &u.LastPost, &u.Submitted, &u.Comments)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user[%s]: %w", userName, err)
	}
	return u, nil
}

// Insert adds a new row. A clash on user name or full name yields
// common.ErrAlreadyExists.
func (r *SQLRepository) Insert(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO users (user_name, full_name, last_post, submitted, comments)
		VALUES (?, ?, ?, ?, ?)
	`), user.UserName, user.FullName, user.LastPost, user.Submitted, user.Comments)
	if dbx.IsUniqueViolation(err) {
		return fmt.Errorf("user[%s]: %w", user.UserName, common.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert user[%s]: %w", user.UserName, err)
	}
	return nil
}

// Update rewrites the mutable columns. full_name is never touched.
func (r *SQLRepository) Update(ctx context.Context, user *models.User) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		UPDATE users SET last_post = ?, submitted = ?, comments = ?
		WHERE user_name = ?
	`), user.LastPost, user.Submitted, user.Comments, user.UserName)
	if err != nil {
		return fmt.Errorf("failed to update user[%s]: %w", user.UserName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user[%s]: %w", user.UserName, err)
	}
	if n == 0 {
		return fmt.Errorf("user[%s]: %w", user.UserName, common.ErrNotFound)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, userName string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM users WHERE user_name = ?`), userName)
	if err != nil {
		return false, fmt.Errorf("failed to delete user[%s]: %w", userName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete user[%s]: %w", userName, err)
	}
	return n > 0, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_name, full_name, last_post, submitted, comments
		FROM users ORDER BY user_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	result := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.UserName, &u.FullName, &u.LastPost, &u.Submitted, &u.Comments); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		result = append(result, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	return result, nil
}

func (r *SQLRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users`)
	if err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	return nil
}

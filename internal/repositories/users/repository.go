// Package users persists tracked accounts.
package users

import (
	"context"

	"github.com/Individual-1/notifier/internal/models"
)

type Repository interface {
	Get(ctx context.Context, userName string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userName string) (bool, error)
	List(ctx context.Context) ([]models.User, error)
	Clear(ctx context.Context) error
}

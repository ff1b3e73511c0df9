// Package configs persists typed config entries.
package configs

import (
	"context"

	"github.com/Individual-1/notifier/internal/models"
)

// Repository is raw CRUD over the config table. It does not check entries
// against the key schema; the store does that.
type Repository interface {
	Get(ctx context.Context, key string) (*models.ConfigEntry, error)
	Put(ctx context.Context, entry *models.ConfigEntry) error
	Delete(ctx context.Context, key string) error
	DeleteKeys(ctx context.Context, keys []string) error
	List(ctx context.Context) ([]*models.ConfigEntry, error)
	Clear(ctx context.Context) error
}

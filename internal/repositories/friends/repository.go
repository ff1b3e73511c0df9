// Package friends persists the cursors of the aggregate friends feed.
package friends

import (
	"context"

	"github.com/Individual-1/notifier/internal/models"
)

type Repository interface {
	Get(ctx context.Context) (*models.Friends, error)
	Put(ctx context.Context, f *models.Friends) error
	UpdateCursors(ctx context.Context, f *models.Friends) (bool, error)
	Delete(ctx context.Context) (bool, error)
}

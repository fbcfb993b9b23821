package repositories

import (
	"context"

	"dailyscrum/internal/models"
)

// DailyScrumPostRepository defines the interface for daily scrum post data access.
// Reviews are stored inside their parent post and written with it.
type DailyScrumPostRepository interface {
	Create(ctx context.Context, post *models.DailyScrumPost) error
	GetByID(ctx context.Context, id string) (*models.DailyScrumPost, error)
	// List returns posts newest first, optionally restricted to titles containing filter.
	List(ctx context.Context, filter string) ([]models.DailyScrumPost, error)
	ListByUser(ctx context.Context, userID string) ([]models.DailyScrumPost, error)
	// Update replaces the stored post if its version still equals expectedVersion.
	// On success post.Version is incremented.
	Update(ctx context.Context, post *models.DailyScrumPost, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}

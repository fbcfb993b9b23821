package repositories

import (
	"context"

	"dailyscrum/internal/models"
)

// TitleRepository defines the interface for title data access.
type TitleRepository interface {
	Create(ctx context.Context, title *models.Title) error
	GetByID(ctx context.Context, id string) (*models.Title, error)
	// List returns every title, or only those whose name contains filter (case-insensitive).
	List(ctx context.Context, filter string) ([]models.Title, error)
	// ListForUser returns the titles userID owns or is a member of.
	ListForUser(ctx context.Context, userID string) ([]models.Title, error)
	// Update replaces the stored title if its version still equals expectedVersion.
	// On success title.Version is incremented.
	Update(ctx context.Context, title *models.Title, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}

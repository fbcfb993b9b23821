package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dailyscrum/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMDailyScrumPostRepository is a GORM implementation of DailyScrumPostRepository.
type GORMDailyScrumPostRepository struct {
	db *gorm.DB
}

// NewGORMDailyScrumPostRepository creates a new instance of GORMDailyScrumPostRepository.
func NewGORMDailyScrumPostRepository(db *gorm.DB) *GORMDailyScrumPostRepository {
	return &GORMDailyScrumPostRepository{
		db: db,
	}
}

// Create creates a new post in the database.
func (r *GORMDailyScrumPostRepository) Create(ctx context.Context, post *models.DailyScrumPost) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	post.Version = 1
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("failed to create daily scrum post: %w", err)
	}
	return nil
}

// GetByID retrieves a single post by its ID from the database.
func (r *GORMDailyScrumPostRepository) GetByID(ctx context.Context, id string) (*models.DailyScrumPost, error) {
	var post models.DailyScrumPost
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("daily scrum post with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get daily scrum post by ID %s: %w", id, err)
	}
	return &post, nil
}

// List retrieves posts newest first, filtered by title substring when filter is set.
func (r *GORMDailyScrumPostRepository) List(ctx context.Context, filter string) ([]models.DailyScrumPost, error) {
	query := r.db.WithContext(ctx).Order("created_at desc")
	if filter != "" {
		query = query.Where("LOWER(title) LIKE ? ESCAPE '\\'", likePattern(strings.ToLower(filter)))
	}
	posts := []models.DailyScrumPost{}
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list daily scrum posts: %w", err)
	}
	return posts, nil
}

// ListByUser retrieves the posts written by userID, newest first.
func (r *GORMDailyScrumPostRepository) ListByUser(ctx context.Context, userID string) ([]models.DailyScrumPost, error) {
	posts := []models.DailyScrumPost{}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list daily scrum posts for user %s: %w", userID, err)
	}
	return posts, nil
}

// Update writes every field of post, guarded by the version the caller read.
func (r *GORMDailyScrumPostRepository) Update(ctx context.Context, post *models.DailyScrumPost, expectedVersion int) error {
	post.Version = expectedVersion + 1
	res := r.db.WithContext(ctx).Model(post).Where("version = ?", expectedVersion).Select("*").Updates(post)
	if res.Error != nil {
		post.Version = expectedVersion
		return fmt.Errorf("failed to update daily scrum post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		post.Version = expectedVersion
		// Zero rows means either a missing row or a stale version.
		if _, err := r.GetByID(ctx, post.ID); err != nil {
			return err
		}
		return fmt.Errorf("daily scrum post %s changed since version %d: %w", post.ID, expectedVersion, ErrVersionConflict)
	}
	return nil
}

// Delete deletes a post by its ID from the database.
func (r *GORMDailyScrumPostRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.DailyScrumPost{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete daily scrum post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("daily scrum post with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

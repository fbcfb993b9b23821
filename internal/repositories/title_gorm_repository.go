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

// GORMTitleRepository is a GORM implementation of TitleRepository.
type GORMTitleRepository struct {
	db *gorm.DB
}

// NewGORMTitleRepository creates a new instance of GORMTitleRepository.
func NewGORMTitleRepository(db *gorm.DB) *GORMTitleRepository {
	return &GORMTitleRepository{
		db: db,
	}
}

// Create creates a new title in the database.
func (r *GORMTitleRepository) Create(ctx context.Context, title *models.Title) error {
	if title.ID == "" {
		title.ID = uuid.New().String()
	}
	title.Version = 1
	if err := r.db.WithContext(ctx).Create(title).Error; err != nil {
		return fmt.Errorf("failed to create title: %w", err)
	}
	return nil
}

// GetByID retrieves a single title by its ID from the database.
func (r *GORMTitleRepository) GetByID(ctx context.Context, id string) (*models.Title, error) {
	var title models.Title
	if err := r.db.WithContext(ctx).First(&title, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("title with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get title by ID %s: %w", id, err)
	}
	return &title, nil
}

// List retrieves all titles, filtered by name substring when filter is set.
func (r *GORMTitleRepository) List(ctx context.Context, filter string) ([]models.Title, error) {
	query := r.db.WithContext(ctx).Order("created_at asc")
	if filter != "" {
		query = query.Where("LOWER(title) LIKE ? ESCAPE '\\'", likePattern(strings.ToLower(filter)))
	}
	titles := []models.Title{}
	if err := query.Find(&titles).Error; err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	return titles, nil
}

// ListForUser retrieves the titles owned by userID or listing userID as a member.
// Members are stored as a JSON array, so the query narrows on the quoted ID and
// the roster is checked exactly afterwards.
func (r *GORMTitleRepository) ListForUser(ctx context.Context, userID string) ([]models.Title, error) {
	candidates := []models.Title{}
	err := r.db.WithContext(ctx).
		Where("user_id = ? OR members LIKE ? ESCAPE '\\'", userID, likePattern(`"`+userID+`"`)).
		Order("created_at asc").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list titles for user %s: %w", userID, err)
	}
	titles := candidates[:0]
	for _, t := range candidates {
		if t.UserID == userID || t.HasMember(userID) {
			titles = append(titles, t)
		}
	}
	return titles, nil
}

// Update writes every field of title, guarded by the version the caller read.
func (r *GORMTitleRepository) Update(ctx context.Context, title *models.Title, expectedVersion int) error {
	title.Version = expectedVersion + 1
	res := r.db.WithContext(ctx).Model(title).Where("version = ?", expectedVersion).Select("*").Updates(title)
	if res.Error != nil {
		title.Version = expectedVersion
		return fmt.Errorf("failed to update title: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		title.Version = expectedVersion
		if _, err := r.GetByID(ctx, title.ID); err != nil {
			return err
		}
		return fmt.Errorf("title %s changed since version %d: %w", title.ID, expectedVersion, ErrVersionConflict)
	}
	return nil
}

// Delete deletes a title by its ID from the database.
func (r *GORMTitleRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Title{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete title: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("title with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

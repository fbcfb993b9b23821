package repositories

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"dailyscrum/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTitleRepository is a MongoDB implementation of TitleRepository.
type MongoTitleRepository struct {
	coll *mongo.Collection
}

// NewMongoTitleRepository creates a new instance of MongoTitleRepository.
func NewMongoTitleRepository(db *mongo.Database) *MongoTitleRepository {
	return &MongoTitleRepository{coll: db.Collection(TitlesCollection)}
}

// Create inserts a new title document.
func (r *MongoTitleRepository) Create(ctx context.Context, title *models.Title) error {
	if title.ID == "" {
		title.ID = uuid.New().String()
	}
	now := time.Now()
	if title.CreatedAt.IsZero() {
		title.CreatedAt = now
	}
	title.UpdatedAt = now
	title.Version = 1
	if _, err := r.coll.InsertOne(ctx, title); err != nil {
		return fmt.Errorf("failed to create title: %w", err)
	}
	return nil
}

// GetByID retrieves a single title by its ID.
func (r *MongoTitleRepository) GetByID(ctx context.Context, id string) (*models.Title, error) {
	var title models.Title
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&title); err != nil {
		if mongoNotFound(err) {
			return nil, fmt.Errorf("title with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get title by ID %s: %w", id, err)
	}
	return &title, nil
}

// List retrieves all titles, filtered by name substring when filter is set.
func (r *MongoTitleRepository) List(ctx context.Context, filter string) ([]models.Title, error) {
	query := bson.M{}
	if filter != "" {
		query["title"] = bson.M{"$regex": regexp.QuoteMeta(filter), "$options": "i"}
	}
	return r.find(ctx, query)
}

// ListForUser retrieves the titles owned by userID or listing userID as a member.
func (r *MongoTitleRepository) ListForUser(ctx context.Context, userID string) ([]models.Title, error) {
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"user_id": userID},
		bson.M{"member": userID},
	}})
}

// Update replaces the title document, guarded by the version the caller read.
func (r *MongoTitleRepository) Update(ctx context.Context, title *models.Title, expectedVersion int) error {
	title.Version = expectedVersion + 1
	title.UpdatedAt = time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": title.ID, "version": expectedVersion}, title)
	if err != nil {
		title.Version = expectedVersion
		return fmt.Errorf("failed to update title: %w", err)
	}
	if res.MatchedCount == 0 {
		title.Version = expectedVersion
		if _, err := r.GetByID(ctx, title.ID); err != nil {
			return err
		}
		return fmt.Errorf("title %s changed since version %d: %w", title.ID, expectedVersion, ErrVersionConflict)
	}
	return nil
}

// Delete removes a title by its ID.
func (r *MongoTitleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete title: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("title with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *MongoTitleRepository) find(ctx context.Context, query bson.M) ([]models.Title, error) {
	cur, err := r.coll.Find(ctx, query, oldestFirst)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	titles := []models.Title{}
	if err := cur.All(ctx, &titles); err != nil {
		return nil, fmt.Errorf("failed to decode titles: %w", err)
	}
	return titles, nil
}

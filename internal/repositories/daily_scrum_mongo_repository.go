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

// MongoDailyScrumPostRepository is a MongoDB implementation of DailyScrumPostRepository.
// Reviews live in the post document's reviews array.
type MongoDailyScrumPostRepository struct {
	coll *mongo.Collection
}

// NewMongoDailyScrumPostRepository creates a new instance of MongoDailyScrumPostRepository.
func NewMongoDailyScrumPostRepository(db *mongo.Database) *MongoDailyScrumPostRepository {
	return &MongoDailyScrumPostRepository{coll: db.Collection(DailyScrumPostsCollection)}
}

// Create inserts a new post document.
func (r *MongoDailyScrumPostRepository) Create(ctx context.Context, post *models.DailyScrumPost) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	now := time.Now()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	post.Version = 1
	if _, err := r.coll.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("failed to create daily scrum post: %w", err)
	}
	return nil
}

// GetByID retrieves a single post by its ID.
func (r *MongoDailyScrumPostRepository) GetByID(ctx context.Context, id string) (*models.DailyScrumPost, error) {
	var post models.DailyScrumPost
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if mongoNotFound(err) {
			return nil, fmt.Errorf("daily scrum post with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get daily scrum post by ID %s: %w", id, err)
	}
	return &post, nil
}

// List retrieves posts newest first, filtered by title substring when filter is set.
func (r *MongoDailyScrumPostRepository) List(ctx context.Context, filter string) ([]models.DailyScrumPost, error) {
	query := bson.M{}
	if filter != "" {
		query["title"] = bson.M{"$regex": regexp.QuoteMeta(filter), "$options": "i"}
	}
	return r.find(ctx, query)
}

// ListByUser retrieves the posts written by userID, newest first.
func (r *MongoDailyScrumPostRepository) ListByUser(ctx context.Context, userID string) ([]models.DailyScrumPost, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

// Update replaces the post document, guarded by the version the caller read.
func (r *MongoDailyScrumPostRepository) Update(ctx context.Context, post *models.DailyScrumPost, expectedVersion int) error {
	post.Version = expectedVersion + 1
	post.UpdatedAt = time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": post.ID, "version": expectedVersion}, post)
	if err != nil {
		post.Version = expectedVersion
		return fmt.Errorf("failed to update daily scrum post: %w", err)
	}
	if res.MatchedCount == 0 {
		post.Version = expectedVersion
		if _, err := r.GetByID(ctx, post.ID); err != nil {
			return err
		}
		return fmt.Errorf("daily scrum post %s changed since version %d: %w", post.ID, expectedVersion, ErrVersionConflict)
	}
	return nil
}

// Delete removes a post by its ID.
func (r *MongoDailyScrumPostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete daily scrum post: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("daily scrum post with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *MongoDailyScrumPostRepository) find(ctx context.Context, query bson.M) ([]models.DailyScrumPost, error) {
	cur, err := r.coll.Find(ctx, query, newestFirst)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily scrum posts: %w", err)
	}
	posts := []models.DailyScrumPost{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode daily scrum posts: %w", err)
	}
	return posts, nil
}

package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the Mongo repositories.
const (
	UsersCollection           = "users"
	TitlesCollection          = "titles"
	DailyScrumPostsCollection = "daily_scrum_posts"
)

// EnsureMongoIndexes creates the unique and lookup indexes the Mongo repositories rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		TitlesCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "member", Value: 1}}},
		},
		DailyScrumPostsCollection: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func mongoNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
var oldestFirst = options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

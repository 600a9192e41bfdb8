package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/movie-recommender/internal/models"
)

// HistoryCollection holds served recommendations.
const HistoryCollection = "recommendation_history"

// MongoStore records recommendation history in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(HistoryCollection)}
}

// EnsureIndexes creates the (user_id, created_at) index used by ListByUser.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo index: %w", err)
	}
	return nil
}

func (s *MongoStore) Insert(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := s.col.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	return nil
}

// ListByUser returns the newest entries first, at most limit of them.
func (s *MongoStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.HistoryEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	var entries []models.HistoryEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	return entries, nil
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Movie is one catalog row.
type Movie struct {
	MovieID int64  `json:"movie_id"`
	Title   string `json:"title"`
}

// Recommendation is a single ranked result.
type Recommendation struct {
	MovieID   int64   `json:"movie_id"   bson:"movie_id"`
	Title     string  `json:"title"      bson:"title"`
	PosterURL string  `json:"poster_url" bson:"poster_url"`
	Score     float64 `json:"score"      bson:"score"`
}

// RecommendationResponse keeps the names/posters pair the picker renders
// side by side, plus the structured items.
type RecommendationResponse struct {
	Query   string           `json:"query"`
	Names   []string         `json:"names"`
	Posters []string         `json:"posters"`
	Items   []Recommendation `json:"items"`
}

// HistoryEntry is one served recommendation stored in MongoDB.
type HistoryEntry struct {
	ID        primitive.ObjectID `json:"id"         bson:"_id,omitempty"`
	UserID    int64              `json:"user_id"    bson:"user_id"`
	Query     string             `json:"query"      bson:"query"`
	Results   []Recommendation   `json:"results"    bson:"results"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

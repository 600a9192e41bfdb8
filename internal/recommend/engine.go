package recommend

import (
	"context"
	"errors"
	"sort"

	"github.com/ayush/movie-recommender/internal/metrics"
	"github.com/ayush/movie-recommender/internal/models"
)

// TopK is the number of recommendations returned per title.
const TopK = 5

// ErrMovieNotFound is returned for a title that is not in the catalog.
var ErrMovieNotFound = errors.New("movie not found")

// PosterFetcher resolves a movie's poster URL. It must not fail: errors
// are converted to a placeholder by the implementation.
type PosterFetcher interface {
	PosterURL(ctx context.Context, movieID int64) string
}

// Engine ranks catalog movies by precomputed similarity.
type Engine struct {
	catalog *Catalog
	posters PosterFetcher
}

func NewEngine(catalog *Catalog, posters PosterFetcher) *Engine {
	return &Engine{catalog: catalog, posters: posters}
}

// Titles lists the catalog titles for the picker.
func (e *Engine) Titles() []string {
	return e.catalog.Titles()
}

type scored struct {
	index int
	score float64
}

// rank returns the movies similar to row i, best first. Equal scores keep
// catalog order. The first entry, normally the movie itself, is dropped.
func (e *Engine) rank(i int) []scored {
	row := e.catalog.similarity[i]
	pairs := make([]scored, len(row))
	for j, s := range row {
		pairs[j] = scored{index: j, score: s}
	}
	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].score > pairs[b].score })

	pairs = pairs[1:]
	if len(pairs) > TopK {
		pairs = pairs[:TopK]
	}
	return pairs
}

// Recommend returns the TopK movies most similar to title with their
// posters. Posters are fetched one at a time, in rank order.
func (e *Engine) Recommend(ctx context.Context, title string) (*models.RecommendationResponse, error) {
	i, ok := e.catalog.index(title)
	if !ok {
		metrics.Recommendations.WithLabelValues("not_found").Inc()
		return nil, ErrMovieNotFound
	}

	ranked := e.rank(i)
	resp := &models.RecommendationResponse{
		Query:   title,
		Names:   make([]string, 0, len(ranked)),
		Posters: make([]string, 0, len(ranked)),
		Items:   make([]models.Recommendation, 0, len(ranked)),
	}
	for _, p := range ranked {
		m := e.catalog.movies[p.index]
		poster := e.posters.PosterURL(ctx, m.MovieID)
		resp.Names = append(resp.Names, m.Title)
		resp.Posters = append(resp.Posters, poster)
		resp.Items = append(resp.Items, models.Recommendation{
			MovieID:   m.MovieID,
			Title:     m.Title,
			PosterURL: poster,
			Score:     p.score,
		})
	}
	metrics.Recommendations.WithLabelValues("ok").Inc()
	return resp, nil
}

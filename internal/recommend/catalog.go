package recommend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ayush/movie-recommender/internal/models"
)

// Catalog is the movie list and its title-by-title similarity matrix.
// Row i of the matrix belongs to movie i. It is immutable after loading.
type Catalog struct {
	movies     []models.Movie
	similarity [][]float64
}

// NewCatalog checks that similarity is square and matches movies.
func NewCatalog(movies []models.Movie, similarity [][]float64) (*Catalog, error) {
	if len(movies) == 0 {
		return nil, errors.New("catalog is empty")
	}
	if len(similarity) != len(movies) {
		return nil, fmt.Errorf("similarity has %d rows, catalog has %d movies", len(similarity), len(movies))
	}
	for i, row := range similarity {
		if len(row) != len(movies) {
			return nil, fmt.Errorf("similarity row %d has %d columns, want %d", i, len(row), len(movies))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("similarity[%d][%d] is not finite", i, j)
			}
		}
	}
	return &Catalog{movies: movies, similarity: similarity}, nil
}

// Len is the number of movies.
func (c *Catalog) Len() int { return len(c.movies) }

// Titles returns the titles in catalog order.
func (c *Catalog) Titles() []string {
	out := make([]string, len(c.movies))
	for i, m := range c.movies {
		out[i] = m.Title
	}
	return out
}

// index returns the position of the first movie titled title.
func (c *Catalog) index(title string) (int, bool) {
	for i, m := range c.movies {
		if m.Title == title {
			return i, true
		}
	}
	return 0, false
}

// Source opens named artifacts.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// FileSource reads artifacts from a local directory.
type FileSource struct {
	Dir string
}

func (s FileSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

// Load reads the movie list and the similarity matrix from src. The format
// of each file follows its extension: .csv or .json.
func Load(ctx context.Context, src Source, moviesName, similarityName string) (*Catalog, error) {
	movies, err := readArtifact(ctx, src, moviesName, decodeMovies)
	if err != nil {
		return nil, err
	}
	sim, err := readArtifact(ctx, src, similarityName, decodeSimilarity)
	if err != nil {
		return nil, err
	}
	return NewCatalog(movies, sim)
}

func readArtifact[T any](ctx context.Context, src Source, name string, decode func(io.Reader, string) (T, error)) (T, error) {
	var zero T
	rc, err := src.Open(ctx, name)
	if err != nil {
		return zero, err
	}
	defer rc.Close()

	v, err := decode(rc, formatOf(name))
	if err != nil {
		return zero, fmt.Errorf("decode %s: %w", name, err)
	}
	return v, nil
}

func formatOf(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

func decodeMovies(r io.Reader, format string) ([]models.Movie, error) {
	switch format {
	case "json":
		var movies []models.Movie
		if err := json.NewDecoder(r).Decode(&movies); err != nil {
			return nil, err
		}
		return movies, nil
	case "csv":
		return decodeMoviesCSV(r)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
}

// decodeMoviesCSV reads a headed CSV with movie_id and title columns; other
// columns are ignored.
func decodeMoviesCSV(r io.Reader) ([]models.Movie, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idCol, titleCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case "movie_id":
			idCol = i
		case "title":
			titleCol = i
		}
	}
	if idCol < 0 || titleCol < 0 {
		return nil, errors.New("header must contain movie_id and title")
	}

	var movies []models.Movie
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if idCol >= len(rec) || titleCol >= len(rec) {
			return nil, fmt.Errorf("line %d: too few columns", line)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rec[idCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: movie_id: %w", line, err)
		}
		movies = append(movies, models.Movie{MovieID: id, Title: rec[titleCol]})
	}
	return movies, nil
}

func decodeSimilarity(r io.Reader, format string) ([][]float64, error) {
	switch format {
	case "json":
		var m [][]float64
		if err := json.NewDecoder(r).Decode(&m); err != nil {
			return nil, err
		}
		return m, nil
	case "csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.ReuseRecord = true
		var m [][]float64
		for {
			rec, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return m, nil
			}
			if err != nil {
				return nil, err
			}
			row := make([]float64, len(rec))
			for j, s := range rec {
				v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
				if err != nil {
					return nil, fmt.Errorf("row %d col %d: %w", len(m), j, err)
				}
				row[j] = v
			}
			m = append(m, row)
		}
	default:
		return nil, fmt.Errorf("unsupported similarity format %q", format)
	}
}

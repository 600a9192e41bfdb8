package recommend

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayush/movie-recommender/internal/models"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "movies.csv", "\ufeffmovie_id,title,tags\n19995,Avatar,\"sci-fi, epic\"\n285,\"Pirates of the Caribbean: At World's End\",adventure\n")
	writeFile(t, dir, "similarity.csv", "1.0,0.2\n0.2,1.0\n")

	c, err := Load(context.Background(), FileSource{Dir: dir}, "movies.csv", "similarity.csv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	titles := c.Titles()
	if titles[0] != "Avatar" || titles[1] != "Pirates of the Caribbean: At World's End" {
		t.Errorf("Titles = %q", titles)
	}
	if c.movies[1].MovieID != 285 {
		t.Errorf("movie_id = %d, want 285", c.movies[1].MovieID)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "movies.json", `[{"movie_id":1,"title":"A"},{"movie_id":2,"title":"B"}]`)
	writeFile(t, dir, "similarity.JSON", `[[1,0.5],[0.5,1]]`)

	c, err := Load(context.Background(), FileSource{Dir: dir}, "movies.json", "similarity.JSON")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.similarity[0][1] != 0.5 {
		t.Errorf("similarity[0][1] = %v", c.similarity[0][1])
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		movies  string
		sim     string
		wantErr string
	}{
		{"missing title column", "movie_id,name\n1,A\n", "1\n", "header must contain"},
		{"bad movie id", "movie_id,title\nx,A\n", "1\n", "line 2: movie_id"},
		{"bad score", "movie_id,title\n1,A\n", "abc\n", "row 0 col 0"},
		{"rows mismatch", "movie_id,title\n1,A\n2,B\n", "1,0\n", "has 1 rows"},
		{"ragged row", "movie_id,title\n1,A\n2,B\n", "1,0\n0\n", "row 1 has 1 columns"},
		{"empty catalog", "movie_id,title\n", "", "catalog is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "movies.csv", tt.movies)
			writeFile(t, dir, "sim.csv", tt.sim)

			_, err := Load(context.Background(), FileSource{Dir: dir}, "movies.csv", "sim.csv")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "movies.pkl", "binary")
	_, err := Load(context.Background(), FileSource{Dir: dir}, "movies.pkl", "sim.csv")
	if err == nil || !strings.Contains(err.Error(), `unsupported catalog format "pkl"`) {
		t.Errorf("err = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), FileSource{Dir: t.TempDir()}, "movies.csv", "sim.csv")
	if err == nil || !strings.Contains(err.Error(), "open artifact") {
		t.Errorf("err = %v", err)
	}
}

type memSource map[string]string

func (m memSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	body, ok := m[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestLoadFromSource(t *testing.T) {
	src := memSource{
		"m.json": `[{"movie_id":7,"title":"Up"}]`,
		"s.json": `[[1]]`,
	}
	c, err := Load(context.Background(), src, "m.json", "s.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestNewCatalogRejectsNonFinite(t *testing.T) {
	movies := []models.Movie{{MovieID: 1, Title: "A"}, {MovieID: 2, Title: "B"}}
	for _, bad := range []float64{math.NaN(), math.Inf(1)} {
		_, err := NewCatalog(movies, [][]float64{{1, bad}, {0, 1}})
		if err == nil || !strings.Contains(err.Error(), "not finite") {
			t.Errorf("NewCatalog(%v) err = %v", bad, err)
		}
	}
}

func TestIndexFirstMatch(t *testing.T) {
	c, err := NewCatalog(
		[]models.Movie{{MovieID: 1, Title: "Dup"}, {MovieID: 2, Title: "Dup"}},
		[][]float64{{1, 0}, {0, 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if i, ok := c.index("Dup"); !ok || i != 0 {
		t.Errorf("index = %d, %v, want 0, true", i, ok)
	}
	if _, ok := c.index("dup"); ok {
		t.Error("index matched a title with different case")
	}
}

package poster

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTMDB(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestPosterURLComposesImage(t *testing.T) {
	var gotPath, gotKey, gotLang string
	srv := newTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("api_key")
		gotLang = r.URL.Query().Get("language")
		w.Write([]byte(`{"id":19995,"poster_path":"/kyeqWdyUXW608qlYkRqosgbbJyK.jpg"}`))
	})

	c := NewClient(srv.URL+"/", "secret", time.Second)
	got := c.PosterURL(context.Background(), 19995)

	if want := "https://image.tmdb.org/t/p/w500/kyeqWdyUXW608qlYkRqosgbbJyK.jpg"; got != want {
		t.Errorf("PosterURL = %q, want %q", got, want)
	}
	if gotPath != "/3/movie/19995" || gotKey != "secret" || gotLang != "en-US" {
		t.Errorf("request path=%q api_key=%q language=%q", gotPath, gotKey, gotLang)
	}
}

func TestPosterURLNoImage(t *testing.T) {
	for _, body := range []string{`{"id":1}`, `{"poster_path":null}`, `{"poster_path":""}`} {
		srv := newTMDB(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		c := NewClient(srv.URL, "k", time.Second)
		if got := c.PosterURL(context.Background(), 1); got != NoImageURL {
			t.Errorf("body %s: PosterURL = %q, want NoImageURL", body, got)
		}
	}
}

func TestPosterURLFailuresDegrade(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantOp  string
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"status_message":"boom"}`, http.StatusInternalServerError)
		}, "status"},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"status_code":34}`, http.StatusNotFound)
		}, "status"},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"poster_path":`))
		}, "decode"},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{"poster_path":"/late.jpg"}`))
		}, "request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTMDB(t, tt.handler)
			c := NewClient(srv.URL, "k", 50*time.Millisecond)

			if got := c.PosterURL(context.Background(), 42); got != ErrorImageURL {
				t.Errorf("PosterURL = %q, want ErrorImageURL", got)
			}

			_, err := c.Fetch(context.Background(), 42)
			var ese *ExternalServiceError
			if !errors.As(err, &ese) {
				t.Fatalf("Fetch error = %v, want *ExternalServiceError", err)
			}
			if ese.Op != tt.wantOp || ese.MovieID != 42 {
				t.Errorf("error = %+v, want op %q", ese, tt.wantOp)
			}
		})
	}
}

func TestPosterURLUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := NewClient(addr, "k", time.Second)
	if got := c.PosterURL(context.Background(), 1); got != ErrorImageURL {
		t.Errorf("PosterURL = %q, want ErrorImageURL", got)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := newTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	c := NewClient(srv.URL, "k", time.Second)

	for i := 0; i < 5; i++ {
		c.PosterURL(context.Background(), int64(i))
	}
	if got := c.PosterURL(context.Background(), 99); got != ErrorImageURL {
		t.Errorf("PosterURL with open breaker = %q", got)
	}
	if n := hits.Load(); n != 5 {
		t.Errorf("upstream hits = %d, want 5 (breaker should short-circuit)", n)
	}

	_, err := c.Fetch(context.Background(), 100)
	var ese *ExternalServiceError
	if !errors.As(err, &ese) || ese.Op != "breaker" {
		t.Errorf("Fetch with open breaker = %v, want breaker error", err)
	}
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := newTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	c := NewClient(srv.URL, "k", time.Second)

	for i := 0; i < 8; i++ {
		c.PosterURL(context.Background(), int64(i))
	}
	if n := hits.Load(); n != 8 {
		t.Errorf("upstream hits = %d, want 8", n)
	}
}

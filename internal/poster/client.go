// Package poster resolves poster image URLs from the TMDB metadata API.
//
// Fetch reports failures as *ExternalServiceError. PosterURL is the
// boundary used by recommendations: it never fails and degrades to a
// placeholder image instead.
package poster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/ayush/movie-recommender/internal/logging"
	"github.com/ayush/movie-recommender/internal/metrics"
)

const (
	ImageBaseURL  = "https://image.tmdb.org/t/p/w500"
	NoImageURL    = "https://via.placeholder.com/500x750?text=No+Image"
	ErrorImageURL = "https://via.placeholder.com/500x750?text=Error"

	breakerName = "tmdb-api"
)

// ExternalServiceError is a failed metadata lookup.
type ExternalServiceError struct {
	MovieID    int64
	Op         string // request, status, decode, breaker
	StatusCode int
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tmdb movie %d: %s: %d: %v", e.MovieID, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("tmdb movie %d: %s: %v", e.MovieID, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Client calls the TMDB movie endpoint over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[string]
}

// NewClient builds a client. A zero timeout leaves the HTTP client without one.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// A 4xx for one movie says nothing about the API's health.
			IsSuccessful: func(err error) bool {
				var ese *ExternalServiceError
				if errors.As(err, &ese) && ese.StatusCode >= 400 && ese.StatusCode < 500 {
					return true
				}
				return err == nil
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
					Msg("circuit breaker state change")
				metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			},
		}),
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// PosterURL returns the poster for movieID, NoImageURL when the movie has
// none, or ErrorImageURL on any failure.
func (c *Client) PosterURL(ctx context.Context, movieID int64) string {
	u, err := c.Fetch(ctx, movieID)
	if err == nil {
		if u == NoImageURL {
			metrics.PosterFetches.WithLabelValues("no_image").Inc()
		} else {
			metrics.PosterFetches.WithLabelValues("ok").Inc()
		}
		return u
	}

	var ese *ExternalServiceError
	if errors.As(err, &ese) && ese.Op == "breaker" {
		metrics.PosterFetches.WithLabelValues("rejected").Inc()
	} else {
		metrics.PosterFetches.WithLabelValues("error").Inc()
	}
	logging.Warn().Err(err).Int64("movie_id", movieID).Msg("poster fetch failed")
	return ErrorImageURL
}

// Fetch looks up movieID and composes its poster URL.
func (c *Client) Fetch(ctx context.Context, movieID int64) (string, error) {
	u, err := c.cb.Execute(func() (string, error) {
		return c.fetch(ctx, movieID)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", &ExternalServiceError{MovieID: movieID, Op: "breaker", Err: err}
	}
	return u, err
}

func (c *Client) fetch(ctx context.Context, movieID int64) (string, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("language", "en-US")
	endpoint := fmt.Sprintf("%s/3/movie/%d?%s", c.baseURL, movieID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &ExternalServiceError{MovieID: movieID, Op: "request", Err: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.PosterFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", &ExternalServiceError{MovieID: movieID, Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if err := checkResp(resp); err != nil {
		return "", &ExternalServiceError{MovieID: movieID, Op: "status", StatusCode: resp.StatusCode, Err: err}
	}

	var result struct {
		PosterPath *string `json:"poster_path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ExternalServiceError{MovieID: movieID, Op: "decode", Err: err}
	}
	if result.PosterPath == nil || *result.PosterPath == "" {
		return NoImageURL, nil
	}
	return ImageBaseURL + *result.PosterPath, nil
}

// checkResp returns an error carrying a prefix of the upstream body if the
// status is not 2xx.
func checkResp(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(body)))
}

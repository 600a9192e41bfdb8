package recommend

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/ayush/movie-recommender/internal/auth"
	"github.com/ayush/movie-recommender/internal/logging"
	"github.com/ayush/movie-recommender/internal/models"
)

// HistoryLimit caps the entries returned by History.
const HistoryLimit = 50

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HistoryStore records served recommendations.
type HistoryStore interface {
	Insert(ctx context.Context, entry *models.HistoryEntry) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.HistoryEntry, error)
}

// Handler holds movie and recommendation HTTP handlers.
type Handler struct {
	engine  *Engine
	history HistoryStore
}

// NewHandler builds a handler. history may be nil, which disables it.
func NewHandler(engine *Engine, history HistoryStore) *Handler {
	return &Handler{engine: engine, history: history}
}

// Movies lists every title in the catalog.
func (h *Handler) Movies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"titles": h.engine.Titles()})
}

// Recommend returns the movies most similar to the title query parameter.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	resp, err := h.engine.Recommend(r.Context(), title)
	if errors.Is(err, ErrMovieNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		logging.Error().Err(err).Str("title", title).Msg("recommend")
		writeError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}

	if sess := auth.SessionFrom(r.Context()); sess != nil && h.history != nil {
		h.record(r.Context(), sess.UserID, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// record stores resp in the history. Failures are logged, not returned.
func (h *Handler) record(ctx context.Context, userID int64, resp *models.RecommendationResponse) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	entry := &models.HistoryEntry{
		UserID:  userID,
		Query:   resp.Query,
		Results: resp.Items,
	}
	if err := h.history.Insert(ctx, entry); err != nil {
		logging.Warn().Err(err).Int64("user_id", userID).Msg("history insert failed")
	}
}

// History lists the caller's recent recommendations, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFrom(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if h.history == nil {
		writeJSON(w, http.StatusOK, []models.HistoryEntry{})
		return
	}

	entries, err := h.history.ListByUser(r.Context(), sess.UserID, HistoryLimit)
	if err != nil {
		logging.Error().Err(err).Int64("user_id", sess.UserID).Msg("list history")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/ayush/movie-recommender/internal/logging"
	"github.com/ayush/movie-recommender/internal/models"
	"github.com/ayush/movie-recommender/internal/store"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc      *Service
	sessions Sessions
}

func NewHandler(svc *Service, sessions Sessions) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// Register creates a new user. It does not start a session.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := requestValidator().Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Tag() == "eqfield" {
			writeError(w, http.StatusBadRequest, "passwords do not match")
			return
		}
		writeError(w, http.StatusBadRequest, "username, email, password and confirm_password are required")
		return
	}

	msg, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	var verr *ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]string{"message": msg})
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, store.ErrDuplicate.Error())
	default:
		logging.Error().Err(err).Str("username", req.Username).Msg("registration failed")
		writeError(w, http.StatusInternalServerError, "error during registration")
	}
}

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := requestValidator().Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	userID, err := h.svc.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, ErrIncorrectPassword):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		logging.Error().Err(err).Str("username", req.Username).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "error during login")
		return
	}

	profile, err := h.svc.Profile(r.Context(), userID)
	if err != nil || profile == nil {
		logging.Error().Err(err).Int64("user_id", userID).Msg("load profile after login")
		writeError(w, http.StatusInternalServerError, "error during login")
		return
	}

	sid, err := h.sessions.Create(r.Context(), Session{UserID: userID, Username: profile.Username})
	if err != nil {
		logging.Error().Err(err).Int64("user_id", userID).Msg("session creation failed")
		writeError(w, http.StatusInternalServerError, "session creation failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL / time.Second),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful!",
		"user_id": userID,
		"profile": profile,
	})
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			logging.Warn().Err(err).Msg("session delete failed")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the profile of the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	profile, err := h.svc.Profile(r.Context(), sess.UserID)
	if err != nil {
		logging.Error().Err(err).Int64("user_id", sess.UserID).Msg("load profile")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

package middleware

import (
	"net/http"

	"github.com/ayush/movie-recommender/internal/auth"
	"github.com/ayush/movie-recommender/internal/logging"
)

// RequireAuth is middleware that validates the session cookie and
// injects the session into the request context.
func RequireAuth(sessions auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil || cookie.Value == "" {
				unauthorized(w, "not authenticated")
				return
			}

			sess, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				logging.Warn().Err(err).Msg("session lookup failed")
			}
			if err != nil || sess == nil {
				unauthorized(w, "session expired")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	SessionTTL    = 24 * time.Hour
	SessionCookie = "session_id"
)

// Session is the authenticated identity carried through a request.
type Session struct {
	ID       string `json:"-"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type ctxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// SessionFrom returns the session stored by RequireAuth, or nil.
func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// Sessions is the session persistence used by handlers and middleware.
type Sessions interface {
	Create(ctx context.Context, s Session) (string, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionStore wraps Redis for session management.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Create stores s under a fresh session id and returns the id.
func (st *SessionStore) Create(ctx context.Context, s Session) (string, error) {
	sid := uuid.New().String()
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := st.rdb.Set(ctx, "session:"+sid, b, SessionTTL).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return sid, nil
}

// Get returns the session, or nil if not found / expired.
func (st *SessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	val, err := st.rdb.Get(ctx, "session:"+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	s.ID = sessionID
	return &s, nil
}

// Delete removes a session.
func (st *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return st.rdb.Del(ctx, "session:"+sessionID).Err()
}

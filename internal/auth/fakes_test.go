package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ayush/movie-recommender/internal/models"
	"github.com/ayush/movie-recommender/internal/store"
)

// memUsers is an in-memory UserStore enforcing the same case-insensitive
// uniqueness rules as the users table.
type memUsers struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*models.User
	failErr error // returned by every call when set
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*models.User{}}
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memUsers) FindByUsernameOrEmail(_ context.Context, username, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	for _, u := range m.byID {
		if strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memUsers) InsertUser(_ context.Context, username, email, hash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	for _, u := range m.byID {
		if strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, email) {
			return nil, store.ErrDuplicate
		}
	}
	m.nextID++
	u := &models.User{ID: m.nextID, Username: username, Email: email, Password: hash, CreatedAt: time.Now()}
	m.byID[u.ID] = u
	c := *u
	return &c, nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	for _, u := range m.byID {
		if strings.EqualFold(u.Username, username) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	u, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("%w: user %d not found", store.ErrStorage, id)
	}
	u.Password = hash
	return nil
}

// memSessions is an in-memory Sessions.
type memSessions struct {
	mu   sync.Mutex
	next int
	data map[string]Session
}

func newMemSessions() *memSessions {
	return &memSessions{data: map[string]Session{}}
}

func (m *memSessions) Create(_ context.Context, s Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	sid := fmt.Sprintf("sid-%d", m.next)
	m.data[sid] = s
	return sid, nil
}

func (m *memSessions) Get(_ context.Context, sid string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[sid]
	if !ok {
		return nil, nil
	}
	s.ID = sid
	return &s, nil
}

func (m *memSessions) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sid)
	return nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/formbricks/popchoice/internal/apperrors"
	"github.com/formbricks/popchoice/internal/models"
)

// Session store defaults.
const (
	DefaultSessionTTL = 30 * time.Minute
	DefaultSessionMax = 10000
)

// SessionStore keeps sessions in memory with an idle TTL and a size bound.
type SessionStore struct {
	// mu orders the TTL refresh in Get against Delete so a removed session stays removed.
	mu       sync.Mutex
	sessions *expirable.LRU[uuid.UUID, *Session]
	pipeline Pipeline
	logger   *slog.Logger
}

// SessionStoreParams configures SessionStore. Zero TTL or MaxSessions use the defaults.
type SessionStoreParams struct {
	Pipeline    Pipeline
	TTL         time.Duration
	MaxSessions int
	Logger      *slog.Logger
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore(p SessionStoreParams) *SessionStore {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	size := p.MaxSessions
	if size <= 0 {
		size = DefaultSessionMax
	}

	return &SessionStore{
		sessions: expirable.NewLRU[uuid.UUID, *Session](size, nil, ttl),
		pipeline: p.Pipeline,
		logger:   logger,
	}
}

// Create starts a new idle session.
func (s *SessionStore) Create() (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	session := NewSession(id, s.pipeline, s.logger)
	s.sessions.Add(id, session)

	return session, nil
}

// Get returns the session with id, or a NotFoundError when it never existed or expired.
// A hit refreshes the session's TTL.
func (s *SessionStore) Get(id uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("session", "session not found or expired")
	}

	s.sessions.Add(id, session)

	return session, nil
}

// Delete drops the session with id.
func (s *SessionStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions.Remove(id)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	return s.sessions.Len()
}

// Recommend runs one stateless submission on a throwaway session and returns its final view.
func (s *SessionStore) Recommend(ctx context.Context, prefs models.Preferences) (models.SessionView, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return models.SessionView{}, fmt.Errorf("generate session id: %w", err)
	}

	return NewSession(id, s.pipeline, s.logger).Submit(ctx, prefs)
}

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gatekeeper/internal/verification/models"
	"gatekeeper/pkg/platform/sentinel"
)

// InMemoryStore keeps challenge sessions in process memory. Sessions are lost
// on restart, which only costs affected actors a retry.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.ChallengeSession
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*models.ChallengeSession)}
}

func (s *InMemoryStore) Create(_ context.Context, session *models.ChallengeSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *InMemoryStore) Peek(_ context.Context, id string) (*models.ChallengeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *InMemoryStore) Consume(_ context.Context, id string) (*models.ChallengeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(s.sessions, id)
	return session, nil
}

func (s *InMemoryStore) Prune(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if session.IsExpiredAt(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many sessions are held, expired or not.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

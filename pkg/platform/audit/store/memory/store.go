package memory

import (
	"context"
	"sync"

	audit "gatekeeper/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByUser returns a member's events in the order they were appended.
func (s *InMemoryStore) ListByUser(_ context.Context, guildID, userID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.GuildID == guildID && e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event(nil), s.events...), nil
}

// CountAction reports how many events with the given action were recorded.
func (s *InMemoryStore) CountAction(action string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.events {
		if e.Action == action {
			n++
		}
	}
	return n
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

package guildconfig

import (
	"context"
	"sync"

	"gatekeeper/internal/verification/models"
	"gatekeeper/pkg/requestcontext"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	configs map[string]*models.GuildConfig
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{configs: make(map[string]*models.GuildConfig)}
}

// Get returns a copy of the stored config, or defaults when none was saved.
func (s *InMemoryStore) Get(_ context.Context, guildID string) (*models.GuildConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.configs[guildID]; ok {
		return cfg.Clone(), nil
	}
	return models.DefaultGuildConfig(guildID), nil
}

func (s *InMemoryStore) Update(ctx context.Context, guildID string, mutate func(*models.GuildConfig) error) (*models.GuildConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[guildID]
	if ok {
		cfg = cfg.Clone()
	} else {
		cfg = models.DefaultGuildConfig(guildID)
	}
	if err := mutate(cfg); err != nil {
		return nil, err
	}
	cfg.GuildID = guildID
	cfg.UpdatedAt = requestcontext.Now(ctx)
	s.configs[guildID] = cfg
	return cfg.Clone(), nil
}

// Delete forgets a guild's configuration, e.g. when the bot leaves the guild.
func (s *InMemoryStore) Delete(_ context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, guildID)
	return nil
}

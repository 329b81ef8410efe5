//go:build integration

package containers

import (
	"sync"
	"testing"
)

// Manager hands out one container of each kind per test binary so suites
// do not pay the startup cost repeatedly.
type Manager struct {
	pgOnce    sync.Once
	postgres  *PostgresContainer
	redisOnce sync.Once
	redis     *RedisContainer
}

var (
	managerOnce sync.Once
	manager     *Manager
)

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.pgOnce.Do(func() {
		m.postgres = NewPostgresContainer(t)
	})
	if m.postgres == nil {
		t.Fatal("postgres container failed to start earlier in this run")
	}
	return m.postgres
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	m.redisOnce.Do(func() {
		m.redis = NewRedisContainer(t)
	})
	if m.redis == nil {
		t.Fatal("redis container failed to start earlier in this run")
	}
	return m.redis
}

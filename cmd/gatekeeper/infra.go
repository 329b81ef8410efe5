package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"gatekeeper/internal/jwt_token/revocation"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/postgres"
	"gatekeeper/internal/platform/redis"
	httptransport "gatekeeper/internal/transport/http"
	"gatekeeper/internal/verification/ports"
	"gatekeeper/internal/verification/store/guildconfig"
	"gatekeeper/internal/verification/store/session"
	"gatekeeper/internal/verification/store/state"
	audit "gatekeeper/pkg/platform/audit"
	auditkafka "gatekeeper/pkg/platform/audit/kafka"
	"gatekeeper/pkg/platform/audit/publisher"
	auditmemory "gatekeeper/pkg/platform/audit/store/memory"
	auditpostgres "gatekeeper/pkg/platform/audit/store/postgres"
)

// revocationList is what the admin surface needs from a token revocation list.
type revocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// infra holds the backing services selected by configuration. Anything not
// configured falls back to process memory.
type infra struct {
	db    *sql.DB
	redis *redis.Client
	kafka *auditkafka.Sink

	configs     ports.ConfigStore
	states      ports.StateStore
	sessions    ports.SessionStore
	audit       audit.Store
	revocations revocationList
}

func openInfra(ctx context.Context, cfg config.Config, logger *slog.Logger) (*infra, error) {
	in := &infra{}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		in.db = db
		applied, err := postgres.Migrate(ctx, db, logger)
		if err != nil {
			in.Close()
			return nil, err
		}
		logger.InfoContext(ctx, "database ready", "migrations_applied", applied)
		in.configs = guildconfig.NewPostgres(db)
		in.states = state.NewPostgres(db)
		in.audit = auditpostgres.New(db)
	} else {
		logger.WarnContext(ctx, "GATEKEEPER_DATABASE_URL not set, verification state is kept in memory")
		configs := guildconfig.NewInMemory()
		in.configs = configs
		in.states = state.NewInMemory(configs)
		in.audit = auditmemory.NewInMemoryStore()
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	if client != nil {
		in.redis = client
		in.sessions = session.NewRedis(client.Client)
		in.revocations = revocation.NewRedis(client.Client)
	} else {
		in.sessions = session.NewInMemory()
		in.revocations = revocation.NewMemory()
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("audit stream: %w", err)
		}
		in.kafka = sink
		in.audit = publisher.Tee{in.audit, sink}
	}
	return in, nil
}

// checks are the dependency probes reported by /healthz.
func (in *infra) checks() map[string]httptransport.HealthCheck {
	out := make(map[string]httptransport.HealthCheck)
	if in.db != nil {
		out["postgres"] = in.db.PingContext
	}
	if in.redis != nil {
		out["redis"] = in.redis.Health
	}
	if in.kafka != nil {
		out["kafka"] = in.kafka.Ping
	}
	return out
}

func (in *infra) Close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.redis != nil {
		in.redis.Close()
	}
	if in.db != nil {
		in.db.Close()
	}
}

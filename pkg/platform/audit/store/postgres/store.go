package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	audit "gatekeeper/pkg/platform/audit"
	txcontext "gatekeeper/pkg/platform/tx"
)

// Store persists audit events to the mod_actions table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts an event. Re-appending the same ID is a no-op.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO mod_actions (id, guild_id, user_id, actor_id, action, category, reason, request_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		event.GuildID,
		event.UserID,
		event.ActorID,
		event.Action,
		string(event.Category()),
		event.Reason,
		event.RequestID,
		metadata,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert mod action: %w", err)
	}
	return nil
}

// ListByUser returns a member's events, oldest first.
func (s *Store) ListByUser(ctx context.Context, guildID, userID string) ([]audit.Event, error) {
	query := `
		SELECT id, guild_id, user_id, actor_id, action, reason, request_id, metadata, created_at
		FROM mod_actions
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("query mod actions: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.GuildID, &e.UserID, &e.ActorID, &e.Action, &e.Reason, &e.RequestID, &metadata, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan mod action: %w", err)
		}
		if len(metadata) > 0 && string(metadata) != "null" {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal mod action metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mod actions: %w", err)
	}
	return events, nil
}

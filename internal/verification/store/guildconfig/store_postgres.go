package guildconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gatekeeper/internal/verification/models"
	txcontext "gatekeeper/pkg/platform/tx"
	"gatekeeper/pkg/requestcontext"
)

// PostgresStore persists guild configuration in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const configColumns = `
	guild_id, enabled, verify_channel_id, review_channel_id, log_channel_id,
	verified_role_id, unverified_role_id, on_join_role_id,
	min_account_age_hours, max_attempts, challenge_timeout_seconds, review_timeout_seconds, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*models.GuildConfig, error) {
	var (
		cfg              models.GuildConfig
		challengeTimeout int64
		reviewTimeout    int64
	)
	err := row.Scan(
		&cfg.GuildID, &cfg.Enabled, &cfg.VerifyChannelID, &cfg.ReviewChannelID, &cfg.LogChannelID,
		&cfg.VerifiedRoleID, &cfg.UnverifiedRoleID, &cfg.OnJoinRoleID,
		&cfg.MinAccountAgeHours, &cfg.MaxAttempts, &challengeTimeout, &reviewTimeout, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cfg.ChallengeTimeout = time.Duration(challengeTimeout) * time.Second
	cfg.ReviewTimeout = time.Duration(reviewTimeout) * time.Second
	return &cfg, nil
}

func (s *PostgresStore) Get(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	query := `SELECT ` + configColumns + ` FROM guild_config WHERE guild_id = $1`
	cfg, err := scanConfig(s.db.QueryRowContext(ctx, query, guildID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultGuildConfig(guildID), nil
		}
		return nil, fmt.Errorf("get guild config: %w", err)
	}
	return cfg, nil
}

func (s *PostgresStore) Update(ctx context.Context, guildID string, mutate func(*models.GuildConfig) error) (*models.GuildConfig, error) {
	var out *models.GuildConfig
	err := txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		query := `SELECT ` + configColumns + ` FROM guild_config WHERE guild_id = $1 FOR UPDATE`
		cfg, err := scanConfig(tx.QueryRowContext(ctx, query, guildID))
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lock guild config: %w", err)
			}
			cfg = models.DefaultGuildConfig(guildID)
		}

		if err := mutate(cfg); err != nil {
			return err
		}
		cfg.GuildID = guildID
		cfg.UpdatedAt = requestcontext.Now(ctx)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO guild_config (`+configColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (guild_id) DO UPDATE SET
				enabled = EXCLUDED.enabled,
				verify_channel_id = EXCLUDED.verify_channel_id,
				review_channel_id = EXCLUDED.review_channel_id,
				log_channel_id = EXCLUDED.log_channel_id,
				verified_role_id = EXCLUDED.verified_role_id,
				unverified_role_id = EXCLUDED.unverified_role_id,
				on_join_role_id = EXCLUDED.on_join_role_id,
				min_account_age_hours = EXCLUDED.min_account_age_hours,
				max_attempts = EXCLUDED.max_attempts,
				challenge_timeout_seconds = EXCLUDED.challenge_timeout_seconds,
				review_timeout_seconds = EXCLUDED.review_timeout_seconds,
				updated_at = EXCLUDED.updated_at
		`,
			cfg.GuildID,
			cfg.Enabled,
			cfg.VerifyChannelID,
			cfg.ReviewChannelID,
			cfg.LogChannelID,
			cfg.VerifiedRoleID,
			cfg.UnverifiedRoleID,
			cfg.OnJoinRoleID,
			cfg.MinAccountAgeHours,
			cfg.MaxAttempts,
			int64(cfg.ChallengeTimeout/time.Second),
			int64(cfg.ReviewTimeout/time.Second),
			cfg.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert guild config: %w", err)
		}
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, guildID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM guild_config WHERE guild_id = $1`, guildID)
	if err != nil {
		return fmt.Errorf("delete guild config: %w", err)
	}
	return nil
}

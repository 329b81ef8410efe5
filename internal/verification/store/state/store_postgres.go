package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gatekeeper/internal/verification/models"
	"gatekeeper/internal/verification/ports"
	txcontext "gatekeeper/pkg/platform/tx"
	"gatekeeper/pkg/requestcontext"
)

// PostgresStore persists verification state in PostgreSQL.
// This store is pure I/O: lifecycle rules live in the service and in
// models.VerificationState.Normalize.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const stateColumns = `
	s.guild_id, s.user_id, s.status, s.attempts, s.last_challenge_at, s.manual_required,
	s.risk_score, s.risk_reasons, s.invite_code, s.review_channel_id, s.review_message_id,
	s.manual_reason, s.review_reminded, s.removal_deferred_until, s.created_at, s.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (*models.VerificationState, error) {
	var (
		st            models.VerificationState
		status        string
		lastChallenge sql.NullTime
		reasons       []byte
		reviewChannel sql.NullString
		reviewMessage sql.NullString
		deferred      sql.NullTime
	)
	err := row.Scan(
		&st.GuildID, &st.UserID, &status, &st.Attempts, &lastChallenge, &st.ManualRequired,
		&st.RiskScore, &reasons, &st.InviteCode, &reviewChannel, &reviewMessage,
		&st.ManualReason, &st.ReviewReminded, &deferred, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.Status = models.Status(status)
	if lastChallenge.Valid {
		t := lastChallenge.Time
		st.LastChallengeAt = &t
	}
	if deferred.Valid {
		t := deferred.Time
		st.RemovalDeferredUntil = &t
	}
	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &st.RiskReasons); err != nil {
			return nil, fmt.Errorf("unmarshal risk reasons: %w", err)
		}
	}
	if reviewChannel.Valid && reviewMessage.Valid {
		st.ReviewMessageRef = &models.MessageRef{ChannelID: reviewChannel.String, MessageID: reviewMessage.String}
	}
	return &st, nil
}

func (s *PostgresStore) Get(ctx context.Context, guildID, userID string) (*models.VerificationState, error) {
	query := `SELECT ` + stateColumns + ` FROM verification_state s WHERE s.guild_id = $1 AND s.user_id = $2`
	st, err := scanState(s.db.QueryRowContext(ctx, query, guildID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get verification state: %w", err)
	}
	return st, nil
}

// Upsert serializes concurrent writers on the row lock. A placeholder row is
// inserted first so two first-time writers cannot both miss the lock; if
// mutate fails the transaction rolls the placeholder back.
func (s *PostgresStore) Upsert(ctx context.Context, guildID, userID string, mutate ports.StateMutator) (*models.VerificationState, error) {
	now := requestcontext.Now(ctx)
	var out *models.VerificationState

	err := txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO verification_state (guild_id, user_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (guild_id, user_id) DO NOTHING
		`, guildID, userID, string(models.StatusPending), now)
		if err != nil {
			return fmt.Errorf("seed verification state: %w", err)
		}

		query := `SELECT ` + stateColumns + ` FROM verification_state s WHERE s.guild_id = $1 AND s.user_id = $2 FOR UPDATE`
		st, err := scanState(tx.QueryRowContext(ctx, query, guildID, userID))
		if err != nil {
			return fmt.Errorf("lock verification state: %w", err)
		}

		if mutate != nil {
			if err := mutate(st); err != nil {
				return err
			}
		}
		st.GuildID, st.UserID = guildID, userID
		st.Normalize()
		st.UpdatedAt = now

		if err := write(ctx, tx, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func write(ctx context.Context, tx *sql.Tx, st *models.VerificationState) error {
	reasons, err := json.Marshal(nonNil(st.RiskReasons))
	if err != nil {
		return fmt.Errorf("marshal risk reasons: %w", err)
	}
	var reviewChannel, reviewMessage sql.NullString
	if st.ReviewMessageRef != nil {
		reviewChannel = sql.NullString{String: st.ReviewMessageRef.ChannelID, Valid: true}
		reviewMessage = sql.NullString{String: st.ReviewMessageRef.MessageID, Valid: true}
	}

	query := `
		UPDATE verification_state SET
			status = $3,
			attempts = $4,
			last_challenge_at = $5,
			manual_required = $6,
			risk_score = $7,
			risk_reasons = $8,
			invite_code = $9,
			review_channel_id = $10,
			review_message_id = $11,
			manual_reason = $12,
			review_reminded = $13,
			removal_deferred_until = $14,
			created_at = $15,
			updated_at = $16
		WHERE guild_id = $1 AND user_id = $2
	`
	_, err = tx.ExecContext(ctx, query,
		st.GuildID,
		st.UserID,
		string(st.Status),
		st.Attempts,
		nullTime(st.LastChallengeAt),
		st.ManualRequired,
		st.RiskScore,
		reasons,
		st.InviteCode,
		reviewChannel,
		reviewMessage,
		st.ManualReason,
		st.ReviewReminded,
		nullTime(st.RemovalDeferredUntil),
		st.CreatedAt,
		st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("write verification state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM verification_state WHERE guild_id = $1 AND user_id = $2`, guildID, userID)
	if err != nil {
		return fmt.Errorf("delete verification state: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListStalePending(ctx context.Context, now time.Time, limit int) ([]*models.VerificationState, error) {
	query := `
		SELECT ` + stateColumns + `
		FROM verification_state s
		LEFT JOIN guild_config c ON c.guild_id = s.guild_id
		WHERE s.status IN ('PENDING', 'CHALLENGE')
		  AND COALESCE(c.challenge_timeout_seconds, $2) > 0
		  AND s.created_at + COALESCE(c.challenge_timeout_seconds, $2) * INTERVAL '1 second' <= $1
		  AND (s.removal_deferred_until IS NULL OR s.removal_deferred_until <= $1)
		ORDER BY s.created_at ASC, s.guild_id, s.user_id
		LIMIT $3
	`
	return s.query(ctx, "list stale pending", query, now, seconds(models.DefaultChallengeTimeout), limitArg(limit))
}

func (s *PostgresStore) ListStaleTerminal(ctx context.Context, now time.Time, limit int) ([]*models.VerificationState, error) {
	query := `
		SELECT ` + stateColumns + `
		FROM verification_state s
		WHERE s.status IN ('REJECTED', 'REVIEW_EXPIRED')
		  AND (s.removal_deferred_until IS NULL OR s.removal_deferred_until <= $1)
		ORDER BY s.created_at ASC, s.guild_id, s.user_id
		LIMIT $2
	`
	return s.query(ctx, "list stale terminal", query, now, limitArg(limit))
}

func (s *PostgresStore) DeferRemoval(ctx context.Context, guildID, userID string, until time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE verification_state SET removal_deferred_until = $3
		WHERE guild_id = $1 AND user_id = $2
		  AND status IN ('PENDING', 'CHALLENGE', 'REJECTED', 'REVIEW_EXPIRED')
	`, guildID, userID, until)
	if err != nil {
		return fmt.Errorf("defer removal: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListExpiredReviews(ctx context.Context, now time.Time, limit int) ([]*models.VerificationState, error) {
	query := `
		SELECT ` + stateColumns + `
		FROM verification_state s
		LEFT JOIN guild_config c ON c.guild_id = s.guild_id
		WHERE s.status = 'MANUAL_REVIEW'
		  AND COALESCE(c.review_timeout_seconds, $2) > 0
		  AND s.created_at + COALESCE(c.review_timeout_seconds, $2) * INTERVAL '1 second' <= $1
		ORDER BY s.created_at ASC, s.guild_id, s.user_id
		LIMIT $3
	`
	return s.query(ctx, "list expired reviews", query, now, seconds(models.DefaultReviewTimeout), limitArg(limit))
}

func (s *PostgresStore) ListRemindableReviews(ctx context.Context, now time.Time, fraction float64, limit int) ([]*models.VerificationState, error) {
	query := `
		SELECT ` + stateColumns + `
		FROM verification_state s
		LEFT JOIN guild_config c ON c.guild_id = s.guild_id
		WHERE s.status = 'MANUAL_REVIEW'
		  AND NOT s.review_reminded
		  AND COALESCE(c.review_timeout_seconds, $2) > 0
		  AND s.created_at + COALESCE(c.review_timeout_seconds, $2) * $3::double precision * INTERVAL '1 second' <= $1
		  AND s.created_at + COALESCE(c.review_timeout_seconds, $2) * INTERVAL '1 second' > $1
		ORDER BY s.created_at ASC, s.guild_id, s.user_id
		LIMIT $4
	`
	return s.query(ctx, "list remindable reviews", query, now, seconds(models.DefaultReviewTimeout), fraction, limitArg(limit))
}

func (s *PostgresStore) query(ctx context.Context, op, query string, args ...any) ([]*models.VerificationState, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*models.VerificationState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nonNil(reasons []string) []string {
	if reasons == nil {
		return []string{}
	}
	return reasons
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// limitArg maps a non-positive limit to SQL NULL, which Postgres treats as LIMIT ALL.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

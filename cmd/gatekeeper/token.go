package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	jwttoken "gatekeeper/internal/jwt_token"
	"gatekeeper/internal/jwt_token/revocation"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/redis"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue and revoke admin API tokens",
	}
	cmd.AddCommand(newTokenIssueCmd(), newTokenRevokeCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		subject string
		guilds  []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "sign an admin token scoped to guilds (use * for all)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}
			svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
			token, err := svc.GenerateAdminToken(subject, guilds, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "operator the token is issued to")
	cmd.Flags().StringSliceVar(&guilds, "guild", nil, "guild id the token may manage (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("guild")
	return cmd
}

func newTokenRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke TOKEN",
		Short: "revoke an admin token for the rest of its lifetime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.Redis.URL == "" {
				return errors.New("GATEKEEPER_REDIS_URL is required to share revocations with running servers")
			}
			svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
			claims, err := svc.ValidateToken(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}

			client, err := redis.New(cmd.Context(), cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			ttl := time.Until(claims.ExpiresAt.Time)
			if err := revocation.NewRedis(client.Client).Revoke(cmd.Context(), claims.ID, ttl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s (subject %s) until %s\n",
				claims.ID, claims.Subject, claims.ExpiresAt.Time.Format(time.RFC3339))
			return nil
		},
	}
}

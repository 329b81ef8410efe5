package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	jwttoken "gatekeeper/internal/jwt_token"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/discord"
	"gatekeeper/internal/platform/httpserver"
	"gatekeeper/internal/platform/logger"
	httpmetrics "gatekeeper/internal/platform/metrics"
	"gatekeeper/internal/platform/telemetry"
	httptransport "gatekeeper/internal/transport/http"
	"gatekeeper/internal/verification/challenge"
	"gatekeeper/internal/verification/handler"
	"gatekeeper/internal/verification/invite"
	"gatekeeper/internal/verification/metrics"
	"gatekeeper/internal/verification/service"
	"gatekeeper/internal/verification/sweep"
	"gatekeeper/pkg/platform/audit/publisher"
)

const (
	shutdownGrace    = 10 * time.Second
	auditBufferSize  = 256
	tracerScopeName  = "gatekeeper/verification"
	telemetryService = "gatekeeper"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "connect to Discord and run verification, the sweep, and the admin API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

// serve wires the engine to its infrastructure and runs until ctx is done.
func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry.Enabled, telemetryService, nil)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("failed to flush traces", "error", err)
		}
	}()

	in, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.Close()

	audits := publisher.NewPublisher(in.audit,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)
	defer audits.Close()

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discord.Intents
	platform := discord.NewPlatform(session)

	vm := metrics.New()
	resolver, err := invite.New(platform, invite.WithLogger(log), invite.WithMetrics(vm))
	if err != nil {
		return err
	}
	generator, err := challenge.New()
	if err != nil {
		return err
	}
	svc, err := service.New(in.states, in.configs, in.sessions, platform,
		service.WithLogger(log),
		service.WithAuditPublisher(audits),
		service.WithMetrics(vm),
		service.WithInviteResolver(resolver),
		service.WithGenerator(generator),
		service.WithTracer(telemetry.Tracer(tracerScopeName)),
	)
	if err != nil {
		return err
	}

	router, err := discord.NewRouter(svc, platform, session, discord.WithRouterLogger(log))
	if err != nil {
		return err
	}
	router.Register(session)

	sweeper, err := sweep.New(in.states, svc, sweepConfig(cfg.Sweep),
		sweep.WithLogger(log),
		sweep.WithMetrics(vm),
	)
	if err != nil {
		return err
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
	api := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		Validator:   jwttoken.NewJWTServiceAdapter(jwtService),
		Revocations: in.revocations,
		Metrics:     httpmetrics.New(),
		Gatherer:    prometheus.DefaultGatherer,
		Checks:      in.checks(),
		Guilds:      handler.New(svc, log),
	})
	srv := httpserver.New(cfg.Server.Addr, api)

	if err := session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer session.Close()
	log.InfoContext(ctx, "gatekeeper started", "version", version, "http_addr", cfg.Server.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweeper.Start(gctx)
	})
	g.Go(func() error {
		return httpserver.Run(gctx, srv, shutdownGrace)
	})
	err = g.Wait()
	log.Info("gatekeeper stopping")
	return err
}

func sweepConfig(c config.SweepConfig) sweep.Config {
	return sweep.Config{
		Interval:       c.Interval,
		StartupDelay:   c.StartupDelay,
		PerGuildLimit:  c.PerGuildLimit,
		TotalLimit:     c.TotalLimit,
		RemindLimit:    c.RemindLimit,
		ExpireLimit:    c.ExpireLimit,
		RemovalDelay:   c.RemovalDelay,
		RemovalBackoff: c.RemovalBackoff,
		RemindFraction: c.RemindFraction,
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the gatekeeper process.
type Config struct {
	Server    Server
	Discord   Discord
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Log       LogConfig
	Sweep     SweepConfig
	Telemetry TelemetryConfig
}

// Server captures HTTP admin server configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
}

type Discord struct {
	Token string
}

// DatabaseConfig configures PostgreSQL. An empty URL selects the in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// RedisConfig configures the shared challenge session store. An empty URL
// keeps sessions in process memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables streaming of moderation audit events when Brokers is set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type LogConfig struct {
	Level  string
	Format string
}

type TelemetryConfig struct {
	Enabled bool
}

// SweepConfig tunes the reconciliation sweep.
type SweepConfig struct {
	Interval       time.Duration
	StartupDelay   time.Duration
	PerGuildLimit  int
	TotalLimit     int
	RemindLimit    int
	ExpireLimit    int
	RemovalDelay   time.Duration
	RemovalBackoff time.Duration
	RemindFraction float64
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	cfg := Config{
		Server: Server{
			Addr:          envString("GATEKEEPER_HTTP_ADDR", ":8080"),
			JWTSigningKey: envString("GATEKEEPER_ADMIN_JWT_KEY", devSigningKey),
			JWTIssuer:     envString("GATEKEEPER_ADMIN_JWT_ISSUER", "gatekeeper"),
		},
		Discord: Discord{
			Token: os.Getenv("GATEKEEPER_DISCORD_TOKEN"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("GATEKEEPER_DATABASE_URL"),
			MaxOpenConns:    envInt("GATEKEEPER_DATABASE_MAX_OPEN_CONNS", 10, &errs),
			MaxIdleConns:    envInt("GATEKEEPER_DATABASE_MAX_IDLE_CONNS", 5, &errs),
			ConnMaxLifetime: envDuration("GATEKEEPER_DATABASE_CONN_MAX_LIFETIME", 30*time.Minute, &errs),
			ConnectTimeout:  envDuration("GATEKEEPER_DATABASE_CONNECT_TIMEOUT", 30*time.Second, &errs),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("GATEKEEPER_REDIS_URL"),
			PoolSize:     envInt("GATEKEEPER_REDIS_POOL_SIZE", 10, &errs),
			MinIdleConns: envInt("GATEKEEPER_REDIS_MIN_IDLE_CONNS", 2, &errs),
			DialTimeout:  envDuration("GATEKEEPER_REDIS_DIAL_TIMEOUT", 5*time.Second, &errs),
			ReadTimeout:  envDuration("GATEKEEPER_REDIS_READ_TIMEOUT", 3*time.Second, &errs),
			WriteTimeout: envDuration("GATEKEEPER_REDIS_WRITE_TIMEOUT", 3*time.Second, &errs),
		},
		Kafka: KafkaConfig{
			Brokers: envList("GATEKEEPER_KAFKA_BROKERS"),
			Topic:   envString("GATEKEEPER_KAFKA_TOPIC", "gatekeeper.mod-actions"),
		},
		Log: LogConfig{
			Level:  envString("GATEKEEPER_LOG_LEVEL", "info"),
			Format: envString("GATEKEEPER_LOG_FORMAT", "json"),
		},
		Sweep: SweepConfig{
			Interval:       envDuration("GATEKEEPER_SWEEP_INTERVAL", 2*time.Minute, &errs),
			StartupDelay:   envDuration("GATEKEEPER_SWEEP_STARTUP_DELAY", 30*time.Second, &errs),
			PerGuildLimit:  envInt("GATEKEEPER_SWEEP_PER_GUILD_LIMIT", 50, &errs),
			TotalLimit:     envInt("GATEKEEPER_SWEEP_TOTAL_LIMIT", 200, &errs),
			RemindLimit:    envInt("GATEKEEPER_SWEEP_REMIND_LIMIT", 50, &errs),
			ExpireLimit:    envInt("GATEKEEPER_SWEEP_EXPIRE_LIMIT", 50, &errs),
			RemovalDelay:   envDuration("GATEKEEPER_SWEEP_REMOVAL_DELAY", 500*time.Millisecond, &errs),
			RemovalBackoff: envDuration("GATEKEEPER_SWEEP_REMOVAL_BACKOFF", 30*time.Minute, &errs),
			RemindFraction: 0.75,
		},
		Telemetry: TelemetryConfig{
			Enabled: os.Getenv("GATEKEEPER_OTEL_ENABLED") == "true",
		},
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that would prevent the bot from serving.
func (c Config) Validate() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, errors.New("GATEKEEPER_DISCORD_TOKEN is required"))
	}
	if c.Sweep.Interval <= 0 {
		errs = append(errs, errors.New("sweep interval must be positive"))
	}
	if c.Sweep.TotalLimit < c.Sweep.PerGuildLimit {
		errs = append(errs, errors.New("sweep total limit must be at least the per-guild limit"))
	}
	return errors.Join(errs...)
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, errs *[]error) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

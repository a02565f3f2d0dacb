package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds every environment-provided option the server recognizes.
type Config struct {
	Port         string `env:"PORT,          default=8080"`
	Env          string `env:"ENV,           default=development"`
	LogLevel     string `env:"LOG_LEVEL,     default=info"`
	ClientOrigin string `env:"CLIENT_ORIGIN, default=http://localhost:3000"`
	JWTSecret    string `env:"JWT_SECRET"`

	DatabaseURL string `env:"DATABASE_URL"`
	DB          DBConfig
	Pool        PoolConfig
	Stripe      StripeConfig
}

type DBConfig struct {
	Host     string `env:"DB_HOST,     default=localhost"`
	Port     string `env:"DB_PORT,     default=5432"`
	User     string `env:"DB_USER,     default=postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME,     default=northcart"`
}

// PoolConfig bounds the shared connection pool. The pool is the only shared
// mutable resource in the process, so every bound must be finite.
type PoolConfig struct {
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,     default=20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,     default=5"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME, default=5m"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,  default=30m"`
	AcquireTimeout  time.Duration `env:"DB_ACQUIRE_TIMEOUT,    default=5s"`
}

type StripeConfig struct {
	SecretKey     string        `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET"`
	APIBase       string        `env:"STRIPE_API_BASE,    default=https://api.stripe.com"`
	SuccessURL    string        `env:"STRIPE_SUCCESS_URL, default=http://localhost:3000/checkout/success"`
	CancelURL     string        `env:"STRIPE_CANCEL_URL,  default=http://localhost:3000/checkout/cancel"`
	Currency      string        `env:"STRIPE_CURRENCY,    default=usd"`
	Timeout       time.Duration `env:"STRIPE_TIMEOUT,     default=15s"`
	MaxAttempts   int           `env:"STRIPE_MAX_ATTEMPTS, default=2"`
}

// DSN returns the Postgres connection string, preferring DATABASE_URL.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DB.Host, c.DB.User, c.DB.Password, c.DB.Name, c.DB.Port,
	)
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// Validate rejects configurations the process cannot safely start with.
// Missing payment-gateway secrets are fatal: a server that cannot verify
// webhook signatures must not accept payment traffic.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Stripe.SecretKey == "" {
		return errors.New("STRIPE_SECRET_KEY is required")
	}
	if c.Stripe.WebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Package config loads service settings from the environment and an optional .env file.
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

// User store backends
const (
	StorePostgREST = "postgrest"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// ErrMissingSetting is wrapped by Validate for every required value that is empty
var ErrMissingSetting = errors.New("missing required setting")

type Config struct {
	Port string

	StripeSecretKey          string
	StripeWebhookSecret      string
	IgnoreAPIVersionMismatch bool
	IdentityPolicy           string

	UserStore          string
	SupabaseURL        string
	SupabaseServiceKey string
	DatabaseURL        string
	FirestoreProjectID string
	UsersTable         string

	PlanName       string
	PlanPriceCents int64
	PlanCurrency   string
	SuccessURL     string
	CancelURL      string

	RedisURL          string
	RateLimitLimit    int
	RateLimitWindow   time.Duration
	TrustedProxyHops  int
	MetricsEnabled    bool
	LogLevel          string
	LogFormat         string
	DownstreamTimeout time.Duration
}

// Load reads .env (when present) and the environment.
// Variables already set in the environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from lookup without touching .env
func FromEnv(lookup func(string) string) (Config, error) {
	env := func(k, def string) string {
		v := strings.TrimSpace(lookup(k))
		if v == "" {
			return def
		}
		return v
	}

	port := env("PORT", "10000")
	cfg := Config{
		Port:                port,
		StripeSecretKey:     env("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: env("STRIPE_WEBHOOK_SECRET", ""),
		IdentityPolicy:      env("IDENTITY_POLICY", "inline"),
		UserStore:           strings.ToLower(env("USER_STORE", StorePostgREST)),
		SupabaseURL:         env("SUPABASE_URL", ""),
		SupabaseServiceKey:  env("SUPABASE_SERVICE_KEY", ""),
		DatabaseURL:         env("DATABASE_URL", ""),
		FirestoreProjectID:  env("FIRESTORE_PROJECT_ID", ""),
		UsersTable:          env("USERS_TABLE", "users"),
		PlanName:            env("PREMIUM_PLAN_NAME", "Premium Plan"),
		PlanCurrency:        strings.ToLower(env("PREMIUM_CURRENCY", "usd")),
		SuccessURL:          env("CHECKOUT_SUCCESS_URL", "http://localhost:"+port+"/?checkout=success"),
		CancelURL:           env("CHECKOUT_CANCEL_URL", "http://localhost:"+port+"/?checkout=cancel"),
		RedisURL:            env("REDIS_URL", ""),
		LogLevel:            strings.ToLower(env("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(env("LOG_FORMAT", "json")),
	}

	var err error
	if cfg.IgnoreAPIVersionMismatch, err = strconv.ParseBool(env("STRIPE_IGNORE_API_VERSION_MISMATCH", "true")); err != nil {
		return Config{}, fmt.Errorf("invalid STRIPE_IGNORE_API_VERSION_MISMATCH: %w", err)
	}
	if cfg.MetricsEnabled, err = strconv.ParseBool(env("METRICS_ENABLED", "true")); err != nil {
		return Config{}, fmt.Errorf("invalid METRICS_ENABLED: %w", err)
	}
	if cfg.PlanPriceCents, err = strconv.ParseInt(env("PREMIUM_PRICE_CENTS", "500"), 10, 64); err != nil {
		return Config{}, fmt.Errorf("invalid PREMIUM_PRICE_CENTS: %w", err)
	}
	if cfg.RateLimitLimit, err = strconv.Atoi(env("RATE_LIMIT_REQUESTS", "100")); err != nil {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_REQUESTS: %w", err)
	}
	if cfg.TrustedProxyHops, err = strconv.Atoi(env("TRUSTED_PROXY_HOPS", "0")); err != nil {
		return Config{}, fmt.Errorf("invalid TRUSTED_PROXY_HOPS: %w", err)
	}
	if cfg.RateLimitWindow, err = time.ParseDuration(env("RATE_LIMIT_WINDOW", "1m")); err != nil {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}
	if cfg.DownstreamTimeout, err = time.ParseDuration(env("DOWNSTREAM_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("invalid DOWNSTREAM_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// Validate reports every missing required value for the selected store
func (c Config) Validate() error {
	var errs []error
	require := func(name, value string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingSetting, name))
		}
	}

	require("STRIPE_SECRET_KEY", c.StripeSecretKey)
	require("STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret)

	switch c.UserStore {
	case StorePostgREST:
		require("SUPABASE_URL", c.SupabaseURL)
		require("SUPABASE_SERVICE_KEY", c.SupabaseServiceKey)
	case StorePostgres:
		require("DATABASE_URL", c.DatabaseURL)
	case StoreFirestore:
		require("FIRESTORE_PROJECT_ID", c.FirestoreProjectID)
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown USER_STORE %q", c.UserStore))
	}

	if c.PlanPriceCents <= 0 {
		errs = append(errs, fmt.Errorf("PREMIUM_PRICE_CENTS must be positive, got %d", c.PlanPriceCents))
	}
	if c.TrustedProxyHops < 0 {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXY_HOPS must not be negative, got %d", c.TrustedProxyHops))
	}
	if c.RateLimitLimit <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}

	return errors.Join(errs...)
}

// Addr is the listen address for Port
func (c Config) Addr() string {
	return ":" + c.Port
}

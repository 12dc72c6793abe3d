// Package config loads service configuration from the environment so main
// stays lean. Defaults are suitable for local development; production
// deployments override via environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config captures all runtime configuration for the portal server.
type Config struct {
	Addr        string `env:"ORGPORTAL_ADDR" env-default:":8080"`
	Environment string `env:"ORGPORTAL_ENV" env-default:"development"`

	Database Database
	Auth     Auth
	Policy   Policy
	SMTP     SMTP
	Admin    Admin
}

// Database captures connection pool configuration. An empty URL selects the
// in-memory stores, which is the demo/test mode.
type Database struct {
	URL             string        `env:"DATABASE_URL" env-default:""`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" env-default:"5m"`
	RunMigrations   bool          `env:"DATABASE_RUN_MIGRATIONS" env-default:"true"`
}

// Auth configures bearer-token verification for approver endpoints.
// Token issuance is handled elsewhere; this service only verifies.
type Auth struct {
	JWTSigningKey string `env:"JWT_SIGNING_KEY" env-default:"dev-secret-key-change-in-production"`
}

// Policy configures registration invariants.
type Policy struct {
	// AllowedEmailDomains is a comma-separated allow-list. Empty means any
	// well-formed address is accepted.
	AllowedEmailDomains string `env:"ALLOWED_EMAIL_DOMAINS" env-default:"gmail.com,outlook.com,hotmail.com,yahoo.com"`
	MinPasswordLength   int    `env:"MIN_PASSWORD_LENGTH" env-default:"8"`
}

// SMTP configures the outbound mail collaborator. An empty host selects the
// logging notifier.
type SMTP struct {
	Host     string `env:"SMTP_HOST" env-default:""`
	Port     int    `env:"SMTP_PORT" env-default:"587"`
	TLS      bool   `env:"SMTP_TLS" env-default:"true"`
	Username string `env:"SMTP_USERNAME" env-default:""`
	Password string `env:"SMTP_PASSWORD" env-default:""`
	From     string `env:"SMTP_FROM" env-default:"noreply@orgportal.local"`
}

// Admin configures the bootstrap platform administrator seeded at startup.
type Admin struct {
	UserID   string `env:"ADMIN_USER_ID" env-default:"ADMIN001"`
	Name     string `env:"ADMIN_NAME" env-default:"Administrator"`
	Email    string `env:"ADMIN_EMAIL" env-default:"admin@orgportal.local"`
	Password string `env:"ADMIN_PASSWORD" env-default:"ChangeMe!123"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &cfg, nil
}

// EmailDomains returns the parsed allow-list, lowercased, empty entries dropped.
func (p Policy) EmailDomains() []string {
	if strings.TrimSpace(p.AllowedEmailDomains) == "" {
		return nil
	}
	parts := strings.Split(p.AllowedEmailDomains, ",")
	domains := make([]string, 0, len(parts))
	for _, part := range parts {
		if d := strings.ToLower(strings.TrimSpace(part)); d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}

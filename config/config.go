package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	DB       DBConfig
	Session  SessionConfig
	Checkout CheckoutConfig
	Admin    AdminConfig
	Events   EventsConfig
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"3000"`
	Env  string `env:"ENV" envDefault:"development"`
}

type BackendConfig struct {
	BaseURL string        `env:"BACKEND_URL" envDefault:"http://localhost:8080"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`
}

type DBConfig struct {
	Path string `env:"DB_PATH" envDefault:"easyhope.db"`
}

type SessionConfig struct {
	MaxAge          int           `env:"SESSION_MAX_AGE" envDefault:"604800"` // seconds (1 week)
	RevalidateAfter time.Duration `env:"SESSION_REVALIDATE_AFTER" envDefault:"5m"`
	SweepInterval   time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1h"`
}

type CheckoutConfig struct {
	ScriptURL  string `env:"CHECKOUT_SCRIPT_URL" envDefault:"https://checkout.razorpay.com/v1/checkout.js"`
	BrandName  string `env:"BRAND_NAME" envDefault:"EasyHope"`
	ThemeColor string `env:"THEME_COLOR" envDefault:"#2563eb"`
}

type AdminConfig struct {
	PollInterval time.Duration `env:"ADMIN_POLL_INTERVAL" envDefault:"5s"`
}

type EventsConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"easyhope-activity"`
}

// Load reads .env files when present, then environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")
	return Parse(env.Options{})
}

// Parse builds a Config from the process environment, or from
// opts.Environment when set.
func Parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func (c *Config) validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL %q is not an absolute URL", c.Backend.BaseURL)
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Session.MaxAge <= 0 {
		return errors.New("SESSION_MAX_AGE must be positive")
	}
	if c.Admin.PollInterval <= 0 {
		return errors.New("ADMIN_POLL_INTERVAL must be positive")
	}
	return nil
}

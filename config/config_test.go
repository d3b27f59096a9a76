package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Server.Port != "3000" {
		t.Errorf("port = %q, want 3000", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "http://localhost:8080" {
		t.Errorf("backend = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 10*time.Second {
		t.Errorf("timeout = %v", cfg.Backend.Timeout)
	}
	if cfg.Admin.PollInterval != 5*time.Second {
		t.Errorf("poll interval = %v", cfg.Admin.PollInterval)
	}
	if cfg.Checkout.BrandName != "EasyHope" {
		t.Errorf("brand = %q", cfg.Checkout.BrandName)
	}
	if len(cfg.Events.Brokers) != 0 {
		t.Errorf("brokers = %v, want none", cfg.Events.Brokers)
	}
	if cfg.IsProduction() {
		t.Error("default env must not be production")
	}
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{
		"BACKEND_URL":         "https://api.example.com/",
		"ENV":                 "production",
		"KAFKA_BROKERS":       "k1:9092,k2:9092",
		"ADMIN_POLL_INTERVAL": "2s",
	}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Backend.BaseURL != "https://api.example.com" {
		t.Errorf("trailing slash not trimmed: %q", cfg.Backend.BaseURL)
	}
	if !cfg.IsProduction() {
		t.Error("expected production")
	}
	if len(cfg.Events.Brokers) != 2 || cfg.Events.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Events.Brokers)
	}
	if cfg.Admin.PollInterval != 2*time.Second {
		t.Errorf("poll interval = %v", cfg.Admin.PollInterval)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"relative backend", map[string]string{"BACKEND_URL": "localhost"}},
		{"zero max age", map[string]string{"SESSION_MAX_AGE": "0"}},
		{"bad duration", map[string]string{"BACKEND_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(env.Options{Environment: tt.env}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

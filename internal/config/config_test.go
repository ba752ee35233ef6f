package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CHIKABOT_ACCESS_TOKEN", "tok")
	t.Setenv("CHIKABOT_VERIFY_TOKEN", "vtok")
	t.Setenv("CHIKABOT_OPENAI_API_KEY", "sk-test")
	t.Setenv("CHIKABOT_SELF_ID", "BOT-1")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.WebhookPath != "/webhook" {
		t.Errorf("WebhookPath = %q, want /webhook", cfg.WebhookPath)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.GeneratorTimeout != 20*time.Second {
		t.Errorf("GeneratorTimeout = %v, want 20s", cfg.GeneratorTimeout)
	}
	if cfg.DeliveryTimeout != 10*time.Second {
		t.Errorf("DeliveryTimeout = %v, want 10s", cfg.DeliveryTimeout)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHIKABOT_LISTEN_ADDR", ":9090")
	t.Setenv("CHIKABOT_CONCURRENCY", "8")
	t.Setenv("CHIKABOT_GENERATOR_TIMEOUT", "5s")
	t.Setenv("CHIKABOT_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d", cfg.Concurrency)
	}
	if cfg.GeneratorTimeout != 5*time.Second {
		t.Errorf("GeneratorTimeout = %v", cfg.GeneratorTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestValidate_ReportsAllMissing(t *testing.T) {
	cfg := &Config{
		WebhookPath:      "/webhook",
		Concurrency:      4,
		GeneratorTimeout: time.Second,
		DeliveryTimeout:  time.Second,
		LogLevel:         "info",
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, name := range []string{
		"CHIKABOT_ACCESS_TOKEN",
		"CHIKABOT_VERIFY_TOKEN",
		"CHIKABOT_OPENAI_API_KEY",
		"CHIKABOT_SELF_ID",
	} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error does not mention %s: %v", name, err)
		}
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"webhook path without slash", func(c *Config) { c.WebhookPath = "webhook" }, "CHIKABOT_WEBHOOK_PATH"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "CHIKABOT_CONCURRENCY"},
		{"excessive concurrency", func(c *Config) { c.Concurrency = 200 }, "CHIKABOT_CONCURRENCY"},
		{"zero generator timeout", func(c *Config) { c.GeneratorTimeout = 0 }, "CHIKABOT_GENERATOR_TIMEOUT"},
		{"negative delivery timeout", func(c *Config) { c.DeliveryTimeout = -time.Second }, "CHIKABOT_DELIVERY_TIMEOUT"},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }, "CHIKABOT_LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				AccessToken:      "tok",
				VerifyToken:      "vtok",
				OpenAIAPIKey:     "sk",
				SelfID:           "BOT-1",
				WebhookPath:      "/webhook",
				Concurrency:      4,
				GeneratorTimeout: time.Second,
				DeliveryTimeout:  time.Second,
				LogLevel:         "info",
			}
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %v does not mention %s", err, tt.want)
			}
		})
	}
}

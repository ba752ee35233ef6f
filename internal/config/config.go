package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process-wide configuration. It is loaded once at startup
// and treated as read-only afterwards; the pipeline receives the pieces it
// needs by injection, never by reading the environment at call time.
type Config struct {
	// Required secrets and identifiers.
	AccessToken  string `env:"CHIKABOT_ACCESS_TOKEN"`   // platform Graph API bearer credential
	VerifyToken  string `env:"CHIKABOT_VERIFY_TOKEN"`   // webhook verification handshake secret
	OpenAIAPIKey string `env:"CHIKABOT_OPENAI_API_KEY"` // text-generation service credential
	SelfID       string `env:"CHIKABOT_SELF_ID"`        // this bot's own account id (echo check)

	// Webhook server.
	ListenAddr  string `env:"CHIKABOT_LISTEN_ADDR" envDefault:":8080"`
	WebhookPath string `env:"CHIKABOT_WEBHOOK_PATH" envDefault:"/webhook"`
	AppSecret   string `env:"CHIKABOT_APP_SECRET"` // optional, enables payload signature checks

	// Reply generator.
	Model            string        `env:"CHIKABOT_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIAPIBase    string        `env:"CHIKABOT_OPENAI_API_BASE"`
	GeneratorTimeout time.Duration `env:"CHIKABOT_GENERATOR_TIMEOUT" envDefault:"20s"`
	PersonaPath      string        `env:"CHIKABOT_PERSONA_PATH"` // optional YAML persona override

	// Delivery.
	GraphAPIBase    string        `env:"CHIKABOT_GRAPH_API_BASE" envDefault:"https://graph.facebook.com/v21.0"`
	DeliveryTimeout time.Duration `env:"CHIKABOT_DELIVERY_TIMEOUT" envDefault:"10s"`

	// Pipeline.
	Concurrency int    `env:"CHIKABOT_CONCURRENCY" envDefault:"4"`
	DBPath      string `env:"CHIKABOT_DB_PATH" envDefault:"chikabot.db"`
	LogLevel    string `env:"CHIKABOT_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config and reports every missing or invalid value
// at once, so a broken deployment surfaces all its problems in one run.
func Validate(cfg *Config) error {
	var errs []string

	required := []struct {
		name, value string
	}{
		{"CHIKABOT_ACCESS_TOKEN", cfg.AccessToken},
		{"CHIKABOT_VERIFY_TOKEN", cfg.VerifyToken},
		{"CHIKABOT_OPENAI_API_KEY", cfg.OpenAIAPIKey},
		{"CHIKABOT_SELF_ID", cfg.SelfID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, r.name+" is required")
		}
	}

	if !strings.HasPrefix(cfg.WebhookPath, "/") {
		errs = append(errs, "CHIKABOT_WEBHOOK_PATH must start with /")
	}
	if cfg.Concurrency < 1 || cfg.Concurrency > 64 {
		errs = append(errs, "CHIKABOT_CONCURRENCY must be between 1 and 64")
	}
	if cfg.GeneratorTimeout <= 0 {
		errs = append(errs, "CHIKABOT_GENERATOR_TIMEOUT must be positive")
	}
	if cfg.DeliveryTimeout <= 0 {
		errs = append(errs, "CHIKABOT_DELIVERY_TIMEOUT must be positive")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "CHIKABOT_LOG_LEVEL must be one of: debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

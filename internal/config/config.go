package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Port          string `env:"PORT" env-default:"8080"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" env-default:"*"`
	// Provider
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	// Temperature used when a request does not carry one
	DefaultTemperature float32 `env:"DEFAULT_TEMPERATURE" env-default:"0.7"`
	// Optional YAML prompt template overriding the embedded HealthPrompt
	PromptFile string `env:"PROMPT_FILE"`
	// Zero leaves the provider call unbounded
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" env-default:"0s"`
	Log             LogConfig
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"console"`
}

// ClientConfig is what the terminal front end needs to reach a gateway.
type ClientConfig struct {
	GatewayURL string `env:"GATEWAY_URL" env-default:"http://localhost:8080"`
	Log        LogConfig
}

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

// Load reads the server configuration from the environment (and a local .env
// file when present). A missing provider credential is an error so the process
// fails at startup instead of on the first request.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if c.DefaultTemperature < 0 || c.DefaultTemperature > 2 {
		return fmt.Errorf("DEFAULT_TEMPERATURE must be within [0, 2], got %v", c.DefaultTemperature)
	}
	if c.UpstreamTimeout < 0 {
		return errors.New("UPSTREAM_TIMEOUT must not be negative")
	}
	if c.PromptFile != "" {
		if _, err := os.Stat(c.PromptFile); err != nil {
			return fmt.Errorf("PROMPT_FILE: %w", err)
		}
	}
	return nil
}

// LoadClient reads the chat front end's configuration. A validation error is
// returned alongside the config that was read so callers keep the log
// settings.
func LoadClient() (ClientConfig, error) {
	_ = godotenv.Load()
	var cfg ClientConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c ClientConfig) Validate() error {
	u, err := url.Parse(c.GatewayURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("GATEWAY_URL must be an absolute http(s) URL, got %q", c.GatewayURL)
	}
	return nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Auth
	JWTSecret string `env:"JWT_SECRET,required"`

	// Object storage
	StorageDir string `env:"STORAGE_DIR" envDefault:"./data/files"`

	// Providers; a missing key leaves that provider unconfigured and its
	// endpoint reports a configuration error.
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	CerebrasAPIKey  string `env:"CEREBRAS_API_KEY"`
	OllamaBaseURL   string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434/v1"`

	// Web search (Anthropic server-side tool)
	WebSearchMaxUses int `env:"WEB_SEARCH_MAX_USES" envDefault:"5"`

	// Tool-calling loop: "fallback" returns a generic message when the
	// round cap is exhausted, "error" surfaces a distinct error.
	OnRoundLimit string `env:"CHAT_ON_ROUND_LIMIT" envDefault:"fallback"`

	// Rate limiting (requests per minute per user)
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	internalconfig "github.com/talkcircle/sentinel/internal/config"
)

type envConfig struct {
	Env                     string   `env:"ENV" envDefault:"production"`
	HTTPListenAddr          string   `env:"HTTP_LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL             string   `env:"DATABASE_URL,required"`
	RedisURL                string   `env:"REDIS_URL"`
	SessionCacheTTLSec      int      `env:"SESSION_CACHE_TTL_SEC" envDefault:"30"`
	AuthServiceURL          string   `env:"AUTH_SERVICE_URL,required"`
	TranscriptProviderURL   string   `env:"TRANSCRIPT_PROVIDER_URL"`
	ProviderFetchTimeoutSec int      `env:"PROVIDER_FETCH_TIMEOUT_SEC" envDefault:"15"`
	DefaultAllowedLanguage  string   `env:"DEFAULT_ALLOWED_LANGUAGE" envDefault:"english"`
	ExtraProfanityWords     []string `env:"EXTRA_PROFANITY_WORDS" envSeparator:","`
	AlertBufferSize         int      `env:"ALERT_BUFFER_SIZE" envDefault:"256"`
	SummaryWebhookURL       string   `env:"SUMMARY_WEBHOOK_URL"`
}

func Load() (*internalconfig.Config, error) {
	if os.Getenv("ENV") == "development" {
		// Missing .env is fine; development convenience only.
		_ = godotenv.Load()
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                    raw.Env,
		HTTPListenAddr:         raw.HTTPListenAddr,
		DatabaseURL:            raw.DatabaseURL,
		RedisURL:               raw.RedisURL,
		SessionCacheTTL:        time.Duration(raw.SessionCacheTTLSec) * time.Second,
		AuthServiceURL:         raw.AuthServiceURL,
		TranscriptProviderURL:  raw.TranscriptProviderURL,
		ProviderFetchTimeout:   time.Duration(raw.ProviderFetchTimeoutSec) * time.Second,
		DefaultAllowedLanguage: raw.DefaultAllowedLanguage,
		ExtraProfanityWords:    raw.ExtraProfanityWords,
		AlertBufferSize:        raw.AlertBufferSize,
		SummaryWebhookURL:      raw.SummaryWebhookURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Env                    string
	HTTPListenAddr         string
	DatabaseURL            string
	RedisURL               string
	SessionCacheTTL        time.Duration
	AuthServiceURL         string
	TranscriptProviderURL  string
	ProviderFetchTimeout   time.Duration
	DefaultAllowedLanguage string
	ExtraProfanityWords    []string
	AlertBufferSize        int
	SummaryWebhookURL      string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if strings.TrimSpace(req.value) == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.ProviderFetchTimeout <= 0 {
		return fmt.Errorf("PROVIDER_FETCH_TIMEOUT_SEC must be positive, got %s", c.ProviderFetchTimeout)
	}
	if c.SessionCacheTTL <= 0 {
		return fmt.Errorf("SESSION_CACHE_TTL_SEC must be positive, got %s", c.SessionCacheTTL)
	}
	if c.AlertBufferSize <= 0 {
		return fmt.Errorf("ALERT_BUFFER_SIZE must be positive, got %d", c.AlertBufferSize)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_LISTEN_ADDR", value: c.HTTPListenAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "AUTH_SERVICE_URL", value: c.AuthServiceURL},
		{name: "DEFAULT_ALLOWED_LANGUAGE", value: c.DefaultAllowedLanguage},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:     ServerConfig{Port: 8080},
		Generation: GenerationConfig{BaseURL: "https://example.test/v1", MaxTokens: 512},
		Retry:      RetryConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second},
		Database:   DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"},
	}
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, validateConfig(validConfig()))

	cases := map[string]func(*Config){
		"no port":         func(c *Config) { c.Server.Port = 0 },
		"no base url":     func(c *Config) { c.Generation.BaseURL = "" },
		"zero tokens":     func(c *Config) { c.Generation.MaxTokens = 0 },
		"zero attempts":   func(c *Config) { c.Retry.MaxAttempts = 0 },
		"cap below base":  func(c *Config) { c.Retry.MaxDelay = time.Millisecond },
		"unknown driver":  func(c *Config) { c.Database.Driver = "mysql" },
		"no dsn":          func(c *Config) { c.Database.DSN = "" },
		"bad rate limit":  func(c *Config) { c.RateLimit = RateLimitConfig{Enabled: true} },
		"zero base delay": func(c *Config) { c.Retry.BaseDelay = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/meals")
	t.Setenv("MODEL_MAX_TOKENS", "1024")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/meals", cfg.Database.DSN)
	assert.Equal(t, 1024, cfg.Generation.MaxTokens)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 8*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 0.1, cfg.Generation.Temperature.Ingredient)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", MaskAPIKey("short"))
	assert.Equal(t, "gsk_...wxyz", MaskAPIKey("gsk_abcdefghijklmnopqrstuvwxyz"))
}

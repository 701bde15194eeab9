package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config application configuration
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	Generation  GenerationConfig `mapstructure:"generation"`
	Retry       RetryConfig      `mapstructure:"retry"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
}

// AppConfig application settings
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// GenerationConfig text-generation backend settings
type GenerationConfig struct {
	BaseURL           string            `mapstructure:"base_url"`
	APIKey            string            `mapstructure:"api_key"`
	Model             string            `mapstructure:"model"`
	MaxTokens         int               `mapstructure:"max_tokens"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	RequestsPerSecond float64           `mapstructure:"requests_per_second"`
	Burst             int               `mapstructure:"burst"`
	Temperature       TemperatureConfig `mapstructure:"temperature"`
}

// TemperatureConfig sampling temperature per payload shape
type TemperatureConfig struct {
	Ingredient float64 `mapstructure:"ingredient"`
	UnitRatios float64 `mapstructure:"unit_ratios"`
	Recipe     float64 `mapstructure:"recipe"`
	MealPlan   float64 `mapstructure:"meal_plan"`
}

// RetryConfig bounded retry with exponential backoff
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// DatabaseConfig persistence settings
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"`
}

// RedisConfig shared request-fingerprint store
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig inbound API rate limiting
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig loads configuration from defaults, .env and the environment.
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables win either way
	_ = godotenv.Load()

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("generation.api_key", "GROQ_API_KEY", "GENERATION_API_KEY")
	viper.BindEnv("generation.base_url", "GENERATION_BASE_URL")
	viper.BindEnv("generation.model", "GENERATION_MODEL")
	viper.BindEnv("generation.max_tokens", "MODEL_MAX_TOKENS")
	viper.BindEnv("database.driver", "DB_DRIVER")
	viper.BindEnv("database.dsn", "DATABASE_URL")
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger is not initialised yet
	fmt.Println("Loading configuration", "generation_api_key:", MaskAPIKey(viper.GetString("generation.api_key")), "generation_model:", viper.GetString("generation.model"))

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey keeps only the first and last four characters.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "meal-planner")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "180s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.request_timeout", "170s")
	viper.SetDefault("server.max_body_bytes", 1<<20)

	viper.SetDefault("generation.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("generation.model", "llama-3.3-70b-versatile")
	viper.SetDefault("generation.max_tokens", 2048)
	viper.SetDefault("generation.timeout", "60s")
	viper.SetDefault("generation.requests_per_second", 2)
	viper.SetDefault("generation.burst", 4)
	viper.SetDefault("generation.temperature.ingredient", 0.1)
	viper.SetDefault("generation.temperature.unit_ratios", 0.2)
	viper.SetDefault("generation.temperature.recipe", 0.2)
	viper.SetDefault("generation.temperature.meal_plan", 0.3)

	viper.SetDefault("retry.max_attempts", 4)
	viper.SetDefault("retry.base_delay", "500ms")
	viper.SetDefault("retry.max_delay", "8s")

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "meal-planner.db")
	viper.SetDefault("database.log_level", "warn")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	viper.SetDefault("dedup_window", "1s")
	viper.SetDefault("log_level", "info")
}

func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Generation.BaseURL == "" {
		return fmt.Errorf("generation base url is required")
	}
	if config.Generation.MaxTokens <= 0 {
		return fmt.Errorf("invalid generation max tokens")
	}

	if config.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("invalid retry max attempts")
	}
	if config.Retry.BaseDelay <= 0 || config.Retry.MaxDelay < config.Retry.BaseDelay {
		return fmt.Errorf("invalid retry delays")
	}

	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}
	if config.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}

	if config.RateLimit.Enabled {
		if config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit")
		}
	}

	return nil
}

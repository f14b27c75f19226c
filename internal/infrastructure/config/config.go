package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	USDA        USDAConfig      `mapstructure:"usda"`
	Gemini      GeminiConfig    `mapstructure:"gemini"`
	Fallback    FallbackConfig  `mapstructure:"fallback"`
	Cache       CacheConfig     `mapstructure:"cache"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Usage       UsageConfig     `mapstructure:"usage"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Image       ImageConfig     `mapstructure:"image"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig describes the application itself.
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// USDAConfig holds the nutrition-database client settings.
type USDAConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	PageSize int           `mapstructure:"page_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// GeminiConfig holds the primary recognition-model settings.
type GeminiConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	MonthlyTokenLimit int64         `mapstructure:"monthly_token_limit"`
	WarnThreshold     float64       `mapstructure:"warn_threshold"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// FallbackConfig holds the cheaper fallback recognition-model settings.
type FallbackConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds response-cache settings.
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	LookupTTL time.Duration `mapstructure:"lookup_ttl"`
	ImageTTL  time.Duration `mapstructure:"image_ttl"`
}

// RateLimitConfig holds per-client quota ceilings.
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxRequests    int64         `mapstructure:"max_requests"`
	MaxLLMRequests int64         `mapstructure:"max_llm_requests"`
	Window         time.Duration `mapstructure:"window"`
}

// UsageConfig holds the global monthly budget.
type UsageConfig struct {
	MonthlyAPILimit int64 `mapstructure:"monthly_api_limit"`
}

// RedisConfig holds key-value store settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ImageConfig holds upload constraints.
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// LoadConfig loads the configuration from the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine in deployed environments.
		fmt.Println("Warning: .env file not found")
	}

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("usda.api_key", "USDA_API_KEY")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("gemini.model", "GEMINI_MODEL")
	viper.BindEnv("gemini.monthly_token_limit", "GEMINI_MONTHLY_TOKEN_LIMIT")
	viper.BindEnv("gemini.warn_threshold", "GEMINI_WARN_THRESHOLD")
	viper.BindEnv("fallback.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("fallback.model", "OPENROUTER_MODEL")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("rate_limit.max_requests", "MAX_REQUESTS")
	viper.BindEnv("rate_limit.max_llm_requests", "MAX_LLM_REQUESTS")
	viper.BindEnv("usage.monthly_api_limit", "MONTHLY_API_LIMIT")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
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

	// Logger is not up yet, so plain stdout here.
	fmt.Println("Loading configuration",
		"usda_api_key:", maskAPIKey(viper.GetString("usda.api_key")),
		"gemini_model:", viper.GetString("gemini.model"))

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey masks an API key, keeping four characters at each end.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "nutriscan")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	viper.SetDefault("usda.base_url", "https://api.nal.usda.gov/fdc/v1")
	viper.SetDefault("usda.page_size", 25)
	viper.SetDefault("usda.timeout", "15s")

	viper.SetDefault("gemini.enabled", true)
	viper.SetDefault("gemini.model", "gemini-1.5-flash")
	viper.SetDefault("gemini.monthly_token_limit", 1_000_000)
	viper.SetDefault("gemini.warn_threshold", 0.1)
	viper.SetDefault("gemini.timeout", "60s")

	viper.SetDefault("fallback.model", "qwen/qwen2.5-vl-72b-instruct:free")
	viper.SetDefault("fallback.max_tokens", 1000)
	viper.SetDefault("fallback.timeout", "60s")

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.lookup_ttl", "24h")
	viper.SetDefault("cache.image_ttl", "48h")

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.max_requests", 30)
	viper.SetDefault("rate_limit.max_llm_requests", 10)
	viper.SetDefault("rate_limit.window", "1h")

	viper.SetDefault("usage.monthly_api_limit", 5_000_000)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB

	viper.SetDefault("dedup_window", "1s")
}

func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Cache.Enabled {
		if config.Cache.LookupTTL <= 0 {
			return fmt.Errorf("invalid cache lookup ttl")
		}
		if config.Cache.ImageTTL <= 0 {
			return fmt.Errorf("invalid cache image ttl")
		}
	}

	if config.RateLimit.Enabled {
		if config.RateLimit.MaxRequests <= 0 {
			return fmt.Errorf("invalid rate limit max requests")
		}
		if config.RateLimit.MaxLLMRequests <= 0 || config.RateLimit.MaxLLMRequests > config.RateLimit.MaxRequests {
			return fmt.Errorf("invalid rate limit max llm requests")
		}
		if config.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit window")
		}
	}

	if config.Usage.MonthlyAPILimit <= 0 {
		return fmt.Errorf("invalid monthly api limit")
	}

	if config.Gemini.WarnThreshold < 0 || config.Gemini.WarnThreshold >= 1 {
		return fmt.Errorf("invalid gemini warn threshold")
	}

	return nil
}

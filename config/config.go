package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Classifier ClassifierConfig
	OCR        OCRConfig
	Cache      CacheConfig
	Analysis   AnalysisConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ClassifierConfig holds classification API configuration
type ClassifierConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// OCRConfig holds text extraction API configuration
type OCRConfig struct {
	APIKey        string  `mapstructure:"api_key"`
	BaseURL       string  `mapstructure:"base_url"`
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTLDays       int           `mapstructure:"ttl_days"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// AnalysisConfig holds orchestrator tuning
type AnalysisConfig struct {
	ChunkSize          int           `mapstructure:"chunk_size"`
	MaxRetries         int           `mapstructure:"max_retries"`
	ChunkStagger       time.Duration `mapstructure:"chunk_stagger"`
	EnableDebugLogging bool          `mapstructure:"enable_debug_logging"`
}

// RateLimitConfig holds per-identity rate limiting configuration
type RateLimitConfig struct {
	Window              time.Duration `mapstructure:"window"`
	OCRLimit            int           `mapstructure:"ocr_limit"`
	ClassificationLimit int           `mapstructure:"classification_limit"`
	GeneralLimit        int           `mapstructure:"general_limit"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/labelscan/")

	// Environment variable settings
	v.SetEnvPrefix("LABELSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Classifier defaults
	v.SetDefault("classifier.base_url", "https://api.labelscan.dev")

	// OCR defaults
	v.SetDefault("ocr.base_url", "https://ocr.labelscan.dev")
	v.SetDefault("ocr.min_confidence", 0.6)

	// Cache defaults
	v.SetDefault("cache.ttl_days", 180)
	v.SetDefault("cache.sweep_interval", "10m")

	// Analysis defaults
	v.SetDefault("analysis.chunk_size", 8)
	v.SetDefault("analysis.max_retries", 3)
	v.SetDefault("analysis.chunk_stagger", "150ms")
	v.SetDefault("analysis.enable_debug_logging", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("ratelimit.ocr_limit", 10)
	v.SetDefault("ratelimit.classification_limit", 30)
	v.SetDefault("ratelimit.general_limit", 120)
	v.SetDefault("ratelimit.sweep_interval", "5m")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Classifier.APIKey == "" {
		return fmt.Errorf("classifier API key is required (set LABELSCAN_CLASSIFIER_API_KEY)")
	}

	if config.Cache.TTLDays <= 0 {
		return fmt.Errorf("cache TTL must be positive, got: %d", config.Cache.TTLDays)
	}

	if config.Analysis.ChunkSize <= 0 {
		return fmt.Errorf("analysis chunk size must be positive, got: %d", config.Analysis.ChunkSize)
	}

	if config.OCR.MinConfidence < 0 || config.OCR.MinConfidence > 1 {
		return fmt.Errorf("ocr min confidence must be within [0,1], got: %f", config.OCR.MinConfidence)
	}

	return nil
}

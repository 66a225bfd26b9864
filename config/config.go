package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"proposal-ranker/chunks"
	"proposal-ranker/dedupe"
	"proposal-ranker/references"
	"proposal-ranker/solicitation"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	WebPort                  int           `mapstructure:"WEB_PORT"`
	LogLevel                 string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL              string        `mapstructure:"DATABASE_URL"`
	FixturesPath             string        `mapstructure:"FIXTURES_PATH"`
	AuthJWTSecret            string        `mapstructure:"AUTH_JWT_SECRET"`
	CandidateLimit           int           `mapstructure:"CANDIDATE_LIMIT"`
	ParentCacheSize          int           `mapstructure:"PARENT_CACHE_SIZE"`
	RateLimitRequestsPerMin  int           `mapstructure:"RATE_LIMIT_REQUESTS_PER_MIN"`
	RateLimitBurstSize       int           `mapstructure:"RATE_LIMIT_BURST_SIZE"`
	RateLimitCleanupInterval time.Duration `mapstructure:"RATE_LIMIT_CLEANUP_INTERVAL"`
	RequestTimeout           time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	Scoring                  Scoring       `mapstructure:"scoring"`
}

// Scoring groups the weight tables of every pipeline. Keys absent from the
// config file keep their built-in defaults.
type Scoring struct {
	PastPerformance dedupe.PastPerformanceWeights `mapstructure:"past_performance"`
	Resource        dedupe.ResourceWeights        `mapstructure:"resource"`
	Chunks          chunks.Weights                `mapstructure:"chunks"`
	References      references.Weights            `mapstructure:"references"`
	Solicitation    solicitation.Weights          `mapstructure:"solicitation"`
}

// DefaultScoring returns the built-in weights of every pipeline.
func DefaultScoring() Scoring {
	return Scoring{
		PastPerformance: dedupe.DefaultPastPerformanceWeights(),
		Resource:        dedupe.DefaultResourceWeights(),
		Chunks:          chunks.DefaultWeights(),
		References:      references.DefaultWeights(),
		Solicitation:    solicitation.DefaultWeights(),
	}
}

// Load reads config.yaml (or configFile when set) and environment overrides.
func Load(logger *zap.Logger, configFile string) *Config {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")        // For running locally
		v.AddConfigPath("../")      // For running from docker subdir
		v.AddConfigPath("./config") // Common config folder
	}
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("WEB_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("FIXTURES_PATH", "")
	v.SetDefault("AUTH_JWT_SECRET", "")
	v.SetDefault("CANDIDATE_LIMIT", 500)
	v.SetDefault("PARENT_CACHE_SIZE", 128)
	v.SetDefault("RATE_LIMIT_REQUESTS_PER_MIN", 120)
	v.SetDefault("RATE_LIMIT_BURST_SIZE", 20)
	v.SetDefault("RATE_LIMIT_CLEANUP_INTERVAL", 5)
	v.SetDefault("REQUEST_TIMEOUT", 30)

	if err := v.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	config := Config{Scoring: DefaultScoring()}
	if err := v.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))
	if config.CandidateLimit <= 0 {
		config.CandidateLimit = 500
	}

	// Convert minutes/seconds to proper time.Duration
	config.RateLimitCleanupInterval = config.RateLimitCleanupInterval * time.Minute
	config.RequestTimeout = config.RequestTimeout * time.Second

	return &config
}

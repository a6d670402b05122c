package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port               int      `mapstructure:"port"`
	DatabaseDriver     string   `mapstructure:"database_driver"` // "sqlite" or "postgres"
	DatabasePath       string   `mapstructure:"database_path"`   // sqlite file path
	DatabaseURL        string   `mapstructure:"database_url"`    // postgres DSN
	LogLevel           string   `mapstructure:"log_level"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RequestTimeoutSec  int      `mapstructure:"request_timeout_sec"`  // HTTP read/write; 0 = use server default
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec"` // Graceful shutdown wait
	PageLimitDefault   int      `mapstructure:"page_limit_default"`   // Edge page size when the client sends none
	PageLimitMax       int      `mapstructure:"page_limit_max"`       // Upper bound on client-requested page size
	RateLimitPerMin    int      `mapstructure:"rate_limit_per_min"`   // Per-IP token bucket rate; 0 = disabled
	RateLimitBurst     int      `mapstructure:"rate_limit_burst"`
	OTLPEndpoint       string   `mapstructure:"otlp_endpoint"`       // OTLP collector address; "" = tracing disabled
	TraceSamplingRate  float64  `mapstructure:"trace_sampling_rate"` // 0..1
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/roadgraph/")
	viper.AddConfigPath("$HOME/.roadgraph")
	viper.AddConfigPath(".")

	// Defaults
	viper.SetDefault("port", 8080)
	viper.SetDefault("database_driver", "sqlite")
	viper.SetDefault("database_path", "./roadgraph.db")
	viper.SetDefault("database_url", "")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("allowed_origins", []string{"*"})
	viper.SetDefault("request_timeout_sec", 30)
	viper.SetDefault("shutdown_timeout_sec", 15)
	viper.SetDefault("page_limit_default", 100)
	viper.SetDefault("page_limit_max", 1000)
	viper.SetDefault("rate_limit_per_min", 0) // 0 = disabled
	viper.SetDefault("rate_limit_burst", 0)
	viper.SetDefault("otlp_endpoint", "") // "" = tracing disabled
	viper.SetDefault("trace_sampling_rate", 1.0)

	// Environment variables
	viper.SetEnvPrefix("ROADGRAPH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DatabaseDriver != "sqlite" && cfg.DatabaseDriver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	if cfg.DatabaseDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required for the postgres driver")
	}

	return &cfg, nil
}

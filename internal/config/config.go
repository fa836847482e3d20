package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Redis (optional snapshot cache for squad results)
	RedisURL string `mapstructure:"REDIS_URL"`

	// Cache TTLs in seconds
	FixtureCacheTTL  int `mapstructure:"FIXTURE_CACHE_TTL"`
	AnalysisCacheTTL int `mapstructure:"ANALYSIS_CACHE_TTL"`
	SquadCacheTTL    int `mapstructure:"SQUAD_CACHE_TTL"`

	// Analysis
	DefaultBudget    float64 `mapstructure:"DEFAULT_BUDGET"`
	DefaultLookahead int     `mapstructure:"DEFAULT_LOOKAHEAD"`
	RandomSeed       int64   `mapstructure:"RANDOM_SEED"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("FIXTURE_CACHE_TTL", 900)   // 15 minutes
	viper.SetDefault("ANALYSIS_CACHE_TTL", 1800) // 30 minutes
	viper.SetDefault("SQUAD_CACHE_TTL", 1800)
	viper.SetDefault("DEFAULT_BUDGET", 100.0)
	viper.SetDefault("DEFAULT_LOOKAHEAD", 5)
	viper.SetDefault("RANDOM_SEED", 42)

	viper.AutomaticEnv()

	// A missing .env file is fine; environment variables and defaults apply
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values that would break the analysis engines.
func (c *Config) Validate() error {
	if c.FixtureCacheTTL <= 0 || c.AnalysisCacheTTL <= 0 || c.SquadCacheTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.DefaultBudget <= 0 {
		return fmt.Errorf("DEFAULT_BUDGET must be positive, got %.1f", c.DefaultBudget)
	}
	if c.DefaultLookahead < 1 {
		return fmt.Errorf("DEFAULT_LOOKAHEAD must be at least 1, got %d", c.DefaultLookahead)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) FixtureTTL() time.Duration {
	return time.Duration(c.FixtureCacheTTL) * time.Second
}

func (c *Config) AnalysisTTL() time.Duration {
	return time.Duration(c.AnalysisCacheTTL) * time.Second
}

func (c *Config) SquadTTL() time.Duration {
	return time.Duration(c.SquadCacheTTL) * time.Second
}

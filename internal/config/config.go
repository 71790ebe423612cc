// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Storage drivers accepted by DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Rate limit modes accepted by RATE_LIMIT_MODE.
const (
	RateLimitOff   = "off"
	RateLimitStore = "store"
	RateLimitRedis = "redis"
	RateLimitLocal = "local"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	DBDriver      string `mapstructure:"DB_DRIVER"`
	DBHost        string `mapstructure:"DB_HOST"`
	DBPort        string `mapstructure:"DB_PORT"`
	DBUser        string `mapstructure:"DB_USER"`
	DBPassword    string `mapstructure:"DB_PASSWORD"`
	DBName        string `mapstructure:"DB_NAME"`
	DBSSLMode     string `mapstructure:"DB_SSLMODE"`
	DBPath        string `mapstructure:"DB_PATH"`
	DBAutoMigrate bool   `mapstructure:"DB_AUTO_MIGRATE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	BoardPassword     string        `mapstructure:"BOARD_PASSWORD"`
	AdminPassword     string        `mapstructure:"ADMIN_PASSWORD"`
	AdminPasswordHash string        `mapstructure:"ADMIN_PASSWORD_HASH"`
	AdminTokenTTL     time.Duration `mapstructure:"ADMIN_TOKEN_TTL"`

	RateLimitMode      string        `mapstructure:"RATE_LIMIT_MODE"`
	RateLimitInterval  time.Duration `mapstructure:"RATE_LIMIT_INTERVAL"`
	RateLimitPruneCron string        `mapstructure:"RATE_LIMIT_PRUNE_CRON"`
	RateLimitRetention time.Duration `mapstructure:"RATE_LIMIT_RETENTION"`

	WSPingInterval   time.Duration `mapstructure:"WS_PING_INTERVAL"`
	WSMaxConnections int           `mapstructure:"WS_MAX_CONNECTIONS"`

	StatsCacheTTL time.Duration `mapstructure:"STATS_CACHE_TTL"`

	// SeedDemoMessages seeds an empty development store on startup.
	SeedDemoMessages int `mapstructure:"SEED_DEMO_MESSAGES"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// LoadConfig loads application configuration from .env, config files, and
// environment variables, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file may not exist.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			if env == "production" || env == "prod" {
				return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("DB_DRIVER", DriverSQLite)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "whisperwall")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "whisperwall.db")
	viper.SetDefault("DB_AUTO_MIGRATE", true)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("BOARD_PASSWORD", "")
	viper.SetDefault("ADMIN_PASSWORD", "")
	viper.SetDefault("ADMIN_PASSWORD_HASH", "")
	viper.SetDefault("ADMIN_TOKEN_TTL", "12h")
	viper.SetDefault("RATE_LIMIT_MODE", RateLimitOff)
	viper.SetDefault("RATE_LIMIT_INTERVAL", "10s")
	viper.SetDefault("RATE_LIMIT_PRUNE_CRON", "*/15 * * * *")
	viper.SetDefault("RATE_LIMIT_RETENTION", "24h")
	viper.SetDefault("WS_PING_INTERVAL", "30s")
	viper.SetDefault("WS_MAX_CONNECTIONS", 10000)
	viper.SetDefault("STATS_CACHE_TTL", "5s")
	viper.SetDefault("SEED_DEMO_MESSAGES", 0)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) normalize() {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.RateLimitMode = strings.ToLower(strings.TrimSpace(c.RateLimitMode))
	if c.RateLimitMode == "" {
		c.RateLimitMode = RateLimitOff
	}
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	switch c.DBDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER %q is not one of postgres, sqlite, memory", c.DBDriver)
	}

	switch c.RateLimitMode {
	case RateLimitOff, RateLimitLocal:
	case RateLimitStore:
		if c.DBDriver == DriverMemory {
			log.Println("WARNING: RATE_LIMIT_MODE=store with DB_DRIVER=memory keeps rate limit records in memory only.")
		}
	case RateLimitRedis:
		if c.RedisURL == "" {
			return errors.New("RATE_LIMIT_MODE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_MODE %q is not one of off, store, redis, local", c.RateLimitMode)
	}
	if c.RateLimitMode != RateLimitOff && c.RateLimitInterval <= 0 {
		return errors.New("RATE_LIMIT_INTERVAL must be positive when rate limiting is enabled")
	}
	if c.RateLimitPruneCron != "" && !gronx.IsValid(c.RateLimitPruneCron) {
		return fmt.Errorf("RATE_LIMIT_PRUNE_CRON %q is not a valid cron expression", c.RateLimitPruneCron)
	}

	if c.WSPingInterval <= 0 {
		return errors.New("WS_PING_INTERVAL must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.AdminPasswordHash == "" {
			return errors.New("ADMIN_PASSWORD_HASH is required in production")
		}
		if c.DBDriver == DriverPostgres && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBDriver == DriverPostgres && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

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
		Port:               "8375",
		Env:                "development",
		DBDriver:           DriverSQLite,
		JWTSecret:          "secure-secret-at-least-32-chars-long",
		RateLimitMode:      RateLimitOff,
		RateLimitPruneCron: "*/15 * * * *",
		WSPingInterval:     30 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"memory driver", func(c *Config) { c.DBDriver = DriverMemory }, false},
		{"unknown rate limit mode", func(c *Config) { c.RateLimitMode = "sometimes" }, true},
		{"redis mode without redis", func(c *Config) { c.RateLimitMode = RateLimitRedis }, true},
		{"redis mode with redis", func(c *Config) {
			c.RateLimitMode = RateLimitRedis
			c.RedisURL = "localhost:6379"
			c.RateLimitInterval = time.Second
		}, false},
		{"enabled mode needs interval", func(c *Config) { c.RateLimitMode = RateLimitLocal }, true},
		{"bad prune cron", func(c *Config) { c.RateLimitPruneCron = "every tuesday" }, true},
		{"zero ping interval", func(c *Config) { c.WSPingInterval = 0 }, true},
		{"production default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
			c.AdminPasswordHash = "$2a$10$hash"
		}, true},
		{"production without admin hash", func(c *Config) { c.Env = "production" }, true},
		{"production postgres default password", func(c *Config) {
			c.Env = "production"
			c.AdminPasswordHash = "$2a$10$hash"
			c.DBDriver = DriverPostgres
			c.DBPassword = "password"
		}, true},
		{"production sqlite", func(c *Config) {
			c.Env = "prod"
			c.AdminPasswordHash = "$2a$10$hash"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "  MEMORY ")
	t.Setenv("RATE_LIMIT_MODE", "local")
	t.Setenv("RATE_LIMIT_INTERVAL", "2s")
	t.Setenv("WS_PING_INTERVAL", "15s")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, c.DBDriver)
	assert.Equal(t, RateLimitLocal, c.RateLimitMode)
	assert.Equal(t, 2*time.Second, c.RateLimitInterval)
	assert.Equal(t, 15*time.Second, c.WSPingInterval)
	assert.Equal(t, "8375", c.Port)
	assert.Equal(t, 12*time.Hour, c.AdminTokenTTL)
	assert.True(t, c.DBAutoMigrate)
}

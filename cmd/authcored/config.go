package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// serviceConfig is everything the daemon needs beyond the engine
// defaults. Values come from AUTHCORE_* environment variables or an
// optional config file.
type serviceConfig struct {
	ListenAddr      string
	ShutdownTimeout time.Duration

	PostgresDSN string
	RedisAddr   string
	RedisDB     int

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string

	CacheEnabled bool
	CachePrefix  string
	ValidateTTL  time.Duration

	LogLevel string
}

func loadConfig(path string) (*serviceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("AUTHCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("access_ttl", "1h")
	v.SetDefault("refresh_ttl", "168h")
	v.SetDefault("issuer", "authcore")
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_prefix", "authcore")
	v.SetDefault("validate_ttl", "30s")
	v.SetDefault("log_level", "info")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &serviceConfig{
		ListenAddr:      v.GetString("listen_addr"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		PostgresDSN:     v.GetString("postgres_dsn"),
		RedisAddr:       v.GetString("redis_addr"),
		RedisDB:         v.GetInt("redis_db"),
		AccessSecret:    v.GetString("access_secret"),
		RefreshSecret:   v.GetString("refresh_secret"),
		AccessTTL:       v.GetDuration("access_ttl"),
		RefreshTTL:      v.GetDuration("refresh_ttl"),
		Issuer:          v.GetString("issuer"),
		CacheEnabled:    v.GetBool("cache_enabled"),
		CachePrefix:     v.GetString("cache_prefix"),
		ValidateTTL:     v.GetDuration("validate_ttl"),
		LogLevel:        v.GetString("log_level"),
	}

	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("AUTHCORE_POSTGRES_DSN is required")
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("AUTHCORE_ACCESS_SECRET and AUTHCORE_REFRESH_SECRET are required")
	}
	return cfg, nil
}

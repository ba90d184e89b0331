// Package config loads the server configuration from environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/colabhq/campaignd/pkg/db"
	"github.com/colabhq/campaignd/pkg/logger"
	"github.com/colabhq/campaignd/pkg/storage"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig
	Session SessionConfig
	Redis   RedisConfig
	Worker  WorkerConfig
	DB      db.Config
	Storage storage.Config
	Sentry  logger.SentryConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `env:"SERVER_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// SessionConfig holds session cookie settings shared by the HTTP stack
// and the realtime gateway.
type SessionConfig struct {
	CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"__sid"`
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"720h"`
}

// RedisConfig holds the cache connection settings.
type RedisConfig struct {
	URL string `env:"REDIS_URL,required"`
}

// WorkerConfig holds background job settings.
type WorkerConfig struct {
	MaxWorkers int    `env:"WORKER_MAX_WORKERS" envDefault:"5"`
	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, nil
}

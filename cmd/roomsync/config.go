package main

import (
	"log/slog"
	"time"
)

type config struct {
	PostgresDSN  string        `envconfig:"POSTGRES_DSN" required:"true"`
	RedisAddr    string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	UserID       string        `envconfig:"USER_ID" required:"true"`
	UserName     string        `envconfig:"USER_NAME" required:"true"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"2s"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	LogLevel     slog.Level    `envconfig:"LOG_LEVEL" default:"INFO"`
}

package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN         string `env:"DATABASE_DSN,required=true"`
	RedisURL            string `env:"REDIS_URL,required=true"`
	PushAPIURL          string `env:"PUSH_API_URL,required=true"`
	PushAccessToken     string `env:"PUSH_ACCESS_TOKEN"`
	DispatchConcurrency int    `env:"DISPATCH_CONCURRENCY,default=4"`
	RateLimitPerSec     int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	DrainIntervalSec    int    `env:"DRAIN_INTERVAL_SEC,default=30"`
	DrainBatchSize      int    `env:"DRAIN_BATCH_SIZE,default=10"`
	APIPort             int    `env:"API_PORT,default=8080"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

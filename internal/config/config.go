// Package config holds the process-scoped configuration, decoded from the
// environment once at startup. Pool sizing lives here because it is an
// operational parameter, not a correctness one: isolation comes from the unit
// of work, not from how many connections exist.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	LogMode     string `env:"LOG_MODE,default=dev"`

	// Connection pool: PoolSize connections are kept warm, MaxOverflow more
	// may be opened under load. Acquisition past the timeout fails with
	// ResourceExhausted.
	PoolSize       int           `env:"DB_POOL_SIZE,default=10"`
	MaxOverflow    int           `env:"DB_POOL_MAX_OVERFLOW,default=5"`
	AcquireTimeout time.Duration `env:"DB_POOL_ACQUIRE_TIMEOUT,default=5s"`

	// Upper bound on the duration of a single unit of work.
	UnitOfWorkTimeout time.Duration `env:"DB_UNIT_OF_WORK_TIMEOUT,default=30s"`
}

// Load reads .env if present, then decodes the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return &cfg, nil
}

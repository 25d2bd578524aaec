/*
Package config loads server configuration from the environment.

Flags in cmd/server override these values; see main.go. The bootstrap
token, when set, guarantees an administrator account exists on startup
so a fresh database is not locked out.
*/
package config

import (
	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Port is the HTTP listen port.
	Port int `env:"PROMO_PORT" envDefault:"8080"`

	// DBPath is the SQLite database path. ":memory:" for in-memory.
	DBPath string `env:"PROMO_DB" envDefault:"promos.db"`

	// RedisAddr enables the shared Redis cache when set (host:port).
	// Empty means the in-process cache.
	RedisAddr string `env:"PROMO_REDIS_ADDR"`

	// BootstrapUser and BootstrapToken seed an administrator account on
	// startup when the token is non-empty.
	BootstrapUser  string `env:"PROMO_BOOTSTRAP_USER" envDefault:"admin"`
	BootstrapToken string `env:"PROMO_BOOTSTRAP_TOKEN"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Package brc20cfg loads the indexer's configuration from a TOML file
// and applies CLI flag overrides, mirroring how the teacher's own
// node configuration is assembled: a typed struct decoded with
// BurntSushi/toml, then patched in place by urfave/cli flag values
// that were explicitly set on the command line.
package brc20cfg

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full set of knobs the indexer process needs, spanning
// both the collaborator-facing fields (passed through, never dialed by
// this core) and the ambient ops stack (logging, metrics).
type Config struct {
	BitcoinRPCURL      string `toml:"bitcoin_rpc_url"`
	BitcoinRPCUsername string `toml:"bitcoin_rpc_username"`
	BitcoinRPCPassword string `toml:"bitcoin_rpc_password"`

	WorkingDir string `toml:"working_dir"`

	PGHost     string `toml:"pg_host"`
	PGPort     int    `toml:"pg_port"`
	PGUser     string `toml:"pg_user"`
	PGPassword string `toml:"pg_password"`
	PGDatabase string `toml:"pg_database"`
	PGPoolSize int    `toml:"pg_pool_size"`

	QueueMaxDepth int `toml:"queue_max_depth"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`

	MetricsAddr string `toml:"metrics_addr"`
}

// Defaults returns the Config populated with the values this package
// falls back to when a TOML file or CLI flag leaves a field unset.
func Defaults() Config {
	return Config{
		WorkingDir:    ".",
		PGHost:        "127.0.0.1",
		PGPort:        5432,
		PGPoolSize:    10,
		QueueMaxDepth: 10,
		LogLevel:      "info",
	}
}

// Load reads and decodes a TOML config file, starting from Defaults()
// so that any field the file omits keeps its default value.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("brc20cfg: config file %q: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("brc20cfg: decode %q: %w", path, err)
	}
	return cfg, nil
}

// DSN renders the Postgres connection string pgxpool expects.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s pool_max_conns=%d",
		c.PGHost, c.PGPort, c.PGUser, c.PGPassword, c.PGDatabase, c.PGPoolSize)
}

// Validate checks the fields this core actually depends on to start
// (the collaborator fields are passed through unchecked, since dialing
// Bitcoin Core is explicitly out of scope for this core).
func (c Config) Validate() error {
	if c.PGHost == "" {
		return fmt.Errorf("brc20cfg: pg_host must not be empty")
	}
	if c.PGDatabase == "" {
		return fmt.Errorf("brc20cfg: pg_database must not be empty")
	}
	if c.QueueMaxDepth <= 0 {
		return fmt.Errorf("brc20cfg: queue_max_depth must be positive, got %d", c.QueueMaxDepth)
	}
	if c.PGPoolSize <= 0 {
		return fmt.Errorf("brc20cfg: pg_pool_size must be positive, got %d", c.PGPoolSize)
	}
	return nil
}

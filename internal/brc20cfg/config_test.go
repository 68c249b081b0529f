package brc20cfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brc20indexer.toml")
	body := `
bitcoin_rpc_url = "http://127.0.0.1:8332"
pg_host = "db.internal"
pg_port = 5433
pg_database = "brc20"
queue_max_depth = 25
log_level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8332", cfg.BitcoinRPCURL)
	assert.Equal(t, "db.internal", cfg.PGHost)
	assert.Equal(t, 5433, cfg.PGPort)
	assert.Equal(t, "brc20", cfg.PGDatabase)
	assert.Equal(t, 25, cfg.QueueMaxDepth)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Fields omitted from the file keep their defaults.
	assert.Equal(t, 10, cfg.PGPoolSize)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c Config) Config
		wantErr bool
	}{
		{"valid defaults plus db", func(c Config) Config {
			c.PGDatabase = "brc20"
			return c
		}, false},
		{"empty host", func(c Config) Config {
			c.PGHost = ""
			c.PGDatabase = "brc20"
			return c
		}, true},
		{"empty database", func(c Config) Config { return c }, true},
		{"zero queue depth", func(c Config) Config {
			c.PGDatabase = "brc20"
			c.QueueMaxDepth = 0
			return c
		}, true},
		{"zero pool size", func(c Config) Config {
			c.PGDatabase = "brc20"
			c.PGPoolSize = 0
			return c
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.mutate(Defaults())
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyFlags_OnlyOverridesSetFlags(t *testing.T) {
	app := &cli.App{
		Flags: Flags,
		Action: func(ctx *cli.Context) error {
			cfg := ApplyFlags(ctx, Defaults())
			assert.Equal(t, "override.internal", cfg.PGHost)
			assert.Equal(t, 10, cfg.PGPoolSize) // untouched, still default
			assert.Equal(t, 25, cfg.QueueMaxDepth)
			return nil
		},
	}
	err := app.Run([]string{"brc20indexer", "--pg.host", "override.internal", "--queue.max_depth", "25"})
	require.NoError(t, err)
}

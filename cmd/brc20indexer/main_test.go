package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/brc20indexer/indexer/internal/brc20cfg"
)

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brc20indexer.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
pg_host = "file-host"
pg_database = "filedb"
queue_max_depth = 5
`), 0o600))

	app := &cli.App{
		Flags: brc20cfg.Flags,
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			require.NoError(t, err)
			assert.Equal(t, "flag-host", cfg.PGHost, "CLI flag must win over the file value")
			assert.Equal(t, "filedb", cfg.PGDatabase, "unset flags keep the file's value")
			assert.Equal(t, 5, cfg.QueueMaxDepth)
			return nil
		},
	}
	err := app.Run([]string{"brc20indexer", "--config", path, "--pg.host", "flag-host"})
	require.NoError(t, err)
}

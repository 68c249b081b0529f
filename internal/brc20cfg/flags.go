package brc20cfg

import "github.com/urfave/cli/v2"

// Flags mirrors the teacher's cmd/utils/flags_rollup.go pattern: one
// cli.Flag var per overridable field, grouped into a slice the App
// wires into its top-level Flags.
var (
	ConfigFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to the indexer's TOML config file",
		Value: "brc20indexer.toml",
	}
	PGHostFlag = &cli.StringFlag{
		Name:  "pg.host",
		Usage: "Postgres host",
	}
	PGPortFlag = &cli.IntFlag{
		Name:  "pg.port",
		Usage: "Postgres port",
	}
	PGDatabaseFlag = &cli.StringFlag{
		Name:  "pg.database",
		Usage: "Postgres database name",
	}
	QueueMaxDepthFlag = &cli.IntFlag{
		Name:  "queue.max_depth",
		Usage: "Maximum pending block deliveries before OnBlock/OnRollback reject",
	}
	LogLevelFlag = &cli.StringFlag{
		Name:  "log.level",
		Usage: "Minimum log level (trace|debug|info|warn|error)",
	}
	LogFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Path to the rotated log file; empty logs to stderr",
	}
	MetricsAddrFlag = &cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "Prometheus exposition listen address; empty disables metrics serving",
	}
)

// Flags is the full set registered on the cli.App.
var Flags = []cli.Flag{
	ConfigFileFlag,
	PGHostFlag,
	PGPortFlag,
	PGDatabaseFlag,
	QueueMaxDepthFlag,
	LogLevelFlag,
	LogFileFlag,
	MetricsAddrFlag,
}

// ApplyFlags overrides cfg's fields with any flag explicitly set on
// ctx, leaving fields the operator didn't pass untouched.
func ApplyFlags(ctx *cli.Context, cfg Config) Config {
	if ctx.IsSet(PGHostFlag.Name) {
		cfg.PGHost = ctx.String(PGHostFlag.Name)
	}
	if ctx.IsSet(PGPortFlag.Name) {
		cfg.PGPort = ctx.Int(PGPortFlag.Name)
	}
	if ctx.IsSet(PGDatabaseFlag.Name) {
		cfg.PGDatabase = ctx.String(PGDatabaseFlag.Name)
	}
	if ctx.IsSet(QueueMaxDepthFlag.Name) {
		cfg.QueueMaxDepth = ctx.Int(QueueMaxDepthFlag.Name)
	}
	if ctx.IsSet(LogLevelFlag.Name) {
		cfg.LogLevel = ctx.String(LogLevelFlag.Name)
	}
	if ctx.IsSet(LogFileFlag.Name) {
		cfg.LogFile = ctx.String(LogFileFlag.Name)
	}
	if ctx.IsSet(MetricsAddrFlag.Name) {
		cfg.MetricsAddr = ctx.String(MetricsAddrFlag.Name)
	}
	return cfg
}

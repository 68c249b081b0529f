// Command brc20indexer wires configuration, the Postgres pool, the
// ledger store and its migration, the Operation Engine, and the
// Ingestion Coordinator into a single running process, in the spirit
// of the teacher's own cmd/geth entrypoint: a urfave/cli.App with one
// Action that loads config, constructs components bottom-up, and
// blocks until shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	ethprometheus "github.com/ethereum/go-ethereum/metrics/prometheus"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/brc20indexer/indexer/internal/brc20cfg"
	"github.com/brc20indexer/indexer/internal/engine"
	"github.com/brc20indexer/indexer/internal/ingest"
	"github.com/brc20indexer/indexer/internal/ledger"
)

// Exit codes per §4.7/§6.
const (
	exitOK                  = 0
	exitFatalDatabase       = 1
	exitCollaboratorOffline = 2
)

func main() {
	app := &cli.App{
		Name:  "brc20indexer",
		Usage: "BRC-20 token ledger indexer core",
		Flags: brc20cfg.Flags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("brc20indexer exited with error", "err", err)
		if coder, ok := err.(cli.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(exitFatalDatabase)
	}
}

func run(cliCtx *cli.Context) error {
	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}
	configureLogging(cfg)

	if err := cfg.Validate(); err != nil {
		log.Crit("invalid configuration", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Error("unable to connect to postgres", "err", err)
		return cli.Exit(err, exitFatalDatabase)
	}
	defer pool.Close()

	if err := ledger.Migrate(ctx, pool); err != nil {
		log.Error("ledger migration failed", "err", err)
		return cli.Exit(err, exitFatalDatabase)
	}

	store := ledger.NewPGStore(pool)
	eng := engine.New(store)
	coordinator := ingest.New(ctx, eng, cfg.QueueMaxDepth)
	defer coordinator.Close()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	log.Info("brc20indexer started",
		"pg_host", cfg.PGHost, "pg_database", cfg.PGDatabase,
		"queue_max_depth", cfg.QueueMaxDepth, "metrics_addr", cfg.MetricsAddr)

	// The native block source that tails Bitcoin and calls
	// coordinator.OnBlock/OnRollback is an external collaborator
	// process, out of scope for this core (§1); this entrypoint only
	// owns the components upstream of that call boundary and blocks
	// until the operator asks it to stop.
	waitForShutdown(ctx)
	log.Info("brc20indexer shutting down")
	return nil
}

func loadConfig(cliCtx *cli.Context) (brc20cfg.Config, error) {
	path := cliCtx.String(brc20cfg.ConfigFileFlag.Name)
	cfg, err := brc20cfg.Load(path)
	if err != nil {
		return brc20cfg.Config{}, fmt.Errorf("brc20indexer: %w", err)
	}
	return brc20cfg.ApplyFlags(cliCtx, cfg), nil
}

func configureLogging(cfg brc20cfg.Config) {
	lvl, err := log.LvlFromString(cfg.LogLevel)
	if err != nil {
		lvl = log.LevelInfo
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, lvl, false)
	if cfg.LogFile != "" {
		// Rotated file logging via the teacher's own lumberjack dependency;
		// go-ethereum/log writes through whatever io.Writer its handler
		// wraps, so the rotation is transparent to call sites.
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		handler = log.NewTerminalHandlerWithLevel(rotator, lvl, false)
	}
	log.SetDefault(log.NewLogger(handler))
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	// All counters/gauges in this process register into go-ethereum's
	// own metrics.DefaultRegistry via metrics.NewRegisteredCounter, so
	// the exporter must read from that registry, not client_golang's
	// disconnected default one.
	mux.Handle("/metrics", ethprometheus.Handler(metrics.DefaultRegistry))
	log.Info("serving prometheus metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics listener stopped", "err", err)
	}
}

func waitForShutdown(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
}

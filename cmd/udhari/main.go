package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mmynk/udhari/internal/config"
	"github.com/mmynk/udhari/internal/ledger"
	"github.com/mmynk/udhari/internal/metrics"
	"github.com/mmynk/udhari/internal/storage/sqlite"
	"github.com/mmynk/udhari/pkg/logging"
)

const usage = `Usage: udhari [-metrics] <command> [flags] [args]

Commands:
  friend add <name>
  friend rename <friend> <new name>
  friend rm -yes <friend>
  friend ls [-q query]
  tx add -friend <friend> -amount <n> [-type lent|received] -desc <text> [-date YYYY-MM-DD]
  tx rm -yes <transaction id>
  tx ls [-friend <friend>] [-type lent|received] [-q text]
  split -amount <n> -strategy equal|percentage|ratio|exact -desc <text> [-self]
        [-type lent|received] [-date YYYY-MM-DD] [-w friend=value ...] <friend>...
  balance [friend]
  settle <friend>
  clear -yes <friend>
  config show
  config set <theme|currency|show-app-name|message|upi-vpa|upi> <value>
  config preview

Friends can be given by ID or by name.
`

func main() {
	os.Exit(realMain())
}

func realMain() int {
	global := flag.NewFlagSet("udhari", flag.ContinueOnError)
	dumpMetrics := global.Bool("metrics", false, "print ledger metrics after the command")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := global.Parse(os.Args[1:]); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "udhari: failed to load config: %v\n", err)
		return 1
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := sqlite.New(cfg.DBPath, cfg.StateKey)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		return 1
	}
	defer store.Close()
	slog.Debug("Storage initialized", "database", cfg.DBPath, "key", cfg.StateKey)

	m := metrics.New()
	l, err := ledger.Open(ctx, store, ledger.WithMetrics(m))
	if err != nil {
		slog.Error("Failed to load ledger", "error", err)
		return 1
	}

	app := &cli{ledger: l, stdout: os.Stdout, stderr: os.Stderr}
	err = app.run(ctx, global.Args())

	if *dumpMetrics {
		if werr := m.WriteText(os.Stderr); werr != nil {
			slog.Warn("Failed to write metrics", "error", werr)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "udhari: %v\n", err)
		if isUsage(err) {
			return 2
		}
		return 1
	}
	return 0
}

// Package cmd implements the fincast CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/fincast/internal/cli"
	"github.com/theirongolddev/fincast/internal/config"
	"github.com/theirongolddev/fincast/internal/engine"
	"github.com/theirongolddev/fincast/internal/ledger"
	flog "github.com/theirongolddev/fincast/internal/log"
	"github.com/theirongolddev/fincast/internal/model"
	"github.com/theirongolddev/fincast/internal/store"
)

var (
	flagMonths    int
	flagAsOf      string
	flagBackend   string
	flagQuiet     bool
	flagVerbose   bool
	flagJSON      bool
	flagLogFormat string
)

// cfg is loaded once in PersistentPreRunE and shared by every command.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "fincast",
	Short: "Financial forecasting and budget health",
	Long: "Forecast revenue, analyze cash flow, track budgets and grade financial health from your ledger.\n\n" +
		"Exit status is 1 on errors and 3 when the ledger could not be read.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		if cmd.Flags().Changed("months") {
			cfg.General.DefaultMonths = flagMonths
		}
		if flagBackend != "" {
			cfg.Ledger.Backend = flagBackend
		}

		flog.Setup(flog.Config{Level: logLevel(), JSON: flagLogFormat == "json"})
		return nil
	},
	SilenceUsage: true,
	RunE:         runHealth,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode separates ledger read failures, which are worth retrying, from
// usage and validation errors.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case ledger.IsExternal(err):
		return 3
	}
	return 1
}

// logLevel is general.log_level, raised to debug by --verbose.
func logLevel() slog.Level {
	if flagVerbose {
		return slog.LevelDebug
	}
	return flog.ParseLevel(cfg.General.LogLevel)
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&flagMonths, "months", "n", 12, "History window in calendar months")
	rootCmd.PersistentFlags().StringVar(&flagAsOf, "as-of", "", "Evaluate as of this date (YYYY-MM-DD, default today)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Ledger backend override (sqlite or postgres)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging to stderr (overrides general.log_level)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format: text or json")
}

// openEngine opens the configured ledger and builds an engine over it. The
// returned closer releases the store.
func openEngine(ctx context.Context) (*engine.Engine, func(), error) {
	st, closer, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return newEngine(st), closer, nil
}

func newEngine(st ledger.Store) *engine.Engine {
	eng := engine.New(st, slog.Default())
	if cfg.Daemon.BatchLimit > 0 {
		eng.SetBatchLimit(cfg.Daemon.BatchLimit)
	}
	return eng
}

func openStore(ctx context.Context) (ledger.Store, func(), error) {
	switch cfg.Ledger.Backend {
	case "postgres":
		if cfg.Ledger.PostgresDSN == "" {
			return nil, nil, errors.New("postgres backend needs ledger.postgres_dsn or FINCAST_POSTGRES_DSN")
		}
		pg, err := store.OpenPostgres(ctx, cfg.Ledger.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres ledger: %w", err)
		}
		return pg, func() { _ = pg.Close() }, nil
	case "sqlite", "":
		db, err := store.OpenSQLite(cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening ledger %s: %w", cfg.Ledger.SQLitePath, err)
		}
		return db, func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
}

// asOf is the evaluation instant: --as-of at midnight UTC, or now.
func asOf() (time.Time, error) {
	if flagAsOf == "" {
		return time.Now().UTC(), nil
	}
	t, err := model.ParseDate(flagAsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of: %w", err)
	}
	return t, nil
}

// historyRange covers the configured number of completed calendar months
// before now. --to is the way to include the current partial month.
func historyRange(now time.Time) (time.Time, time.Time) {
	return model.CompletedMonths(now, cfg.General.DefaultMonths)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func progressf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

func formatNumber(n int64) string {
	return cli.FormatNumber(n)
}

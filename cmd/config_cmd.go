package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/fincast/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and report every problem",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Println("  Configuration is valid.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    History months: %d\n", cfg.General.DefaultMonths)
	fmt.Printf("    Currency:       %s\n", cfg.General.Currency)
	fmt.Printf("    Log level:      %s\n", cfg.General.LogLevel)
	fmt.Println()

	fmt.Println("  [Ledger]")
	fmt.Printf("    Backend:    %s\n", cfg.Ledger.Backend)
	switch cfg.Ledger.Backend {
	case "postgres":
		fmt.Printf("    DSN:        %s\n", maskDSN(cfg.Ledger.PostgresDSN))
	default:
		fmt.Printf("    SQLite:     %s\n", cfg.Ledger.SQLitePath)
	}
	if cfg.Ledger.ImportDir != "" {
		fmt.Printf("    Import dir: %s\n", cfg.Ledger.ImportDir)
	}
	fmt.Println()

	fmt.Println("  [Forecast]")
	fmt.Printf("    Method:      %s\n", cfg.Forecast.Method)
	fmt.Printf("    Horizon:     %d\n", cfg.Forecast.Horizon)
	fmt.Printf("    Window:      %d\n", cfg.Forecast.Window)
	fmt.Printf("    Granularity: %s\n", cfg.Forecast.Granularity)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %s\n", cfg.Daemon.Interval())
	fmt.Println()

	fmt.Println("  [Alerts]")
	if cfg.Alerts.AMQPURL != "" {
		fmt.Printf("    AMQP:     %s\n", maskDSN(cfg.Alerts.AMQPURL))
		fmt.Printf("    Exchange: %s (%s)\n", cfg.Alerts.Exchange, cfg.Alerts.RoutingKey)
	} else {
		fmt.Println("    AMQP: not configured")
	}
	fmt.Println()

	fmt.Println("  [Sentry]")
	if cfg.Sentry.DSN != "" {
		fmt.Println("    DSN: configured")
	} else {
		fmt.Println("    DSN: not configured")
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	if err := cfg.Validate(); err != nil {
		fmt.Println("  Problems:")
		for _, line := range strings.Split(err.Error(), "\n")[1:] {
			fmt.Printf("    %s\n", strings.TrimPrefix(line, "- "))
		}
		fmt.Println()
	}

	fmt.Println("  Run `fincast setup` to reconfigure.")
	return nil
}

// maskDSN hides the password of a URL-style connection string.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		creds = creds[:colon] + ":****"
	}
	return dsn[:scheme+3] + creds + dsn[at:]
}

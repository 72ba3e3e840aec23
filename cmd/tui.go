package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/fincast/internal/config"
	"github.com/theirongolddev/fincast/internal/pipeline"
	"github.com/theirongolddev/fincast/internal/store"
	"github.com/theirongolddev/fincast/internal/tui"
	"github.com/theirongolddev/fincast/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor so background styling always produces ANSI codes.
	lipgloss.SetColorProfile(termenv.TrueColor)

	st, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := tui.Options{
		Engine:    newEngine(st),
		Config:    cfg,
		Backend:   cfg.Ledger.Backend,
		NeedSetup: !config.Exists(),
	}
	if db, ok := st.(*store.SQLite); ok && cfg.Ledger.ImportDir != "" {
		dir := cfg.Ledger.ImportDir
		opts.Import = func(progressFn pipeline.ProgressFunc) (*pipeline.ImportResult, error) {
			return pipeline.Import(dir, db, false, progressFn)
		}
	}

	p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	flog "github.com/theirongolddev/fincast/internal/log"
	"github.com/theirongolddev/fincast/internal/pipeline"
	"github.com/theirongolddev/fincast/internal/store"
)

var (
	flagImportForce bool
	flagImportReset []string
)

var importCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Import JSONL ledger exports into the local sqlite ledger",
	Long: "Import discovers *.jsonl exports under dir (default ledger.import_dir), " +
		"skips files unchanged since the last run and stores transactions, budgets and allocations.",
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&flagImportForce, "force", false, "Re-read every file, ignoring the file tracker")
	importCmd.Flags().StringSliceVar(&flagImportReset, "reset", nil, "Forget these files in the tracker so they are re-read (repeatable)")
	rootCmd.AddCommand(importCmd)
}

func runImport(_ *cobra.Command, args []string) error {
	dir := cfg.Ledger.ImportDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return errors.New("no import directory: pass one or set ledger.import_dir")
	}
	if cfg.Ledger.Backend != "sqlite" {
		return fmt.Errorf("import writes the sqlite ledger; backend is %q", cfg.Ledger.Backend)
	}

	db, err := store.OpenSQLite(cfg.Ledger.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening ledger %s: %w", cfg.Ledger.SQLitePath, err)
	}
	defer func() { _ = db.Close() }()

	if len(flagImportReset) > 0 {
		n, err := resetTracked(db, flagImportReset)
		if err != nil {
			return err
		}
		progressf("  Reset %d of %d tracked files\n", n, len(flagImportReset))
	}

	res, err := importLedger(dir, db)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(res)
	}

	nTx, nBudgets, err := db.Counts()
	if err != nil {
		return err
	}
	fmt.Printf("  Ledger: %s transactions, %s budgets in %s\n",
		formatNumber(int64(nTx)), formatNumber(int64(nBudgets)), cfg.Ledger.SQLitePath)
	if res.ParseErrors > 0 || res.FileErrors > 0 {
		fmt.Fprintf(os.Stderr, "  %d unparseable lines, %d unreadable files\n", res.ParseErrors, res.FileErrors)
	}
	return nil
}

type fileTracker interface {
	GetTrackedFiles() (map[string]store.FileInfo, error)
	DeleteFileTracker(filePath string) error
}

// resetTracked forgets the tracker entries for paths, compared as absolute
// paths, and returns how many were found.
func resetTracked(db fileTracker, paths []string) (int, error) {
	tracked, err := db.GetTrackedFiles()
	if err != nil {
		return 0, err
	}
	byAbs := make(map[string]string, len(tracked))
	for p := range tracked {
		if abs, err := filepath.Abs(p); err == nil {
			byAbs[abs] = p
		}
	}

	n := 0
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return n, fmt.Errorf("resolving %s: %w", p, err)
		}
		key, ok := byAbs[abs]
		if !ok {
			slog.Warn("reset: file not tracked", flog.FieldComponent, flog.ComponentImport, flog.FieldFile, p)
			continue
		}
		if err := db.DeleteFileTracker(key); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// importLedger runs an incremental import with stderr progress.
func importLedger(dir string, db *store.SQLite) (*pipeline.ImportResult, error) {
	progressf("  Scanning %s...\n", dir)
	began := time.Now()

	res, err := pipeline.Import(dir, db, flagImportForce, func(current, total int) {
		if current%50 == 0 || current == total {
			progressf("\r  Parsing [%d/%d]", current, total)
		}
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("import finished",
		flog.FieldComponent, flog.ComponentImport,
		"files", res.TotalFiles,
		"imported", res.Imported,
		flog.FieldDuration, time.Since(began).Milliseconds())

	if res.Imported == 0 {
		progressf("\r  %s files unchanged (%d accounts)    \n", formatNumber(int64(res.Unchanged)), res.AccountCount)
	} else {
		progressf("\r  Imported %s files: %s transactions, %d budgets (%d unchanged)    \n",
			formatNumber(int64(res.Imported)), formatNumber(int64(res.Transactions)), res.Budgets, res.Unchanged)
	}
	return res, nil
}

package pipeline

import (
	"fmt"
	"log/slog"
	"os"

	flog "github.com/theirongolddev/fincast/internal/log"
	"github.com/theirongolddev/fincast/internal/source"
	"github.com/theirongolddev/fincast/internal/store"
)

// ImportStore is the write side the importer needs.
type ImportStore interface {
	GetTrackedFiles() (map[string]store.FileInfo, error)
	SaveImport(batch store.ImportBatch, fi store.FileInfo) error
}

// ImportResult summarises one import run.
type ImportResult struct {
	TotalFiles   int
	Unchanged    int
	Imported     int
	Transactions int
	Budgets      int
	ParseErrors  int
	FileErrors   int
	AccountCount int
}

// Import discovers JSONL exports under dir, skips files whose mtime and size
// match the tracker, parses the rest in parallel and stores each file in its
// own transaction. With force set every file is re-read.
func Import(dir string, st ImportStore, force bool, progressFn ProgressFunc) (*ImportResult, error) {
	files, err := source.ScanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	result := &ImportResult{
		TotalFiles:   len(files),
		AccountCount: source.CountAccounts(files),
	}
	if len(files) == 0 {
		return result, nil
	}

	tracked, err := st.GetTrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("reading file tracker: %w", err)
	}

	var (
		toParse []source.DiscoveredFile
		infos   []store.FileInfo
	)
	for _, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			result.FileErrors++
			continue
		}
		fi := store.FileInfo{MtimeNs: info.ModTime().UnixNano(), SizeBytes: info.Size()}

		if prev, ok := tracked[f.Path]; ok && !force && prev == fi {
			result.Unchanged++
			continue
		}
		toParse = append(toParse, f)
		infos = append(infos, fi)
	}

	results := ParseFiles(toParse, result.Unchanged, result.TotalFiles, progressFn)

	for i, pr := range results {
		if pr.Err != nil {
			slog.Warn("import file failed", flog.FieldComponent, flog.ComponentImport, flog.FieldFile, toParse[i].Path, flog.FieldError, pr.Err)
			result.FileErrors++
			continue
		}
		result.ParseErrors += pr.ParseErrors

		batch := store.ImportBatch{
			FilePath:     toParse[i].Path,
			Transactions: pr.Transactions,
			Budgets:      pr.Budgets,
			StatedStatus: pr.StatedStatus,
		}
		if err := st.SaveImport(batch, infos[i]); err != nil {
			return result, fmt.Errorf("storing %s: %w", toParse[i].Path, err)
		}
		result.Imported++
		result.Transactions += len(pr.Transactions)
		result.Budgets += len(pr.Budgets)
	}

	return result, nil
}

package source

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultAccount names files placed directly in the import root.
const DefaultAccount = "default"

// ScanDir walks an import directory and discovers every JSONL ledger export.
// A missing directory yields no files.
func ScanDir(root string) ([]DiscoveredFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".jsonl" {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		parts := strings.Split(rel, string(filepath.Separator))
		account := DefaultAccount
		if len(parts) > 1 {
			account = parts[0]
		}
		files = append(files, DiscoveredFile{Path: path, Account: account})
		return nil
	})
	return files, err
}

// CountAccounts returns the number of distinct accounts in a set of files.
func CountAccounts(files []DiscoveredFile) int {
	seen := make(map[string]struct{})
	for _, f := range files {
		seen[f.Account] = struct{}{}
	}
	return len(seen)
}

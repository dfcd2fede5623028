package runstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxPairs is how many digest pairs retention keeps by default.
const DefaultMaxPairs = 20

// ResultFile maps a digest file to its sibling result file
// (owner-repo.txt -> owner-repo_llm.json).
func ResultFile(digestFile string) string {
	return strings.TrimSuffix(digestFile, ".txt") + "_llm.json"
}

// WriteResult writes the run result next to the digest file as indented JSON.
func WriteResult(digestFile string, result any) (string, error) {
	path := ResultFile(digestFile)
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}

// Cleanup keeps only the most recent maxPairs digest pairs in dir, oldest
// first by modification time. Dotfiles and non-digest files are untouched.
func Cleanup(dir string, maxPairs int, logger *slog.Logger) error {
	if maxPairs <= 0 {
		maxPairs = DefaultMaxPairs
	}
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read output dir: %w", err)
	}

	type candidate struct {
		name  string
		mtime int64
	}
	var txts []candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".txt") || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		txts = append(txts, candidate{name: name, mtime: info.ModTime().UnixNano()})
	}

	if len(txts) <= maxPairs {
		return nil
	}
	sort.Slice(txts, func(i, j int) bool { return txts[i].mtime < txts[j].mtime })

	for _, c := range txts[:len(txts)-maxPairs] {
		digest := filepath.Join(dir, c.name)
		for _, path := range []string{digest, ResultFile(digest)} {
			if err := os.Remove(path); err == nil {
				logger.Info("retention removed", "file", path)
			} else if !os.IsNotExist(err) {
				logger.Warn("retention remove failed", "file", path, "error", err)
			}
		}
	}
	return nil
}

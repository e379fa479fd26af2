// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/corpus-collector/pkg/types"
)

// Checkpoint files are immutable snapshots of a bucket's accumulated
// records, named {MONTH}_{count}_{suffix}.json under the bucket's year
// directory. The final bucket output drops the count:
// {MONTH}_{suffix}.json.

// YearDir returns (and does not create) the per-year directory for b.
func YearDir(outputDir string, b Bucket) string {
	return filepath.Join(outputDir, strconv.Itoa(b.Year))
}

// FinalPath returns the bucket's final output file path.
func FinalPath(outputDir string, b Bucket, suffix string) string {
	return filepath.Join(YearDir(outputDir, b), fmt.Sprintf("%s_%s.json", b.Name(), suffix))
}

// CheckpointPath returns the snapshot path for a given record count.
func CheckpointPath(outputDir string, b Bucket, count int, suffix string) string {
	return filepath.Join(YearDir(outputDir, b), fmt.Sprintf("%s_%d_%s.json", b.Name(), count, suffix))
}

// WriteSnapshot serializes records as indented JSON to path via a
// temporary file and rename. Non-ASCII text is written as-is.
func WriteSnapshot(path string, records []types.Record) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".harvest-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	enc := json.NewEncoder(tmpFile)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	encErr := enc.Encode(records)
	closeErr := tmpFile.Close()
	if encErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing snapshot: %w", encErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Resume locates the highest-count checkpoint for b and loads it. It
// returns the count to resume pagination from and the accumulated record
// list. With no checkpoint present it returns (0, nil, nil): start fresh.
func Resume(outputDir string, b Bucket, suffix string) (int, []types.Record, error) {
	pattern := filepath.Join(YearDir(outputDir, b), fmt.Sprintf("%s_*_%s.json", b.Name(), suffix))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, nil, fmt.Errorf("globbing checkpoints: %w", err)
	}

	best := 0
	for _, m := range matches {
		if n, ok := checkpointCount(filepath.Base(m), b.Name(), suffix); ok && n > best {
			best = n
		}
	}
	if best == 0 {
		return 0, nil, nil
	}

	path := CheckpointPath(outputDir, b, best, suffix)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, fmt.Errorf("reading checkpoint %s: %w", path, err)
	}
	var records []types.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, nil, fmt.Errorf("parsing checkpoint %s: %w", path, err)
	}
	return best, records, nil
}

// checkpointCount extracts the count from a checkpoint filename, or
// reports false for names that do not match the snapshot pattern.
func checkpointCount(name, bucketName, suffix string) (int, bool) {
	prefix := bucketName + "_"
	tail := "_" + suffix + ".json"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, tail) {
		return 0, false
	}
	mid := strings.TrimSuffix(strings.TrimPrefix(name, prefix), tail)
	n, err := strconv.Atoi(mid)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

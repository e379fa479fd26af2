// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// Manifest records what a completed bucket harvest produced. It sits next
// to the final output file so downstream stages can check counts without
// parsing the corpus itself.
type Manifest struct {
	Bucket      string        `yaml:"bucket"`
	Year        int           `yaml:"year"`
	Suffix      string        `yaml:"suffix"`
	Records     int           `yaml:"records"`
	Elapsed     time.Duration `yaml:"elapsed"`
	CompletedAt time.Time     `yaml:"completed_at"`
}

// ManifestPath returns the manifest file path for a bucket.
func ManifestPath(outputDir string, b Bucket, suffix string) string {
	final := FinalPath(outputDir, b, suffix)
	return strings.TrimSuffix(final, ".json") + ".manifest.yaml"
}

// WriteManifest writes the bucket manifest beside the final output file.
func WriteManifest(outputDir string, b Bucket, suffix string, records int, elapsed time.Duration) error {
	m := Manifest{
		Bucket:      b.Name(),
		Year:        b.Year,
		Suffix:      suffix,
		Records:     records,
		Elapsed:     elapsed.Round(time.Second),
		CompletedAt: time.Now().UTC(),
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return os.WriteFile(filepath.Clean(ManifestPath(outputDir, b, suffix)), data, 0o644)
}

// ReadManifest loads a bucket manifest from disk.
func ReadManifest(outputDir string, b Bucket, suffix string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(outputDir, b, suffix))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

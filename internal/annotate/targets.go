// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package annotate

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// TargetsFile lists corpus files to annotate in one run, as relative
// paths under input_dir. The operator keeps one per campaign instead of
// repeating long argument lists.
type TargetsFile struct {
	InputDir string   `yaml:"input_dir"`
	Files    []string `yaml:"files"`
}

// ReadTargetsFile loads a targets file from disk.
func ReadTargetsFile(path string) (*TargetsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading targets file: %w", err)
	}
	var tf TargetsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing targets file: %w", err)
	}
	if len(tf.Files) == 0 {
		return nil, fmt.Errorf("targets file %s lists no files", path)
	}
	return &tf, nil
}

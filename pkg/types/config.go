// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "corpus-collector/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// HarvestConfig holds settings for the harvest stage.
type HarvestConfig struct {
	HTTPConfig `yaml:",inline"`

	// Subject is the subject-area clause of the search query (default COMP).
	Subject string `json:"subject" yaml:"subject"`

	// Suffix tags bucket and checkpoint filenames (e.g. "comp_23_25").
	Suffix string `json:"suffix" yaml:"suffix"`

	// OutputDir is the base directory for bucket files; one subdirectory
	// per year is created beneath it.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// PageSize is the number of entries requested per search page (default 200).
	PageSize int `json:"page_size" yaml:"page_size"`

	// MaxOffset caps pagination per bucket (default 5000 records).
	MaxOffset int `json:"max_offset" yaml:"max_offset"`

	// CheckpointEvery is the number of accumulated records between
	// checkpoint snapshots (default 500).
	CheckpointEvery int `json:"checkpoint_every" yaml:"checkpoint_every"`

	// CheckpointCooldown is the sleep after writing a checkpoint (default 10s).
	CheckpointCooldown time.Duration `json:"checkpoint_cooldown" yaml:"checkpoint_cooldown"`

	// RequestsPerSecond paces upstream calls (default 5).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// RetryDelay is the fixed backoff after a rate-limited response (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`

	// MaxRetries bounds retries per upstream call (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// DetectorConfig holds settings for the machine-generated-text scorer.
type DetectorConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the base URL of the scoring service.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// RetryDelay is the fixed backoff after a rate-limited response (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`

	// MaxRetries bounds retries per scoring call (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AnnotateConfig holds settings for the annotation stage.
type AnnotateConfig struct {
	Detector DetectorConfig `json:"detector" yaml:"detector"`

	// OutputDir is the destination directory for annotated files. Source
	// files are never modified.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// AccuracyThreshold is the score cutoff calibrated for balanced
	// accuracy. At or above means human (0), below means machine (1).
	AccuracyThreshold float64 `json:"accuracy_threshold" yaml:"accuracy_threshold"`

	// FPRThreshold is the score cutoff calibrated for a low
	// false-positive rate.
	FPRThreshold float64 `json:"fpr_threshold" yaml:"fpr_threshold"`
}

// LedgerConfig holds settings for the run ledger.
type LedgerConfig struct {
	// Path is the SQLite database file (default data/ledger.db).
	Path string `json:"path" yaml:"path"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Harvest  HarvestConfig  `json:"harvest" yaml:"harvest"`
	Annotate AnnotateConfig `json:"annotate" yaml:"annotate"`
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger"`
}

// Calibrated detector thresholds from the corpus analysis. Used as
// defaults when the config leaves the cutoffs unset.
const (
	DefaultAccuracyThreshold = 0.9015310749276843
	DefaultFPRThreshold      = 0.8536432310785527
)

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-collector/internal/annotate"
	"github.com/pdiddy/corpus-collector/internal/detector"
	"github.com/pdiddy/corpus-collector/internal/ledger"
	"github.com/pdiddy/corpus-collector/pkg/types"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate [file ...]",
	Short: "Score harvested corpora with the machine-generated-text detector",
	Long: `Annotate streams harvested JSON files through the scoring service and
writes annotated copies under --output-dir, preserving the relative path of
each input. Records that already carry a score, or whose abstract is empty or
"N/A", are left untouched; a file where nothing needed scoring produces no
output at all.

Files are given either as arguments (relative to --input-dir) or through a
YAML targets file with input_dir and files keys.`,
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().String("targets", "", "YAML targets file listing corpus files to annotate")
	annotateCmd.Flags().String("input-dir", "data/harvested", "base directory for input files")
	annotateCmd.Flags().String("output-dir", "data/annotated", "destination directory for annotated files")
	annotateCmd.Flags().String("endpoint", "", "base URL of the scoring service (required)")
	annotateCmd.Flags().Float64("accuracy-threshold", types.DefaultAccuracyThreshold, "score cutoff calibrated for balanced accuracy")
	annotateCmd.Flags().Float64("fpr-threshold", types.DefaultFPRThreshold, "score cutoff calibrated for a low false-positive rate")
	annotateCmd.Flags().Duration("retry-delay", 2*time.Second, "fixed backoff after a rate-limited response")
	annotateCmd.Flags().Int("max-retries", 3, "retries per scoring call")
	annotateCmd.Flags().Duration("timeout", 120*time.Second, "HTTP request timeout")

	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg := annotateConfigFromFlags(cmd)
	if cfg.Detector.Endpoint == "" {
		return fmt.Errorf("--endpoint is required (or set annotate.detector.endpoint in the config)")
	}

	inputDir := stringSetting(cmd, "input-dir", "annotate.input_dir", "data/harvested")
	rels := args

	targetsPath, _ := cmd.Flags().GetString("targets")
	if targetsPath != "" {
		if len(args) > 0 {
			return fmt.Errorf("give files as arguments or via --targets, not both")
		}
		tf, err := annotate.ReadTargetsFile(targetsPath)
		if err != nil {
			return err
		}
		if tf.InputDir != "" {
			inputDir = tf.InputDir
		}
		rels = tf.Files
	}
	if len(rels) == 0 {
		return fmt.Errorf("no files to annotate: pass arguments or --targets")
	}

	scorer := detector.NewHTTPScorer(cfg.Detector)
	summary, outcomes := annotate.ProcessBatch(context.Background(), scorer, cfg, inputDir, rels, os.Stdout)

	if err := recordAnnotateOutcomes(cmd, outcomes); err != nil {
		fmt.Fprintf(os.Stderr, "warning: ledger update failed: %v\n", err)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d file(s) failed annotation", summary.Failed)
	}
	return nil
}

func annotateConfigFromFlags(cmd *cobra.Command) types.AnnotateConfig {
	return types.AnnotateConfig{
		Detector: types.DetectorConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   durationSetting(cmd, "timeout", "annotate.detector.timeout", 120*time.Second),
				UserAgent: stringSetting(cmd, "", "annotate.detector.user_agent", defaultUserAgent),
			},
			Endpoint:   stringSetting(cmd, "endpoint", "annotate.detector.endpoint", ""),
			RetryDelay: durationSetting(cmd, "retry-delay", "annotate.detector.retry_delay", 2*time.Second),
			MaxRetries: intSetting(cmd, "max-retries", "annotate.detector.max_retries", 3),
		},
		OutputDir:         stringSetting(cmd, "output-dir", "annotate.output_dir", "data/annotated"),
		AccuracyThreshold: float64Setting(cmd, "accuracy-threshold", "annotate.accuracy_threshold", types.DefaultAccuracyThreshold),
		FPRThreshold:      float64Setting(cmd, "fpr-threshold", "annotate.fpr_threshold", types.DefaultFPRThreshold),
	}
}

func recordAnnotateOutcomes(cmd *cobra.Command, outcomes []annotate.FileOutcome) error {
	store, err := ledger.Open(ledgerPath(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	for _, o := range outcomes {
		status := ledger.StatusSkipped
		switch {
		case o.Err != nil:
			status = ledger.StatusFailed
		case o.Scored > 0:
			status = ledger.StatusOK
		}
		if err := store.Record(ctx, ledger.StageAnnotate, o.Path, status, o.Scored); err != nil {
			return err
		}
	}
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-collector/internal/control"
	"github.com/pdiddy/corpus-collector/internal/harvest"
	"github.com/pdiddy/corpus-collector/internal/ledger"
	"github.com/pdiddy/corpus-collector/internal/scopus"
	"github.com/pdiddy/corpus-collector/internal/secrets"
	"github.com/pdiddy/corpus-collector/pkg/types"
)

const defaultUserAgent = "corpus-collector/0.1"

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest bibliographic records month by month with checkpointing",
	Long: `Harvest collects article metadata and citation graphs from the Scopus
search and abstract APIs, one calendar month at a time. Each month is written
to {output-dir}/{year}/{MONTH}_{suffix}.json; months whose output already
exists are skipped, and interrupted months resume from their highest
checkpoint.

API keys come from SCOPUS_API_KEYS (comma-separated) or SCOPUS_API_KEY, with
.env as fallback. Typing 'p' on stdin pauses the run before the next page
request; typing 'p' again reloads the keys from .env and resumes.`,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().String("from", "", "first month to harvest (YYYY-MM, required)")
	harvestCmd.Flags().String("to", "", "last month to harvest (YYYY-MM, required)")
	harvestCmd.Flags().String("subject", "COMP", "subject-area clause of the search query")
	harvestCmd.Flags().String("suffix", "corpus", "tag for bucket and checkpoint filenames")
	harvestCmd.Flags().String("output-dir", "data/harvested", "base directory for bucket files")
	harvestCmd.Flags().Int("page-size", 200, "entries requested per search page")
	harvestCmd.Flags().Int("max-offset", 5000, "pagination cap per month")
	harvestCmd.Flags().Int("checkpoint-every", 500, "records between checkpoint snapshots")
	harvestCmd.Flags().Duration("checkpoint-cooldown", 10*time.Second, "sleep after each checkpoint")
	harvestCmd.Flags().Float64("rps", 5, "upstream requests per second")
	harvestCmd.Flags().Duration("retry-delay", 2*time.Second, "fixed backoff after a rate-limited response")
	harvestCmd.Flags().Int("max-retries", 3, "retries per upstream call")
	harvestCmd.Flags().Duration("timeout", 60*time.Second, "HTTP request timeout")
	harvestCmd.Flags().String("env-file", "", "credentials file (default .env)")
	harvestCmd.Flags().Bool("no-pause", false, "disable the stdin pause channel")

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	if fromStr == "" || toStr == "" {
		return fmt.Errorf("both --from and --to are required (YYYY-MM)")
	}
	from, err := time.Parse("2006-01", fromStr)
	if err != nil {
		return fmt.Errorf("invalid --from %q: %w", fromStr, err)
	}
	to, err := time.Parse("2006-01", toStr)
	if err != nil {
		return fmt.Errorf("invalid --to %q: %w", toStr, err)
	}
	buckets := harvest.Plan(from, to)
	if len(buckets) == 0 {
		return fmt.Errorf("empty plan: --to %s precedes --from %s", toStr, fromStr)
	}

	cfg := harvestConfigFromFlags(cmd)
	envFile, _ := cmd.Flags().GetString("env-file")

	keys, err := secrets.LoadKeys(envFile)
	if err != nil {
		return err
	}
	ring, err := scopus.NewKeyRing(keys)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Loaded %d API key(s)\n", ring.Len())

	client := scopus.NewClient(ring, cfg)

	session := &harvest.Session{
		Fetcher: client,
		Config:  cfg,
	}

	noPause, _ := cmd.Flags().GetBool("no-pause")
	if !noPause {
		ctrl := control.New(func() error {
			fresh, reloadErr := secrets.ReloadKeys(envFile)
			if reloadErr != nil {
				return reloadErr
			}
			return ring.Replace(fresh)
		})
		go ctrl.Watch(os.Stdin, os.Stderr)
		session.Pause = ctrl
	}

	summary, outcomes := session.Run(context.Background(), buckets, os.Stdout)

	if err := recordHarvestOutcomes(cmd, outcomes); err != nil {
		fmt.Fprintf(os.Stderr, "warning: ledger update failed: %v\n", err)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d month(s) failed harvesting", summary.Failed)
	}
	return nil
}

func harvestConfigFromFlags(cmd *cobra.Command) types.HarvestConfig {
	return types.HarvestConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   durationSetting(cmd, "timeout", "harvest.timeout", 60*time.Second),
			UserAgent: stringSetting(cmd, "", "harvest.user_agent", defaultUserAgent),
		},
		Subject:            stringSetting(cmd, "subject", "harvest.subject", "COMP"),
		Suffix:             stringSetting(cmd, "suffix", "harvest.suffix", "corpus"),
		OutputDir:          stringSetting(cmd, "output-dir", "harvest.output_dir", "data/harvested"),
		PageSize:           intSetting(cmd, "page-size", "harvest.page_size", 200),
		MaxOffset:          intSetting(cmd, "max-offset", "harvest.max_offset", 5000),
		CheckpointEvery:    intSetting(cmd, "checkpoint-every", "harvest.checkpoint_every", 500),
		CheckpointCooldown: durationSetting(cmd, "checkpoint-cooldown", "harvest.checkpoint_cooldown", 10*time.Second),
		RequestsPerSecond:  float64Setting(cmd, "rps", "harvest.requests_per_second", 5),
		RetryDelay:         durationSetting(cmd, "retry-delay", "harvest.retry_delay", 2*time.Second),
		MaxRetries:         intSetting(cmd, "max-retries", "harvest.max_retries", 3),
	}
}

func recordHarvestOutcomes(cmd *cobra.Command, outcomes []harvest.BucketOutcome) error {
	store, err := ledger.Open(ledgerPath(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	for _, o := range outcomes {
		status := ledger.StatusOK
		switch {
		case o.Err != nil:
			status = ledger.StatusFailed
		case o.Skipped:
			status = ledger.StatusSkipped
		}
		if err := store.Record(ctx, ledger.StageHarvest, o.Bucket.String(), status, o.Records); err != nil {
			return err
		}
	}
	return nil
}

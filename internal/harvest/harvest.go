// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest runs the resumable month-by-month record harvest: plan
// buckets, page through search results, enrich each entry, checkpoint
// periodically, and write one output file per bucket.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pdiddy/corpus-collector/internal/control"
	"github.com/pdiddy/corpus-collector/internal/scopus"
	"github.com/pdiddy/corpus-collector/pkg/types"
)

// Fetcher is the upstream call surface the session needs. *scopus.Client
// satisfies it; tests substitute fakes.
type Fetcher interface {
	// SearchPage returns the record IDs on one result page. Empty means
	// the result set is exhausted.
	SearchPage(ctx context.Context, query string, offset, count int) ([]string, error)

	// FetchRecord retrieves full metadata for one record.
	FetchRecord(ctx context.Context, id string) (*types.Record, error)

	// FetchCitations retrieves citing-article summaries for one record.
	FetchCitations(ctx context.Context, id string, count int) ([]types.Citation, error)
}

// Session owns one harvest run: the fetcher, its configuration, and the
// optional operator pause controller.
type Session struct {
	Fetcher Fetcher
	Config  types.HarvestConfig

	// Pause is checked before each page request; nil disables pausing.
	Pause *control.Controller

	// Sleep is time.Sleep in production; tests stub it out.
	Sleep func(time.Duration)
}

// Summary tallies bucket outcomes across one run.
type Summary struct {
	Harvested int
	Skipped   int
	Failed    int
}

// Total returns the number of buckets processed.
func (s Summary) Total() int {
	return s.Harvested + s.Skipped + s.Failed
}

// BucketOutcome reports one bucket's result for ledger recording.
type BucketOutcome struct {
	Bucket  Bucket
	Records int
	Skipped bool
	Err     error
}

const (
	defaultPageSize        = 200
	defaultMaxOffset       = 5000
	defaultCheckpointEvery = 500
	defaultCooldown        = 10 * time.Second
)

// Run harvests every bucket in order, continuing past per-bucket failures,
// and returns the summary plus per-bucket outcomes.
func (s *Session) Run(ctx context.Context, buckets []Bucket, w io.Writer) (Summary, []BucketOutcome) {
	var summary Summary
	outcomes := make([]BucketOutcome, 0, len(buckets))

	for _, b := range buckets {
		n, skipped, err := s.HarvestBucket(ctx, b, w)
		outcomes = append(outcomes, BucketOutcome{Bucket: b, Records: n, Skipped: skipped, Err: err})
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed:  %s (%v)\n", b, err)
			summary.Failed++
		case skipped:
			summary.Skipped++
		default:
			summary.Harvested++
		}
		if ctx.Err() != nil {
			break
		}
	}

	fmt.Fprintf(w, "\nHarvest summary: %d harvested, %d skipped, %d failed (total: %d)\n",
		summary.Harvested, summary.Skipped, summary.Failed, summary.Total())
	return summary, outcomes
}

// HarvestBucket collects all retrievable records for one bucket. It skips
// the bucket entirely when its final output file exists, resumes from the
// highest checkpoint otherwise, and never aborts on a single record's
// enrichment failure. The skipped return reports the already-collected
// case; err is reserved for failures that ended the bucket early.
func (s *Session) HarvestBucket(ctx context.Context, b Bucket, w io.Writer) (n int, skipped bool, err error) {
	cfg := s.Config
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxOffset := cfg.MaxOffset
	if maxOffset <= 0 {
		maxOffset = defaultMaxOffset
	}
	checkpointEvery := cfg.CheckpointEvery
	if checkpointEvery <= 0 {
		checkpointEvery = defaultCheckpointEvery
	}
	cooldown := cfg.CheckpointCooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	sleep := s.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	final := FinalPath(cfg.OutputDir, b, cfg.Suffix)
	if _, statErr := os.Stat(final); statErr == nil {
		fmt.Fprintf(w, "skipped: %s (already collected)\n", b)
		return 0, true, nil
	}

	if err := os.MkdirAll(YearDir(cfg.OutputDir, b), 0o755); err != nil {
		return 0, false, fmt.Errorf("creating year directory: %w", err)
	}

	offset, records, err := Resume(cfg.OutputDir, b, cfg.Suffix)
	if err != nil {
		return 0, false, err
	}
	if offset > 0 {
		fmt.Fprintf(w, "resuming %s from checkpoint: %d records\n", b, offset)
	} else {
		fmt.Fprintf(w, "fetching %s\n", b)
	}
	total := offset

	query := b.Query(cfg.Subject)
	started := time.Now()

	for offset < maxOffset {
		if s.Pause != nil {
			if err := s.Pause.Wait(ctx); err != nil {
				return len(records), false, err
			}
		}

		ids, pageErr := s.Fetcher.SearchPage(ctx, query, offset, pageSize)
		if pageErr != nil {
			// Exhausted retries end the bucket's pagination without
			// failing the run; anything else is fatal for the bucket.
			if errors.Is(pageErr, scopus.ErrExhausted) {
				fmt.Fprintf(w, "  page at offset %d gave up: %v\n", offset, pageErr)
				break
			}
			return len(records), false, pageErr
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			rec, recErr := s.Fetcher.FetchRecord(ctx, id)
			if recErr != nil {
				fmt.Fprintf(w, "  skipping %s: %v\n", id, recErr)
				continue
			}
			if rec.CitedByCount > 0 {
				cits, citErr := s.Fetcher.FetchCitations(ctx, id, pageSize)
				if citErr != nil {
					fmt.Fprintf(w, "  citations for %s failed: %v\n", id, citErr)
				} else {
					rec.Citations = cits
				}
			}
			records = append(records, *rec)
			total++

			if total%checkpointEvery == 0 {
				cpPath := CheckpointPath(cfg.OutputDir, b, total, cfg.Suffix)
				if cpErr := WriteSnapshot(cpPath, records); cpErr != nil {
					return len(records), false, cpErr
				}
				fmt.Fprintf(w, "  checkpoint: %d records\n", total)
				sleep(cooldown)
			}
		}
		offset += pageSize
	}

	if err := WriteSnapshot(final, records); err != nil {
		return len(records), false, err
	}
	if err := WriteManifest(cfg.OutputDir, b, cfg.Suffix, len(records), time.Since(started)); err != nil {
		fmt.Fprintf(w, "  warning: manifest write failed: %v\n", err)
	}
	fmt.Fprintf(w, "saved %s: %d records\n", b, len(records))
	return len(records), false, nil
}

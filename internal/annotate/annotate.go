// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package annotate streams harvested JSON corpora through the detector
// and writes annotated copies. The streaming pass decodes the record
// array item by item, so memory stays constant in the array length; the
// merge pass reloads the document whole to preserve every field, patches
// only the newly scored records, and writes the result to a new path. The
// source file is never modified.
package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/corpus-collector/internal/detector"
	"github.com/pdiddy/corpus-collector/pkg/types"
)

// Annotation holds the computed fields for one record, keyed by its
// identifier for the merge pass.
type Annotation struct {
	ScopusID           string
	Score              float64
	AccuracyPrediction int
	FPRPrediction      int
}

// StreamSummary tallies per-record outcomes from one streaming pass.
type StreamSummary struct {
	Scored          int
	SkippedExisting int
	SkippedEmpty    int
	Failed          int
}

// ScoreStream decodes a JSON record array from r incrementally, scoring
// each record that lacks a score and has scorable text. A scoring failure
// is reported with the record's identifier and the stream continues.
func ScoreStream(ctx context.Context, r io.Reader, scorer detector.Scorer, cfg types.AnnotateConfig, w io.Writer) ([]Annotation, StreamSummary, error) {
	var (
		annotations []Annotation
		summary     StreamSummary
	)

	dec := json.NewDecoder(r)
	if _, err := dec.Token(); err != nil {
		return nil, summary, fmt.Errorf("reading array start: %w", err)
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return annotations, summary, err
		}

		var rec types.Record
		if err := dec.Decode(&rec); err != nil {
			return annotations, summary, fmt.Errorf("decoding record: %w", err)
		}

		if rec.HasScore() {
			summary.SkippedExisting++
			continue
		}
		if !rec.Scorable() {
			summary.SkippedEmpty++
			continue
		}

		score, err := scorer.ComputeScore(ctx, rec.Abstract)
		if err != nil {
			fmt.Fprintf(w, "  scoring %s failed: %v\n", rec.ScopusID, err)
			summary.Failed++
			continue
		}

		annotations = append(annotations, Annotation{
			ScopusID:           rec.ScopusID,
			Score:              score,
			AccuracyPrediction: detector.Prediction(score, cfg.AccuracyThreshold),
			FPRPrediction:      detector.Prediction(score, cfg.FPRThreshold),
		})
		summary.Scored++
	}

	if _, err := dec.Token(); err != nil {
		return annotations, summary, fmt.Errorf("reading array end: %w", err)
	}
	return annotations, summary, nil
}

// Merge patches the computed fields into the full document. Records whose
// identifier is absent from annotations keep every field untouched; the
// generic map representation preserves fields outside the record schema.
// It returns the number of records patched.
func Merge(doc []map[string]any, annotations []Annotation) int {
	byID := make(map[string]Annotation, len(annotations))
	for _, a := range annotations {
		byID[a.ScopusID] = a
	}

	patched := 0
	for _, rec := range doc {
		id, _ := rec["Scopus_ID"].(string)
		a, ok := byID[id]
		if !ok {
			continue
		}
		rec["Score"] = a.Score
		rec["Accuracy_Prediction"] = a.AccuracyPrediction
		rec["FPR_Prediction"] = a.FPRPrediction
		patched++
	}
	return patched
}

// ProcessFile annotates one corpus file, writing the merged document to
// outputPath. It returns the number of records scored; when that is zero
// the error is nil and nothing is written.
func ProcessFile(ctx context.Context, scorer detector.Scorer, cfg types.AnnotateConfig, inputPath, outputPath string, w io.Writer) (int, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", inputPath, err)
	}
	annotations, summary, streamErr := ScoreStream(ctx, f, scorer, cfg, w)
	f.Close()
	if streamErr != nil {
		return 0, streamErr
	}

	fmt.Fprintf(w, "  scored %d, existing %d, empty %d, failed %d\n",
		summary.Scored, summary.SkippedExisting, summary.SkippedEmpty, summary.Failed)

	if len(annotations) == 0 {
		fmt.Fprintf(w, "  no new records scored; nothing written\n")
		return 0, nil
	}

	// Reload the whole document: the streaming pass cannot be reused
	// here because fields outside the record schema must survive.
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return 0, fmt.Errorf("reloading %s: %w", inputPath, err)
	}
	var doc []map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", inputPath, err)
	}

	patched := Merge(doc, annotations)
	fmt.Fprintf(w, "  merged %d records\n", patched)

	if err := writeDocument(outputPath, doc); err != nil {
		return 0, err
	}
	return summary.Scored, nil
}

// writeDocument serializes doc as indented JSON to path via a temporary
// file and rename, creating the destination directory first. Non-ASCII
// text is written as-is.
func writeDocument(path string, doc []map[string]any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".annotate-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	enc := json.NewEncoder(tmpFile)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	encErr := enc.Encode(doc)
	closeErr := tmpFile.Close()
	if encErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing document: %w", encErr)
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

// FileOutcome reports one file's result for ledger recording. Scored is
// the number of records newly scored; zero with a nil Err means the file
// needed no work.
type FileOutcome struct {
	Path   string
	Scored int
	Err    error
}

// BatchSummary tallies file outcomes across one annotation run.
type BatchSummary struct {
	Processed int
	Unchanged int
	Failed    int
}

// Total returns the number of files handled.
func (s BatchSummary) Total() int {
	return s.Processed + s.Unchanged + s.Failed
}

// ProcessBatch annotates each file in rels, reading from inputDir and
// writing to cfg.OutputDir under the same relative path. It continues
// after per-file failures, including missing inputs.
func ProcessBatch(ctx context.Context, scorer detector.Scorer, cfg types.AnnotateConfig, inputDir string, rels []string, w io.Writer) (BatchSummary, []FileOutcome) {
	var summary BatchSummary
	outcomes := make([]FileOutcome, 0, len(rels))

	for _, rel := range rels {
		inputPath := filepath.Join(inputDir, rel)
		outputPath := filepath.Join(cfg.OutputDir, rel)
		fmt.Fprintf(w, "processing %s\n", rel)

		scored, err := ProcessFile(ctx, scorer, cfg, inputPath, outputPath, w)
		outcomes = append(outcomes, FileOutcome{Path: rel, Scored: scored, Err: err})
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed:  %s (%v)\n", rel, err)
			summary.Failed++
		case scored > 0:
			summary.Processed++
		default:
			summary.Unchanged++
		}
		if ctx.Err() != nil {
			break
		}
	}

	fmt.Fprintf(w, "\nAnnotation summary: %d processed, %d unchanged, %d failed (total: %d)\n",
		summary.Processed, summary.Unchanged, summary.Failed, summary.Total())
	return summary, outcomes
}

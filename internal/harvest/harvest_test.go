// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/corpus-collector/internal/scopus"
	"github.com/pdiddy/corpus-collector/pkg/types"
)

// fakeFetcher serves canned pages and records, counting calls.
type fakeFetcher struct {
	pages       [][]string // pages[i] answers the search at offset i*pageSize
	searchCalls int
	recordCalls int
	citeCalls   int

	searchErr  error // returned for every SearchPage call when set
	failIDs    map[string]bool
	citedBy    map[string]int
	citeErrIDs map[string]bool
}

func (f *fakeFetcher) SearchPage(_ context.Context, _ string, offset, count int) ([]string, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	page := offset / count
	if page >= len(f.pages) {
		return nil, nil
	}
	return f.pages[page], nil
}

func (f *fakeFetcher) FetchRecord(_ context.Context, id string) (*types.Record, error) {
	f.recordCalls++
	if f.failIDs[id] {
		return nil, fmt.Errorf("record %s unavailable", id)
	}
	return &types.Record{
		ScopusID:     id,
		Title:        "Title " + id,
		Abstract:     "Abstract " + id,
		Authors:      []string{"Doe J."},
		CitedByCount: f.citedBy[id],
		Citations:    []types.Citation{},
	}, nil
}

func (f *fakeFetcher) FetchCitations(_ context.Context, id string, _ int) ([]types.Citation, error) {
	f.citeCalls++
	if f.citeErrIDs[id] {
		return nil, fmt.Errorf("citations for %s unavailable", id)
	}
	return []types.Citation{{CitingArticleScopusID: "c-" + id}}, nil
}

func testSession(f *fakeFetcher, dir string) *Session {
	return &Session{
		Fetcher: f,
		Config: types.HarvestConfig{
			Subject:            "COMP",
			Suffix:             "comp",
			OutputDir:          dir,
			PageSize:           2,
			MaxOffset:          10,
			CheckpointEvery:    3,
			CheckpointCooldown: time.Millisecond,
		},
		Sleep: func(time.Duration) {},
	}
}

func TestHarvestBucket_Fresh(t *testing.T) {
	f := &fakeFetcher{
		pages:   [][]string{{"a1", "a2"}, {"a3"}},
		citedBy: map[string]int{"a2": 4},
	}
	dir := t.TempDir()
	s := testSession(f, dir)
	b := Bucket{Year: 2023, Month: time.May}

	var out bytes.Buffer
	n, skipped, err := s.HarvestBucket(context.Background(), b, &out)
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, f.recordCalls)
	// Only the record with citations triggers a citation fetch.
	assert.Equal(t, 1, f.citeCalls)

	_, records, err := loadFinal(dir, b, "comp")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a1", records[0].ScopusID)
	require.Len(t, records[1].Citations, 1)
	assert.Equal(t, "c-a2", records[1].Citations[0].CitingArticleScopusID)

	m, err := ReadManifest(dir, b, "comp")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Records)
	assert.Equal(t, "MAY", m.Bucket)
}

func TestHarvestBucket_SkipsCollectedBucket(t *testing.T) {
	f := &fakeFetcher{pages: [][]string{{"a1"}}}
	dir := t.TempDir()
	s := testSession(f, dir)
	b := Bucket{Year: 2023, Month: time.May}

	require.NoError(t, os.MkdirAll(YearDir(dir, b), 0o755))
	require.NoError(t, WriteSnapshot(FinalPath(dir, b, "comp"), makeRecords(2)))

	var out bytes.Buffer
	n, skipped, err := s.HarvestBucket(context.Background(), b, &out)
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Zero(t, n)
	// An already-collected bucket makes no upstream calls at all.
	assert.Zero(t, f.searchCalls)
	assert.Zero(t, f.recordCalls)
}

func TestHarvestBucket_ResumesFromCheckpoint(t *testing.T) {
	f := &fakeFetcher{pages: [][]string{{"a1", "a2"}, {"a3", "a4"}, {"a5"}}}
	dir := t.TempDir()
	s := testSession(f, dir)
	b := Bucket{Year: 2023, Month: time.May}

	require.NoError(t, os.MkdirAll(YearDir(dir, b), 0o755))
	require.NoError(t, WriteSnapshot(CheckpointPath(dir, b, 4, "comp"), makeRecords(4)))

	var out bytes.Buffer
	n, skipped, err := s.HarvestBucket(context.Background(), b, &out)
	require.NoError(t, err)
	assert.False(t, skipped)

	// Pagination restarts at the checkpoint offset: pages 0 and 1 are
	// never re-fetched.
	assert.Equal(t, 4+1, n)
	assert.Equal(t, 1, f.recordCalls)
	assert.Contains(t, out.String(), "resuming MAY 2023 from checkpoint: 4 records")

	_, records, err := loadFinal(dir, b, "comp")
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestHarvestBucket_RetryExhaustionEndsPagination(t *testing.T) {
	f := &fakeFetcher{
		searchErr: fmt.Errorf("%w after 4 attempts", scopus.ErrExhausted),
	}
	dir := t.TempDir()
	s := testSession(f, dir)
	b := Bucket{Year: 2023, Month: time.May}

	var out bytes.Buffer
	n, skipped, err := s.HarvestBucket(context.Background(), b, &out)
	// Giving up on a page finishes the bucket with what was collected.
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Zero(t, n)

	_, err = os.Stat(FinalPath(dir, b, "comp"))
	assert.NoError(t, err)
}

func TestHarvestBucket_FatalSearchErrorFailsBucket(t *testing.T) {
	f := &fakeFetcher{searchErr: fmt.Errorf("HTTP 401")}
	dir := t.TempDir()
	s := testSession(f, dir)
	b := Bucket{Year: 2023, Month: time.May}

	var out bytes.Buffer
	_, _, err := s.HarvestBucket(context.Background(), b, &out)
	require.Error(t, err)

	// No final file: the bucket can be retried from scratch.
	_, statErr := os.Stat(FinalPath(dir, b, "comp"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestHarvestBucket_RecordFailureSkipsRecordOnly(t *testing.T) {
	f := &fakeFetcher{
		pages:   [][]string{{"a1", "a2"}},
		failIDs: map[string]bool{"a1": true},
	}
	dir := t.TempDir()
	s := testSession(f, dir)
	b := Bucket{Year: 2023, Month: time.May}

	var out bytes.Buffer
	n, _, err := s.HarvestBucket(context.Background(), b, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out.String(), "skipping a1")
}

func TestHarvestBucket_CitationFailureKeepsRecord(t *testing.T) {
	f := &fakeFetcher{
		pages:      [][]string{{"a1"}},
		citedBy:    map[string]int{"a1": 2},
		citeErrIDs: map[string]bool{"a1": true},
	}
	dir := t.TempDir()
	s := testSession(f, dir)
	b := Bucket{Year: 2023, Month: time.May}

	var out bytes.Buffer
	n, _, err := s.HarvestBucket(context.Background(), b, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, records, err := loadFinal(dir, b, "comp")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Citations)
}

func TestHarvestBucket_WritesCheckpoints(t *testing.T) {
	f := &fakeFetcher{pages: [][]string{{"a1", "a2"}, {"a3", "a4"}}}
	dir := t.TempDir()
	s := testSession(f, dir)
	b := Bucket{Year: 2023, Month: time.May}

	var out bytes.Buffer
	n, _, err := s.HarvestBucket(context.Background(), b, &out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// CheckpointEvery is 3: exactly one snapshot lands before the final file.
	_, err = os.Stat(CheckpointPath(dir, b, 3, "comp"))
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "checkpoint: 3 records")
}

func TestRun_ContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	b1 := Bucket{Year: 2023, Month: time.May}
	b2 := Bucket{Year: 2023, Month: time.June}
	b3 := Bucket{Year: 2023, Month: time.July}

	// b2 is pre-collected; the fetcher fails b1's search fatally but
	// serves b3 fine. The fake returns its pages for whichever bucket
	// queries it, so order matters: fail first, then succeed.
	require.NoError(t, os.MkdirAll(YearDir(dir, b2), 0o755))
	require.NoError(t, WriteSnapshot(FinalPath(dir, b2, "comp"), makeRecords(1)))

	calls := 0
	f := &fakeFetcher{pages: [][]string{{"a1"}}}
	s := testSession(f, dir)
	s.Fetcher = fetcherFunc{
		search: func(ctx context.Context, q string, offset, count int) ([]string, error) {
			calls++
			if calls == 1 {
				return nil, fmt.Errorf("HTTP 500")
			}
			return f.SearchPage(ctx, q, offset, count)
		},
		record: f.FetchRecord,
		cites:  f.FetchCitations,
	}

	var out bytes.Buffer
	summary, outcomes := s.Run(context.Background(), []Bucket{b1, b2, b3}, &out)

	assert.Equal(t, Summary{Harvested: 1, Skipped: 1, Failed: 1}, summary)
	assert.Equal(t, 3, summary.Total())

	require.Len(t, outcomes, 3)
	assert.Error(t, outcomes[0].Err)
	assert.True(t, outcomes[1].Skipped)
	assert.NoError(t, outcomes[2].Err)
	assert.Equal(t, 1, outcomes[2].Records)
}

// fetcherFunc adapts closures to the Fetcher interface.
type fetcherFunc struct {
	search func(context.Context, string, int, int) ([]string, error)
	record func(context.Context, string) (*types.Record, error)
	cites  func(context.Context, string, int) ([]types.Citation, error)
}

func (f fetcherFunc) SearchPage(ctx context.Context, q string, offset, count int) ([]string, error) {
	return f.search(ctx, q, offset, count)
}

func (f fetcherFunc) FetchRecord(ctx context.Context, id string) (*types.Record, error) {
	return f.record(ctx, id)
}

func (f fetcherFunc) FetchCitations(ctx context.Context, id string, count int) ([]types.Citation, error) {
	return f.cites(ctx, id, count)
}

// loadFinal reads a bucket's final output file back from disk.
func loadFinal(dir string, b Bucket, suffix string) (string, []types.Record, error) {
	path := FinalPath(dir, b, suffix)
	data, err := os.ReadFile(path)
	if err != nil {
		return path, nil, err
	}
	var records []types.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return path, nil, err
	}
	return path, records, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/corpus-collector/pkg/types"
)

func makeRecords(n int) []types.Record {
	records := make([]types.Record, n)
	for i := range records {
		records[i] = types.Record{
			ScopusID:  "8510000000" + string(rune('0'+i%10)),
			Title:     "Title",
			Abstract:  "Abstract",
			Authors:   []string{"Doe J."},
			Citations: []types.Citation{},
		}
	}
	return records
}

func TestPaths(t *testing.T) {
	b := Bucket{Year: 2023, Month: time.May}
	assert.Equal(t, filepath.Join("out", "2023"), YearDir("out", b))
	assert.Equal(t, filepath.Join("out", "2023", "MAY_comp.json"), FinalPath("out", b, "comp"))
	assert.Equal(t, filepath.Join("out", "2023", "MAY_500_comp.json"), CheckpointPath("out", b, 500, "comp"))
}

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.json")
	records := makeRecords(3)

	require.NoError(t, WriteSnapshot(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Indented output, no HTML escaping.
	assert.Contains(t, string(data), "    \"Scopus_ID\"")
	assert.NotContains(t, string(data), "\\u003c")

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".harvest-"), "leftover temp file %s", e.Name())
	}
}

func TestResume_NoCheckpoint(t *testing.T) {
	dir := t.TempDir()
	b := Bucket{Year: 2023, Month: time.May}
	require.NoError(t, os.MkdirAll(YearDir(dir, b), 0o755))

	offset, records, err := Resume(dir, b, "comp")
	require.NoError(t, err)
	assert.Zero(t, offset)
	assert.Nil(t, records)
}

func TestResume_PicksHighestCheckpoint(t *testing.T) {
	dir := t.TempDir()
	b := Bucket{Year: 2023, Month: time.May}
	require.NoError(t, os.MkdirAll(YearDir(dir, b), 0o755))

	require.NoError(t, WriteSnapshot(CheckpointPath(dir, b, 500, "comp"), makeRecords(500)))
	require.NoError(t, WriteSnapshot(CheckpointPath(dir, b, 1000, "comp"), makeRecords(1000)))

	offset, records, err := Resume(dir, b, "comp")
	require.NoError(t, err)
	assert.Equal(t, 1000, offset)
	assert.Len(t, records, 1000)
}

func TestResume_IgnoresOtherBucketsAndSuffixes(t *testing.T) {
	dir := t.TempDir()
	b := Bucket{Year: 2023, Month: time.May}
	other := Bucket{Year: 2023, Month: time.June}
	require.NoError(t, os.MkdirAll(YearDir(dir, b), 0o755))

	require.NoError(t, WriteSnapshot(CheckpointPath(dir, other, 1500, "comp"), makeRecords(2)))
	require.NoError(t, WriteSnapshot(CheckpointPath(dir, b, 2000, "chem"), makeRecords(2)))
	require.NoError(t, WriteSnapshot(CheckpointPath(dir, b, 500, "comp"), makeRecords(500)))

	offset, records, err := Resume(dir, b, "comp")
	require.NoError(t, err)
	assert.Equal(t, 500, offset)
	assert.Len(t, records, 500)
}

func TestCheckpointCount(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		want   int
		wantOK bool
	}{
		{"checkpoint", "MAY_500_comp.json", 500, true},
		{"final file has no count", "MAY_comp.json", 0, false},
		{"wrong suffix", "MAY_500_chem.json", 0, false},
		{"wrong month", "JUNE_500_comp.json", 0, false},
		{"garbage count", "MAY_abc_comp.json", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := checkpointCount(tt.file, "MAY", "comp")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

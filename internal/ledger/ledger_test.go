// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "ledger.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestTally(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, StageHarvest, "MAY 2023", StatusOK, 1200))
	require.NoError(t, s.Record(ctx, StageHarvest, "JUNE 2023", StatusOK, 800))
	require.NoError(t, s.Record(ctx, StageHarvest, "JULY 2023", StatusSkipped, 0))
	require.NoError(t, s.Record(ctx, StageHarvest, "AUGUST 2023", StatusFailed, 0))
	require.NoError(t, s.Record(ctx, StageAnnotate, "2023/MAY_comp.json", StatusOK, 950))

	harvest, err := s.Tally(ctx, StageHarvest)
	require.NoError(t, err)
	assert.Equal(t, Tally{OK: 2, Skipped: 1, Failed: 1, Records: 2000}, harvest)

	annotate, err := s.Tally(ctx, StageAnnotate)
	require.NoError(t, err)
	assert.Equal(t, Tally{OK: 1, Records: 950}, annotate)
}

func TestTally_EmptyStage(t *testing.T) {
	s := openTestStore(t)

	tally, err := s.Tally(context.Background(), StageAnnotate)
	require.NoError(t, err)
	assert.Equal(t, Tally{}, tally)
}

func TestRecord_AccumulatesAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Record(ctx, StageHarvest, "MAY 2023", StatusOK, 100))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Record(ctx, StageHarvest, "JUNE 2023", StatusOK, 50))

	tally, err := s2.Tally(ctx, StageHarvest)
	require.NoError(t, err)
	assert.Equal(t, Tally{OK: 2, Records: 150}, tally)
}

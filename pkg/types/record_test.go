// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordHasScore(t *testing.T) {
	var r Record
	assert.False(t, r.HasScore())

	zero := 0.0
	r.Score = &zero
	// A zero score is still a score: the annotator must not redo it.
	assert.True(t, r.HasScore())
}

func TestRecordScorable(t *testing.T) {
	tests := []struct {
		name     string
		abstract string
		want     bool
	}{
		{"real abstract", "We study things.", true},
		{"empty", "", false},
		{"not available sentinel", NotAvailable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{Abstract: tt.abstract}
			assert.Equal(t, tt.want, r.Scorable())
		})
	}
}

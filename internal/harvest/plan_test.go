// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucketName(t *testing.T) {
	b := Bucket{Year: 2023, Month: time.May}
	assert.Equal(t, "MAY", b.Name())
	assert.Equal(t, "MAY 2023", b.String())
}

func TestBucketQuery(t *testing.T) {
	b := Bucket{Year: 2024, Month: time.January}
	assert.Equal(t, "SUBJAREA(COMP) AND PUBDATETXT(January+2024)", b.Query("COMP"))
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want []Bucket
	}{
		{
			name: "single month",
			from: "2023-05", to: "2023-05",
			want: []Bucket{{2023, time.May}},
		},
		{
			name: "within one year",
			from: "2023-11", to: "2024-02",
			want: []Bucket{{2023, time.November}, {2023, time.December}, {2024, time.January}, {2024, time.February}},
		},
		{
			name: "reversed range is empty",
			from: "2024-01", to: "2023-12",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, err := time.Parse("2006-01", tt.from)
			assert.NoError(t, err)
			to, err := time.Parse("2006-01", tt.to)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, Plan(from, to))
		})
	}
}

func TestPlan_FullYear(t *testing.T) {
	from, _ := time.Parse("2006-01", "2023-01")
	to, _ := time.Parse("2006-01", "2023-12")
	buckets := Plan(from, to)
	assert.Len(t, buckets, 12)
	assert.Equal(t, Bucket{2023, time.January}, buckets[0])
	assert.Equal(t, Bucket{2023, time.December}, buckets[11])
}

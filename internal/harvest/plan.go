// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"strings"
	"time"
)

// Bucket is one time-partitioned unit of harvest work: a calendar month
// of one year.
type Bucket struct {
	Year  int
	Month time.Month
}

// Name returns the upper-case month name used in bucket filenames
// (e.g. "JANUARY").
func (b Bucket) Name() string {
	return strings.ToUpper(b.Month.String())
}

// String formats the bucket for log lines.
func (b Bucket) String() string {
	return fmt.Sprintf("%s %d", b.Name(), b.Year)
}

// Query builds the search query for the bucket, scoped to a subject area
// (e.g. "SUBJAREA(COMP) AND PUBDATETXT(January+2023)").
func (b Bucket) Query(subject string) string {
	return fmt.Sprintf("SUBJAREA(%s) AND PUBDATETXT(%s+%d)", subject, b.Month.String(), b.Year)
}

// Plan enumerates the monthly buckets from the month of from through the
// month of to, inclusive. An empty plan results when to precedes from.
func Plan(from, to time.Time) []Bucket {
	var buckets []Bucket
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		buckets = append(buckets, Bucket{Year: cur.Year(), Month: cur.Month()})
		cur = cur.AddDate(0, 1, 0)
	}
	return buckets
}

package report

import (
	"fmt"

	"expenses/internal/core"
)

// Bucket is an inclusive date range in a trend.
type Bucket struct {
	Label string
	Start core.Date
	End   core.Date
}

// BucketStrategy enumerates n consecutive buckets, oldest first, the last one
// containing today.
type BucketStrategy func(today core.Date, n int) []Bucket

// MonthBuckets enumerates calendar months labelled "2006-01".
func MonthBuckets(today core.Date, n int) []Bucket {
	if n <= 0 {
		return nil
	}
	current := today.StartOfMonth()
	buckets := make([]Bucket, 0, n)
	for i := n - 1; i >= 0; i-- {
		start := core.AddMonthsClamped(current, -i)
		buckets = append(buckets, Bucket{
			Label: start.Format("2006-01"),
			Start: start,
			End:   start.EndOfMonth(),
		})
	}
	return buckets
}

// WeekBuckets enumerates ISO weeks (Monday to Sunday) labelled "Week 1".."Week n".
func WeekBuckets(today core.Date, n int) []Bucket {
	if n <= 0 {
		return nil
	}
	current := today.StartOfWeek()
	buckets := make([]Bucket, 0, n)
	for i := n - 1; i >= 0; i-- {
		start := current.AddDays(-7 * i)
		buckets = append(buckets, Bucket{
			Label: fmt.Sprintf("Week %d", n-i),
			Start: start,
			End:   start.AddDays(6),
		})
	}
	return buckets
}

// bucketKey maps an expense to the index of the bucket containing its date.
func bucketKey(buckets []Bucket) KeyFunc[int] {
	return func(e core.ExpenseRecord) (int, bool) {
		for i, b := range buckets {
			if e.Date.InRange(b.Start, b.End) {
				return i, true
			}
		}
		return 0, false
	}
}

package report

import "expenses/internal/core"

// PeriodTotal is one zero-filled point of a trend.
type PeriodTotal struct {
	Label string
	Start core.Date
	End   core.Date
	Total core.Money
	Count int
}

// Trend totals expenses per bucket. Every bucket is present in the result.
func Trend(expenses []core.ExpenseRecord, buckets []Bucket) []PeriodTotal {
	seed := make([]int, len(buckets))
	for i := range buckets {
		seed[i] = i
	}
	groups := Aggregate(expenses, bucketKey(buckets), seed...)

	out := make([]PeriodTotal, len(buckets))
	for _, g := range groups {
		b := buckets[g.Key]
		out[g.Key] = PeriodTotal{
			Label: b.Label,
			Start: b.Start,
			End:   b.End,
			Total: g.Total,
			Count: g.Count,
		}
	}
	return out
}

// TrendOf covers the n periods enumerated by strategy, ending with the one
// that contains today.
func TrendOf(expenses []core.ExpenseRecord, strategy BucketStrategy, today core.Date, n int) []PeriodTotal {
	return Trend(expenses, strategy(today, n))
}

// MonthlyTrend covers the n calendar months ending with today's month.
func MonthlyTrend(expenses []core.ExpenseRecord, today core.Date, months int) []PeriodTotal {
	return TrendOf(expenses, MonthBuckets, today, months)
}

// WeeklyTrend covers the n ISO weeks ending with today's week.
func WeeklyTrend(expenses []core.ExpenseRecord, today core.Date, weeks int) []PeriodTotal {
	return TrendOf(expenses, WeekBuckets, today, weeks)
}

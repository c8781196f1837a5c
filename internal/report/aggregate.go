// Package report groups expenses into totals: by time bucket for trends and
// by category or payment method for breakdowns. All functions are pure.
package report

import "expenses/internal/core"

// KeyFunc extracts the grouping key of an expense. Returning false drops the
// expense from the aggregation.
type KeyFunc[K comparable] func(core.ExpenseRecord) (K, bool)

// Group is the running total of one key.
type Group[K comparable] struct {
	Key   K
	Total core.Money
	Count int
}

// Aggregate sums expenses per key. Seeded keys come first, in seed order, and
// are present even when nothing maps to them; other keys follow in the order
// they were first encountered.
func Aggregate[K comparable](expenses []core.ExpenseRecord, key KeyFunc[K], seed ...K) []Group[K] {
	groups := make([]Group[K], 0, len(seed))
	index := make(map[K]int, len(seed))
	for _, k := range seed {
		if _, dup := index[k]; dup {
			continue
		}
		index[k] = len(groups)
		groups = append(groups, Group[K]{Key: k})
	}

	for _, e := range expenses {
		k, ok := key(e)
		if !ok {
			continue
		}
		i, seen := index[k]
		if !seen {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K]{Key: k})
		}
		groups[i].Total = groups[i].Total.Add(e.Amount)
		groups[i].Count++
	}
	return groups
}

// InRange keeps only expenses dated within [start, end]. A zero bound is open.
func InRange(expenses []core.ExpenseRecord, start, end core.Date) []core.ExpenseRecord {
	out := make([]core.ExpenseRecord, 0, len(expenses))
	for _, e := range expenses {
		if !start.IsEmpty() && e.Date.Before(start.Time) {
			continue
		}
		if !end.IsEmpty() && e.Date.After(end.Time) {
			continue
		}
		out = append(out, e)
	}
	return out
}

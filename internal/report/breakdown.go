package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Share is a group with its percentage of the grand total.
type Share[K comparable] struct {
	Key        K
	Amount     core.Money
	Count      int
	Percentage float64 // four decimal places, half-up
}

// Breakdown groups the expenses dated within [start, end] by key and orders
// the groups by amount, largest first. Ties keep first-encountered order.
// The grand total covers only expenses that have a key.
func Breakdown[K comparable](expenses []core.ExpenseRecord, start, end core.Date, key KeyFunc[K]) []Share[K] {
	groups := Aggregate(InRange(expenses, start, end), key)

	var grand core.Money
	for _, g := range groups {
		grand = grand.Add(g.Total)
	}

	shares := make([]Share[K], len(groups))
	for i, g := range groups {
		shares[i] = Share[K]{
			Key:        g.Key,
			Amount:     g.Total,
			Count:      g.Count,
			Percentage: percentage(g.Total, grand),
		}
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Amount.Cents > shares[j].Amount.Cents
	})
	return shares
}

func percentage(part, whole core.Money) float64 {
	if whole.Cents <= 0 {
		return 0
	}
	return decimal.NewFromInt(part.Cents).Mul(hundred).DivRound(decimal.NewFromInt(whole.Cents), 4).InexactFloat64()
}

// ByCategory keys categorized expenses by category id.
func ByCategory(e core.ExpenseRecord) (int64, bool) {
	return e.CategoryID, e.CategoryID != 0
}

// ByPaymentMethod keys expenses that record a payment method.
func ByPaymentMethod(e core.ExpenseRecord) (core.PaymentMethod, bool) {
	return e.PaymentMethod, e.PaymentMethod != ""
}

func CategoryBreakdown(expenses []core.ExpenseRecord, start, end core.Date) []Share[int64] {
	return Breakdown(expenses, start, end, ByCategory)
}

func PaymentMethodBreakdown(expenses []core.ExpenseRecord, start, end core.Date) []Share[core.PaymentMethod] {
	return Breakdown(expenses, start, end, ByPaymentMethod)
}

// Package budget computes budget spend status and classifies it into alerts.
// Everything here is pure: callers pass already-fetched records and get
// values back, so the functions are safe for any number of concurrent callers.
package budget

import (
	"github.com/shopspring/decimal"

	"expenses/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Status is the derived spend state of one budget.
type Status struct {
	Budget          core.BudgetRecord
	TotalExpenses   core.Money
	RemainingAmount core.Money
	PercentageUsed  decimal.Decimal // two decimal places, half-up
	IsOverBudget    bool
}

// ComputeStatus sums the expenses that fall inside the budget period and
// category scope. A zero budget reports 0% used, yet any positive spend still
// puts it over budget.
func ComputeStatus(b core.BudgetRecord, expenses []core.ExpenseRecord) Status {
	var total core.Money
	for _, e := range expenses {
		if b.Applies(e) {
			total = total.Add(e.Amount)
		}
	}

	remaining := b.Amount.Sub(total)
	return Status{
		Budget:          b,
		TotalExpenses:   total,
		RemainingAmount: remaining,
		PercentageUsed:  Percentage(total, b.Amount),
		IsOverBudget:    remaining.IsNegative(),
	}
}

// Percentage returns part/whole*100 rounded half-up to two places, or zero
// when whole is not positive.
func Percentage(part, whole core.Money) decimal.Decimal {
	if whole.Cents <= 0 {
		return decimal.Zero.Round(2)
	}
	return decimal.NewFromInt(part.Cents).Mul(hundred).DivRound(decimal.NewFromInt(whole.Cents), 2)
}

package core

// PeriodFor returns the inclusive period of the given budget type containing ref.
// Custom budgets carry explicit bounds, so they have no derived period.
func PeriodFor(bt BudgetType, ref Date) (Date, Date, error) {
	if err := ref.Validate(); err != nil {
		return Date{}, Date{}, invalid("period_start", err)
	}
	switch bt {
	case BudgetDaily:
		return ref, ref, nil
	case BudgetWeekly:
		start := ref.StartOfWeek()
		return start, start.AddDays(6), nil
	case BudgetMonthly:
		return ref.StartOfMonth(), ref.EndOfMonth(), nil
	case BudgetQuarterly:
		firstMonth := ((ref.Month()-1)/3)*3 + 1
		start := NewDate(ref.Year(), firstMonth, 1)
		return start, AddMonthsClamped(start, 2).EndOfMonth(), nil
	case BudgetYearly:
		return NewDate(ref.Year(), 1, 1), NewDate(ref.Year(), 12, 31), nil
	case BudgetCustom:
		return Date{}, Date{}, invalid("period", ErrInvalidPeriod)
	default:
		return Date{}, Date{}, invalid("budget_type", ErrInvalidBudgetType)
	}
}

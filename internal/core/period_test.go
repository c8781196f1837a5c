package core

import (
	"errors"
	"testing"
)

func TestPeriodFor(t *testing.T) {
	ref := NewDate(2024, 5, 15) // Wednesday
	tests := []struct {
		bt         BudgetType
		start, end Date
	}{
		{BudgetDaily, ref, ref},
		{BudgetWeekly, NewDate(2024, 5, 13), NewDate(2024, 5, 19)},
		{BudgetMonthly, NewDate(2024, 5, 1), NewDate(2024, 5, 31)},
		{BudgetQuarterly, NewDate(2024, 4, 1), NewDate(2024, 6, 30)},
		{BudgetYearly, NewDate(2024, 1, 1), NewDate(2024, 12, 31)},
	}
	for _, tt := range tests {
		start, end, err := PeriodFor(tt.bt, ref)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.bt, err)
		}
		if !start.Equal(tt.start.Time) || !end.Equal(tt.end.Time) {
			t.Fatalf("%s: got [%s, %s], want [%s, %s]", tt.bt, start, end, tt.start, tt.end)
		}
	}

	if _, _, err := PeriodFor(BudgetCustom, ref); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("custom budget should require explicit period, got %v", err)
	}
}

func TestStartOfWeek(t *testing.T) {
	cases := map[Date]Date{
		NewDate(2024, 3, 4):  NewDate(2024, 3, 4),   // Monday
		NewDate(2024, 3, 10): NewDate(2024, 3, 4),   // Sunday
		NewDate(2024, 1, 3):  NewDate(2024, 1, 1),   // Wednesday
		NewDate(2023, 1, 1):  NewDate(2022, 12, 26), // Sunday across year
	}
	for in, want := range cases {
		if got := in.StartOfWeek(); !got.Equal(want.Time) {
			t.Fatalf("StartOfWeek(%s) = %s, want %s", in, got, want)
		}
	}
}

package core

import "fmt"

// StepFunc advances a date by one recurrence interval.
type StepFunc func(Date) Date

// AddMonthsClamped adds n calendar months keeping the day of month, clamped to
// the last day of the resulting month (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClamped(d Date, n int) Date {
	first := NewDate(d.Year(), d.Month()+n, 1)
	last := first.EndOfMonth().Day()
	day := d.Day()
	if day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

func addDays(n int) StepFunc {
	return func(d Date) Date { return d.AddDays(n) }
}

func addMonths(n int) StepFunc {
	return func(d Date) Date { return AddMonthsClamped(d, n) }
}

var frequencySteps = map[RecurrenceFrequency]StepFunc{
	Daily:        addDays(1),
	Weekly:       addDays(7),
	Biweekly:     addDays(14),
	Monthly:      addMonths(1),
	Quarterly:    addMonths(3),
	SemiAnnually: addMonths(6),
	Annually:     addMonths(12),
}

// FrequencyStep returns the calendar step for a frequency.
func FrequencyStep(freq RecurrenceFrequency) (StepFunc, error) {
	step, ok := frequencySteps[freq]
	if !ok {
		return nil, fmt.Errorf("unknown recurrence frequency: %q", freq)
	}
	return step, nil
}

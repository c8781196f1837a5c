package core

import "fmt"

// AutoGeneratedMarker is appended to the notes of every materialized instance.
const AutoGeneratedMarker = "[auto-generated from recurring expense #%d]"

// BaseDate is the date the next occurrence is computed from: the last
// materialized occurrence, or the template's own date before the first one.
func (e ExpenseRecord) BaseDate() Date {
	if !e.LastRecurrenceDate.IsEmpty() {
		return e.LastRecurrenceDate
	}
	return e.Date
}

// IsDormant reports whether the recurrence ended before today.
func (e ExpenseRecord) IsDormant(today Date) bool {
	return !e.RecurrenceEndDate.IsEmpty() && today.After(e.RecurrenceEndDate.Time)
}

// NextOccurrence returns BaseDate advanced by one frequency step. A template
// without any base date has no next occurrence and yields the zero Date.
func (e ExpenseRecord) NextOccurrence() (Date, error) {
	base := e.BaseDate()
	if base.IsEmpty() {
		return Date{}, nil
	}
	step, err := FrequencyStep(e.RecurrenceFrequency)
	if err != nil {
		return Date{}, err
	}
	return step(base), nil
}

// DueOccurrence returns the occurrence to materialize for today, if any.
// At most one occurrence is returned per call even when several periods
// have elapsed since the last one.
func (e ExpenseRecord) DueOccurrence(today Date) (Date, bool, error) {
	if !e.IsRecurring || e.IsDormant(today) {
		return Date{}, false, nil
	}
	next, err := e.NextOccurrence()
	if err != nil {
		return Date{}, false, err
	}
	if next.IsEmpty() || next.After(today.Time) {
		return Date{}, false, nil
	}
	return next, true, nil
}

// Materialize builds the concrete, non-recurring instance for one occurrence.
func (e ExpenseRecord) Materialize(on Date) ExpenseRecord {
	marker := fmt.Sprintf(AutoGeneratedMarker, e.ID)
	notes := marker
	if e.Notes != "" {
		notes = e.Notes + " " + marker
	}
	return ExpenseRecord{
		UserID:           e.UserID,
		Description:      e.Description,
		Amount:           e.Amount,
		Date:             on,
		CategoryID:       e.CategoryID,
		PaymentMethod:    e.PaymentMethod,
		Notes:            notes,
		SourceTemplateID: e.ID,
	}
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"expenses/internal/core"
	"expenses/internal/ledger"
	applog "expenses/internal/log"
	"expenses/internal/report"
)

// ExpenseService validates and persists expenses and templates.
type ExpenseService struct {
	expenses   ledger.ExpenseStore
	categories ledger.CategoryStore
}

func NewExpenseService(expenses ledger.ExpenseStore, categories ledger.CategoryStore) *ExpenseService {
	return &ExpenseService{
		expenses:   expenses,
		categories: categories,
	}
}

// CreateExpense stores a new expense or recurring template. The recurrence
// marker always starts empty; only the recurring processor moves it.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	e.ID = 0
	e.LastRecurrenceDate = core.Date{}
	e.SourceTemplateID = 0
	if err := s.validate(ctx, e); err != nil {
		return core.ExpenseRecord{}, err
	}

	saved, err := s.expenses.SaveExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		applog.FieldExpenseID, saved.ID,
		applog.FieldUserID, saved.UserID,
		applog.FieldAmountCents, saved.Amount.Cents,
		"recurring", saved.IsRecurring)
	return saved, nil
}

// UpdateExpense replaces the editable fields of an existing expense. Owner and
// template link are kept from the stored record. The recurrence marker is
// never written here; a template switched off and on again resumes after its
// last occurrence.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	existing, err := s.expenses.GetExpense(ctx, e.ID)
	if err != nil {
		return core.ExpenseRecord{}, err
	}

	e.UserID = existing.UserID
	e.SourceTemplateID = existing.SourceTemplateID
	e.CreatedAt = existing.CreatedAt
	if !e.IsRecurring {
		e.RecurrenceFrequency = ""
		e.RecurrenceEndDate = core.Date{}
	}
	if err := s.validate(ctx, e); err != nil {
		return core.ExpenseRecord{}, err
	}

	saved, err := s.expenses.SaveExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return saved, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.expenses.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Expense deleted", applog.FieldExpenseID, id)
	return nil
}

// ListExpenses returns a user's expenses between start and end inclusive.
// Either bound may be zero to leave that side open.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID int64, start, end core.Date) ([]core.ExpenseRecord, error) {
	if !start.IsEmpty() && !end.IsEmpty() && end.Before(start.Time) {
		return nil, core.NewValidationError("end", core.ErrInvalidPeriod)
	}
	out, err := s.expenses.FindExpenses(ctx, ledger.ExpenseQuery{UserID: userID, Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (s *ExpenseService) RecurringTemplates(ctx context.Context, userID int64) ([]core.ExpenseRecord, error) {
	out, err := s.expenses.FindRecurringTemplates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	return out, nil
}

// MonthlySummary totals a calendar month. Uncategorized expenses count toward
// Total and Count but have no ByCategory entry.
func (s *ExpenseService) MonthlySummary(ctx context.Context, userID int64, year, month int) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, core.NewValidationError("month", core.ErrInvalidMonth)
	}
	start := core.NewDate(year, month, 1)
	expenses, err := s.ListExpenses(ctx, userID, start, start.EndOfMonth())
	if err != nil {
		return core.MonthOverview{}, err
	}

	overview := core.MonthOverview{
		Year:  year,
		Month: month,
		Total: core.Sum(expenses),
		Count: len(expenses),
	}
	for _, g := range report.Aggregate(expenses, report.ByCategory) {
		overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{CategoryID: g.Key, Amount: g.Total})
	}
	sort.SliceStable(overview.ByCategory, func(i, j int) bool {
		return overview.ByCategory[i].Amount.Cents > overview.ByCategory[j].Amount.Cents
	})
	return overview, nil
}

func (s *ExpenseService) validate(ctx context.Context, e core.ExpenseRecord) error {
	if e.UserID <= 0 {
		return core.NewValidationError("user_id", fmt.Errorf("must be positive, got %d", e.UserID))
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if e.CategoryID == 0 || s.categories == nil {
		return nil
	}
	c, err := s.categories.GetCategory(ctx, e.CategoryID)
	if err != nil {
		return err
	}
	if c.UserID != e.UserID {
		return core.NotFound("category", e.CategoryID)
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"expenses/internal/budget"
	"expenses/internal/core"
	"expenses/internal/ledger"
	applog "expenses/internal/log"
)

// statusFetchLimit bounds concurrent expense queries per Statuses call.
const statusFetchLimit = 4

// AlertPublisher hands non-NONE alerts to whatever delivers them.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, a budget.Alert) error
}

// BudgetUpdate holds the editable fields of a budget.
type BudgetUpdate struct {
	Name        string
	Amount      core.Money
	PeriodStart core.Date
	PeriodEnd   core.Date
	Active      bool
}

type BudgetService struct {
	budgets   ledger.BudgetStore
	expenses  ledger.ExpenseStore
	publisher AlertPublisher
	today     func() core.Date
}

// NewBudgetService creates a budget service. publisher may be nil.
func NewBudgetService(budgets ledger.BudgetStore, expenses ledger.ExpenseStore, publisher AlertPublisher) *BudgetService {
	return &BudgetService{
		budgets:   budgets,
		expenses:  expenses,
		publisher: publisher,
		today:     func() core.Date { return core.DateOf(time.Now()) },
	}
}

// CreateBudget stores a new active budget. For non-custom types an unset
// period is derived from the type around PeriodStart, or today when that is
// unset too.
func (s *BudgetService) CreateBudget(ctx context.Context, b core.BudgetRecord) (core.BudgetRecord, error) {
	b.ID = 0
	b.Active = true
	if b.Type == "" {
		b.Type = core.BudgetCustom
	}
	if b.UserID <= 0 {
		return core.BudgetRecord{}, core.NewValidationError("user_id", fmt.Errorf("must be positive, got %d", b.UserID))
	}
	if b.Type != core.BudgetCustom && b.PeriodEnd.IsEmpty() {
		ref := b.PeriodStart
		if ref.IsEmpty() {
			ref = s.today()
		}
		start, end, err := core.PeriodFor(b.Type, ref)
		if err != nil {
			return core.BudgetRecord{}, err
		}
		b.PeriodStart, b.PeriodEnd = start, end
	}
	if err := b.Validate(); err != nil {
		return core.BudgetRecord{}, err
	}
	if err := s.ensureNoActiveDuplicate(ctx, b); err != nil {
		return core.BudgetRecord{}, err
	}

	saved, err := s.budgets.SaveBudget(ctx, b)
	if err != nil {
		return core.BudgetRecord{}, fmt.Errorf("save budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget created",
		applog.FieldBudgetID, saved.ID,
		applog.FieldUserID, saved.UserID,
		applog.FieldCategoryID, saved.CategoryID,
		"period_start", saved.PeriodStart.String(),
		"period_end", saved.PeriodEnd.String())
	return saved, nil
}

func (s *BudgetService) UpdateBudget(ctx context.Context, id int64, u BudgetUpdate) (core.BudgetRecord, error) {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return core.BudgetRecord{}, err
	}
	b.Name = u.Name
	b.Amount = u.Amount
	b.PeriodStart = u.PeriodStart
	b.PeriodEnd = u.PeriodEnd
	b.Active = u.Active
	if err := b.Validate(); err != nil {
		return core.BudgetRecord{}, err
	}
	if b.Active {
		if err := s.ensureNoActiveDuplicate(ctx, b); err != nil {
			return core.BudgetRecord{}, err
		}
	}

	saved, err := s.budgets.SaveBudget(ctx, b)
	if err != nil {
		return core.BudgetRecord{}, fmt.Errorf("update budget %d: %w", id, err)
	}
	return saved, nil
}

func (s *BudgetService) DeleteBudget(ctx context.Context, id int64) error {
	if err := s.budgets.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	return nil
}

func (s *BudgetService) GetBudget(ctx context.Context, id int64) (core.BudgetRecord, error) {
	return s.budgets.GetBudget(ctx, id)
}

// Statuses computes the status of every active budget of a user, in the
// order the store returns the budgets.
func (s *BudgetService) Statuses(ctx context.Context, userID int64) ([]budget.Status, error) {
	budgets, err := s.budgets.FindBudgets(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("find budgets: %w", err)
	}

	statuses := make([]budget.Status, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statusFetchLimit)
	for i, b := range budgets {
		g.Go(func() error {
			expenses, err := s.expenses.FindExpenses(gctx, ledger.ExpenseQuery{
				UserID:     b.UserID,
				CategoryID: b.CategoryID,
				Start:      b.PeriodStart,
				End:        b.PeriodEnd,
			})
			if err != nil {
				return fmt.Errorf("expenses for budget %d: %w", b.ID, err)
			}
			statuses[i] = budget.ComputeStatus(b, expenses)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// BudgetsForDate returns the active budgets whose period contains d.
func (s *BudgetService) BudgetsForDate(ctx context.Context, userID int64, d core.Date) ([]core.BudgetRecord, error) {
	budgets, err := s.budgets.FindBudgets(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("find budgets: %w", err)
	}
	var out []core.BudgetRecord
	for _, b := range budgets {
		if b.Covers(d) {
			out = append(out, b)
		}
	}
	return out, nil
}

// CheckAlerts classifies every active budget of a user. Alerts above NONE are
// handed to the publisher when one is configured; a failed hand-off is
// logged and does not change the result.
func (s *BudgetService) CheckAlerts(ctx context.Context, userID int64) ([]budget.Alert, error) {
	statuses, err := s.Statuses(ctx, userID)
	if err != nil {
		return nil, err
	}
	alerts := budget.EvaluateAll(statuses)

	for _, a := range alerts {
		if a.Level == budget.AlertNone {
			continue
		}
		slog.InfoContext(ctx, "Budget alert",
			applog.FieldOperation, applog.OpAlerts,
			applog.FieldBudgetID, a.Status.Budget.ID,
			"level", a.Level,
			"percentage_used", a.Status.PercentageUsed.StringFixed(2))
		if s.publisher == nil {
			continue
		}
		if err := s.publisher.PublishBudgetAlert(ctx, a); err != nil {
			slog.ErrorContext(ctx, "Failed to publish budget alert",
				applog.FieldBudgetID, a.Status.Budget.ID,
				applog.FieldError, err)
		}
	}
	return alerts, nil
}

func (s *BudgetService) ensureNoActiveDuplicate(ctx context.Context, b core.BudgetRecord) error {
	active, err := s.budgets.FindBudgets(ctx, b.UserID, true)
	if err != nil {
		return fmt.Errorf("find budgets: %w", err)
	}
	for _, other := range active {
		if other.ID != b.ID && other.CategoryID == b.CategoryID {
			return core.NewValidationError("category_id", core.ErrActiveBudgetExists)
		}
	}
	return nil
}

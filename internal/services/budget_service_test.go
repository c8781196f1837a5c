package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"expenses/internal/budget"
	"expenses/internal/core"
	"expenses/internal/ledger/memory"
)

type mockAlertPublisher struct {
	mock.Mock
}

func (m *mockAlertPublisher) PublishBudgetAlert(ctx context.Context, a budget.Alert) error {
	return m.Called(ctx, a).Error(0)
}

func newBudgetService(store *memory.Store, pub AlertPublisher) *BudgetService {
	svc := NewBudgetService(store, store, pub)
	svc.today = func() core.Date { return core.NewDate(2024, 5, 15) }
	return svc
}

func addExpense(t *testing.T, store *memory.Store, userID, categoryID, cents int64, d core.Date) {
	t.Helper()
	_, err := store.SaveExpense(context.Background(), core.ExpenseRecord{
		UserID:      userID,
		Description: "x",
		Amount:      core.Money{Cents: cents},
		Date:        d,
		CategoryID:  categoryID,
	})
	require.NoError(t, err)
}

func TestBudgetService_CreateBudget(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newBudgetService(store, nil)

	t.Run("derives monthly period from today", func(t *testing.T) {
		b, err := svc.CreateBudget(ctx, core.BudgetRecord{UserID: 1, Amount: core.Money{Cents: 200000}, Type: core.BudgetMonthly})
		require.NoError(t, err)
		assert.True(t, b.Active)
		assert.Equal(t, "2024-05-01", b.PeriodStart.String())
		assert.Equal(t, "2024-05-31", b.PeriodEnd.String())
	})

	t.Run("derives quarter around period start", func(t *testing.T) {
		b, err := svc.CreateBudget(ctx, core.BudgetRecord{
			UserID: 1, CategoryID: 3, Amount: core.Money{Cents: 100},
			Type: core.BudgetQuarterly, PeriodStart: core.NewDate(2024, 8, 20),
		})
		require.NoError(t, err)
		assert.Equal(t, "2024-07-01", b.PeriodStart.String())
		assert.Equal(t, "2024-09-30", b.PeriodEnd.String())
	})

	t.Run("second active budget for same scope", func(t *testing.T) {
		_, err := svc.CreateBudget(ctx, core.BudgetRecord{UserID: 1, Amount: core.Money{Cents: 1}, Type: core.BudgetWeekly})
		assert.ErrorIs(t, err, core.ErrActiveBudgetExists)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := svc.CreateBudget(ctx, core.BudgetRecord{UserID: 1, CategoryID: 9, Type: core.BudgetYearly})
		assert.ErrorIs(t, err, core.ErrInvalidAmount)
	})

	t.Run("custom period end before start", func(t *testing.T) {
		_, err := svc.CreateBudget(ctx, core.BudgetRecord{
			UserID: 1, CategoryID: 9, Amount: core.Money{Cents: 1},
			PeriodStart: core.NewDate(2024, 5, 10), PeriodEnd: core.NewDate(2024, 5, 1),
		})
		assert.ErrorIs(t, err, core.ErrInvalidPeriod)
	})

	all, err := store.FindBudgets(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, all, 2, "rejected budgets must not be written")
}

func TestBudgetService_UpdateBudget(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newBudgetService(store, nil)

	first, err := svc.CreateBudget(ctx, core.BudgetRecord{UserID: 1, Amount: core.Money{Cents: 1000}, Type: core.BudgetMonthly})
	require.NoError(t, err)

	deactivated, err := svc.UpdateBudget(ctx, first.ID, BudgetUpdate{
		Name: "old", Amount: first.Amount, PeriodStart: first.PeriodStart, PeriodEnd: first.PeriodEnd,
	})
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	second, err := svc.CreateBudget(ctx, core.BudgetRecord{UserID: 1, Amount: core.Money{Cents: 2000}, Type: core.BudgetMonthly})
	require.NoError(t, err)

	_, err = svc.UpdateBudget(ctx, first.ID, BudgetUpdate{
		Amount: first.Amount, PeriodStart: first.PeriodStart, PeriodEnd: first.PeriodEnd, Active: true,
	})
	assert.ErrorIs(t, err, core.ErrActiveBudgetExists)

	updated, err := svc.UpdateBudget(ctx, second.ID, BudgetUpdate{
		Name: "May", Amount: core.Money{Cents: 2500}, PeriodStart: second.PeriodStart, PeriodEnd: second.PeriodEnd, Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), updated.Amount.Cents)

	_, err = svc.UpdateBudget(ctx, 777, BudgetUpdate{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, svc.DeleteBudget(ctx, first.ID))
	_, err = svc.GetBudget(ctx, first.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBudgetService_Statuses(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newBudgetService(store, nil)

	overall, err := svc.CreateBudget(ctx, core.BudgetRecord{UserID: 1, Amount: core.Money{Cents: 200000}, Type: core.BudgetMonthly})
	require.NoError(t, err)
	food, err := svc.CreateBudget(ctx, core.BudgetRecord{UserID: 1, CategoryID: 5, Amount: core.Money{Cents: 10000}, Type: core.BudgetMonthly})
	require.NoError(t, err)
	for i := int64(0); i < 6; i++ {
		_, err := svc.CreateBudget(ctx, core.BudgetRecord{UserID: 1, CategoryID: 100 + i, Amount: core.Money{Cents: 100}, Type: core.BudgetMonthly})
		require.NoError(t, err)
	}

	addExpense(t, store, 1, 5, 60000, core.NewDate(2024, 5, 3))
	addExpense(t, store, 1, 0, 20000, core.NewDate(2024, 5, 31))
	addExpense(t, store, 1, 5, 99999, core.NewDate(2024, 4, 30))
	addExpense(t, store, 2, 5, 99999, core.NewDate(2024, 5, 10))

	statuses, err := svc.Statuses(ctx, 1)
	require.NoError(t, err)
	require.Len(t, statuses, 8)

	assert.Equal(t, overall.ID, statuses[0].Budget.ID)
	assert.Equal(t, int64(80000), statuses[0].TotalExpenses.Cents)
	assert.Equal(t, int64(120000), statuses[0].RemainingAmount.Cents)
	assert.Equal(t, "40.00", statuses[0].PercentageUsed.StringFixed(2))
	assert.False(t, statuses[0].IsOverBudget)

	assert.Equal(t, food.ID, statuses[1].Budget.ID)
	assert.Equal(t, int64(60000), statuses[1].TotalExpenses.Cents)
	assert.True(t, statuses[1].IsOverBudget)

	for _, s := range statuses[2:] {
		assert.Zero(t, s.TotalExpenses.Cents)
	}

	none, err := svc.Statuses(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBudgetService_BudgetsForDate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newBudgetService(store, nil)

	_, err := svc.CreateBudget(ctx, core.BudgetRecord{UserID: 1, Amount: core.Money{Cents: 1}, Type: core.BudgetMonthly})
	require.NoError(t, err)
	_, err = svc.CreateBudget(ctx, core.BudgetRecord{UserID: 1, CategoryID: 2, Amount: core.Money{Cents: 1}, Type: core.BudgetDaily, PeriodStart: core.NewDate(2024, 5, 31)})
	require.NoError(t, err)

	got, err := svc.BudgetsForDate(ctx, 1, core.NewDate(2024, 5, 31))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.BudgetsForDate(ctx, 1, core.NewDate(2024, 6, 1))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBudgetService_CheckAlerts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &mockAlertPublisher{}
	svc := newBudgetService(store, pub)

	for _, cat := range []int64{1, 2, 3} {
		_, err := svc.CreateBudget(ctx, core.BudgetRecord{UserID: 1, CategoryID: cat, Amount: core.Money{Cents: 200000}, Type: core.BudgetMonthly})
		require.NoError(t, err)
	}
	addExpense(t, store, 1, 1, 80000, core.NewDate(2024, 5, 2))  // 40%
	addExpense(t, store, 1, 2, 180000, core.NewDate(2024, 5, 2)) // 90%
	addExpense(t, store, 1, 3, 200001, core.NewDate(2024, 5, 2)) // over

	pub.On("PublishBudgetAlert", mock.Anything, mock.MatchedBy(func(a budget.Alert) bool {
		return a.Level == budget.AlertApproaching
	})).Return(nil).Once()
	pub.On("PublishBudgetAlert", mock.Anything, mock.MatchedBy(func(a budget.Alert) bool {
		return a.Level == budget.AlertOver
	})).Return(errors.New("broker down")).Once()

	alerts, err := svc.CheckAlerts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, budget.AlertNone, alerts[0].Level)
	assert.Equal(t, budget.AlertApproaching, alerts[1].Level)
	assert.Equal(t, budget.AlertOver, alerts[2].Level)

	pub.AssertExpectations(t)
}

func TestBudgetService_CheckAlertsLogsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.Background()
	store := memory.New()
	svc := newBudgetService(store, nil)

	b, err := svc.CreateBudget(ctx, core.BudgetRecord{UserID: 1, CategoryID: 4, Amount: core.Money{Cents: 10000}, Type: core.BudgetMonthly})
	require.NoError(t, err)
	addExpense(t, store, 1, 4, 9000, core.NewDate(2024, 5, 3))

	_, err = svc.CheckAlerts(ctx, 1)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "category_id=4", "budget creation log")
	assert.Contains(t, out, "operation=check_alerts")
	assert.Contains(t, out, fmt.Sprintf("budget_id=%d", b.ID))
	assert.Contains(t, out, "level=APPROACHING")
}

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/core"
	"expenses/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_ExpenseRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	cat, err := repo.SaveCategory(ctx, core.Category{UserID: 1, Name: "Home"})
	require.NoError(t, err)

	saved, err := repo.SaveExpense(ctx, core.ExpenseRecord{
		UserID:              1,
		Description:         "Rent",
		Amount:              core.Money{Cents: 120000},
		Date:                core.NewDate(2024, 1, 31),
		CategoryID:          cat.ID,
		PaymentMethod:       core.BankTransfer,
		IsRecurring:         true,
		RecurrenceFrequency: core.Monthly,
	})
	require.NoError(t, err)
	require.NotZero(t, saved.ID)

	got, err := repo.GetExpense(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent", got.Description)
	assert.Equal(t, int64(120000), got.Amount.Cents)
	assert.Equal(t, "2024-01-31", got.Date.String())
	assert.Equal(t, cat.ID, got.CategoryID)
	assert.True(t, got.IsRecurring)
	assert.Equal(t, core.Monthly, got.RecurrenceFrequency)
	assert.True(t, got.LastRecurrenceDate.IsEmpty())
	assert.True(t, got.RecurrenceEndDate.IsEmpty())

	got.Description = "Rent (flat)"
	_, err = repo.SaveExpense(ctx, got)
	require.NoError(t, err)

	templates, err := repo.FindRecurringTemplates(ctx, 0)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "Rent (flat)", templates[0].Description)

	require.NoError(t, repo.DeleteExpense(ctx, saved.ID))
	_, err = repo.GetExpense(ctx, saved.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteExpense(ctx, saved.ID), core.ErrNotFound)
}

func TestSQLiteRepository_FindExpensesFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, e := range []core.ExpenseRecord{
		{UserID: 1, Description: "a", Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 3, 1), CategoryID: 7},
		{UserID: 1, Description: "b", Amount: core.Money{Cents: 200}, Date: core.NewDate(2024, 3, 15)},
		{UserID: 1, Description: "c", Amount: core.Money{Cents: 300}, Date: core.NewDate(2024, 4, 1), CategoryID: 7},
		{UserID: 2, Description: "d", Amount: core.Money{Cents: 400}, Date: core.NewDate(2024, 3, 10)},
	} {
		_, err := repo.SaveExpense(ctx, e)
		require.NoError(t, err)
	}

	march, err := repo.FindExpenses(ctx, ledger.ExpenseQuery{
		UserID: 1,
		Start:  core.NewDate(2024, 3, 1),
		End:    core.NewDate(2024, 3, 31),
	})
	require.NoError(t, err)
	require.Len(t, march, 2)
	assert.Equal(t, "a", march[0].Description)
	assert.Equal(t, "b", march[1].Description)

	cat7, err := repo.FindExpenses(ctx, ledger.ExpenseQuery{UserID: 1, CategoryID: 7})
	require.NoError(t, err)
	assert.Len(t, cat7, 2)

	all, err := repo.FindExpenses(ctx, ledger.ExpenseQuery{UserID: 2})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteRepository_CommitOccurrence(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tmpl, err := repo.SaveExpense(ctx, core.ExpenseRecord{
		UserID:              1,
		Description:         "Gym",
		Amount:              core.Money{Cents: 4000},
		Date:                core.NewDate(2024, 1, 15),
		IsRecurring:         true,
		RecurrenceFrequency: core.Monthly,
	})
	require.NoError(t, err)

	occ := core.NewDate(2024, 2, 15)
	inst, err := repo.CommitOccurrence(ctx, tmpl.ID, core.Date{}, tmpl.Materialize(occ))
	require.NoError(t, err)
	assert.NotZero(t, inst.ID)
	assert.Equal(t, tmpl.ID, inst.SourceTemplateID)
	assert.False(t, inst.IsRecurring)

	reloaded, err := repo.GetExpense(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-15", reloaded.LastRecurrenceDate.String())

	// A stale marker must not produce a second instance.
	_, err = repo.CommitOccurrence(ctx, tmpl.ID, core.Date{}, tmpl.Materialize(occ))
	assert.ErrorIs(t, err, core.ErrConcurrentUpdate)

	instances, err := repo.FindExpenses(ctx, ledger.ExpenseQuery{UserID: 1, Start: occ, End: occ})
	require.NoError(t, err)
	assert.Len(t, instances, 1)

	_, err = repo.CommitOccurrence(ctx, 9999, core.Date{}, tmpl.Materialize(occ))
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Saving a copy read before the commit must not roll the marker back.
	tmpl.Description = "Gym (annual plan)"
	saved, err := repo.SaveExpense(ctx, tmpl)
	require.NoError(t, err)
	assert.Equal(t, "Gym (annual plan)", saved.Description)
	assert.Equal(t, "2024-02-15", saved.LastRecurrenceDate.String())
}

func TestSQLiteRepository_Budgets(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	b, err := repo.SaveBudget(ctx, core.BudgetRecord{
		UserID:      1,
		Name:        "Monthly",
		Amount:      core.Money{Cents: 50000},
		PeriodStart: core.NewDate(2024, 3, 1),
		PeriodEnd:   core.NewDate(2024, 3, 31),
		Active:      true,
		Type:        core.BudgetMonthly,
	})
	require.NoError(t, err)

	_, err = repo.SaveBudget(ctx, core.BudgetRecord{
		UserID:      1,
		CategoryID:  3,
		Name:        "Old",
		Amount:      core.Money{Cents: 100},
		PeriodStart: core.NewDate(2023, 1, 1),
		PeriodEnd:   core.NewDate(2023, 1, 31),
	})
	require.NoError(t, err)

	active, err := repo.FindBudgets(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].IsOverall())
	assert.Equal(t, core.BudgetMonthly, active[0].Type)

	all, err := repo.FindBudgets(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	b.Active = false
	_, err = repo.SaveBudget(ctx, b)
	require.NoError(t, err)
	got, err := repo.GetBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	require.NoError(t, repo.DeleteBudget(ctx, b.ID))
	_, err = repo.GetBudget(ctx, b.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLiteRepository_Categories(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	root, err := repo.SaveCategory(ctx, core.Category{UserID: 1, Name: "Food"})
	require.NoError(t, err)
	child, err := repo.SaveCategory(ctx, core.Category{UserID: 1, Name: "Groceries", ParentID: root.ID})
	require.NoError(t, err)

	got, err := repo.GetCategory(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, got.ParentID)

	list, err := repo.ListCategories(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = repo.SaveCategory(ctx, core.Category{ID: 999, UserID: 1, Name: "x"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

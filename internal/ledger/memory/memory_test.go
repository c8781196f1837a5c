package memory

import (
	"context"
	"errors"
	"testing"

	"expenses/internal/core"
	"expenses/internal/ledger"
)

func TestMemoryStoreSaveAndFind(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, e := range []core.ExpenseRecord{
		{UserID: 1, Description: "b", Amount: core.Money{Cents: 200}, Date: core.NewDate(2024, 3, 2), CategoryID: 1},
		{UserID: 1, Description: "a", Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 3, 1), CategoryID: 2},
		{UserID: 2, Description: "other user", Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 3, 1)},
		{UserID: 1, Description: "tpl", Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 1, 1), IsRecurring: true, RecurrenceFrequency: core.Monthly},
	} {
		if _, err := s.SaveExpense(ctx, e); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := s.FindExpenses(ctx, ledger.ExpenseQuery{UserID: 1, Start: core.NewDate(2024, 3, 1), End: core.NewDate(2024, 3, 31)})
	if err != nil || len(got) != 2 || got[0].Description != "a" {
		t.Fatalf("unexpected find: %+v err=%v", got, err)
	}

	got, _ = s.FindExpenses(ctx, ledger.ExpenseQuery{UserID: 1, CategoryID: 1})
	if len(got) != 1 || got[0].Description != "b" {
		t.Fatalf("unexpected category filter: %+v", got)
	}

	tpls, _ := s.FindRecurringTemplates(ctx, 0)
	if len(tpls) != 1 || tpls[0].Description != "tpl" {
		t.Fatalf("unexpected templates: %+v", tpls)
	}
	if tpls, _ := s.FindRecurringTemplates(ctx, 2); len(tpls) != 0 {
		t.Fatalf("expected no templates for user 2, got %+v", tpls)
	}
}

func TestMemoryStoreUnknownIDs(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.GetExpense(ctx, 9); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.SaveBudget(ctx, core.BudgetRecord{ID: 9}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeleteCategory(ctx, 9); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreCommitOccurrence(t *testing.T) {
	ctx := context.Background()
	s := New()
	tpl, _ := s.SaveExpense(ctx, core.ExpenseRecord{
		UserID: 1, Description: "rent", Amount: core.Money{Cents: 1000},
		Date: core.NewDate(2024, 1, 31), IsRecurring: true, RecurrenceFrequency: core.Monthly,
	})

	inst, err := s.CommitOccurrence(ctx, tpl.ID, core.Date{}, tpl.Materialize(core.NewDate(2024, 2, 29)))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if inst.ID == 0 || inst.ID == tpl.ID {
		t.Fatalf("instance needs its own id, got %d", inst.ID)
	}

	updated, _ := s.GetExpense(ctx, tpl.ID)
	if !updated.LastRecurrenceDate.Equal(core.NewDate(2024, 2, 29).Time) {
		t.Fatalf("marker not advanced: %s", updated.LastRecurrenceDate)
	}

	// A second writer still holding the old marker must lose.
	if _, err := s.CommitOccurrence(ctx, tpl.ID, core.Date{}, tpl.Materialize(core.NewDate(2024, 2, 29))); !errors.Is(err, core.ErrConcurrentUpdate) {
		t.Fatalf("expected conflict, got %v", err)
	}
	all, _ := s.FindExpenses(ctx, ledger.ExpenseQuery{UserID: 1})
	if len(all) != 2 {
		t.Fatalf("expected template + one instance, got %d", len(all))
	}

	// Updates through SaveExpense never move the marker.
	tpl.Notes = "edited"
	saved, err := s.SaveExpense(ctx, tpl)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := saved.LastRecurrenceDate.String(); got != "2024-02-29" {
		t.Fatalf("marker rolled back to %q", got)
	}
}

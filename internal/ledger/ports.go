// Package ledger defines the storage ports the engine consumes. Records are
// keyed by numeric ids; relations are plain id fields.
package ledger

import (
	"context"

	"expenses/internal/core"
)

// ExpenseQuery selects a user's expenses over an inclusive date range.
// CategoryID 0 matches every category; zero dates leave that side open.
type ExpenseQuery struct {
	UserID     int64
	CategoryID int64
	Start      core.Date
	End        core.Date
}

// Ports for outbound adapters.
type (
	ExpenseStore interface {
		// FindRecurringTemplates returns templates of one user, or of every user when userID is 0.
		FindRecurringTemplates(ctx context.Context, userID int64) ([]core.ExpenseRecord, error)
		// FindExpenses returns matching expenses ordered by date then id.
		FindExpenses(ctx context.Context, q ExpenseQuery) ([]core.ExpenseRecord, error)
		GetExpense(ctx context.Context, id int64) (core.ExpenseRecord, error)
		// SaveExpense inserts when ID is 0 and updates otherwise. Updates keep
		// the stored LastRecurrenceDate; only CommitOccurrence moves it.
		SaveExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error)
		DeleteExpense(ctx context.Context, id int64) error
		// CommitOccurrence atomically checks that the template's marker still
		// equals expectedMarker, inserts the instance and moves the marker to
		// the instance date. It returns core.ErrConcurrentUpdate when the
		// marker moved.
		CommitOccurrence(ctx context.Context, templateID int64, expectedMarker core.Date, instance core.ExpenseRecord) (core.ExpenseRecord, error)
	}

	BudgetStore interface {
		FindBudgets(ctx context.Context, userID int64, activeOnly bool) ([]core.BudgetRecord, error)
		GetBudget(ctx context.Context, id int64) (core.BudgetRecord, error)
		SaveBudget(ctx context.Context, b core.BudgetRecord) (core.BudgetRecord, error)
		DeleteBudget(ctx context.Context, id int64) error
	}

	CategoryStore interface {
		GetCategory(ctx context.Context, id int64) (core.Category, error)
		ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
		SaveCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, id int64) error
	}

	// Store is a complete ledger backend.
	Store interface {
		ExpenseStore
		BudgetStore
		CategoryStore
		Close() error
	}
)

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"expenses/internal/core"
	"expenses/internal/ledger"
)

// Store keeps the ledger in process memory. It is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	seq        int64
	expenses   map[int64]core.ExpenseRecord
	budgets    map[int64]core.BudgetRecord
	categories map[int64]core.Category
	now        func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		expenses:   map[int64]core.ExpenseRecord{},
		budgets:    map[int64]core.BudgetRecord{},
		categories: map[int64]core.Category{},
		now:        time.Now,
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) FindRecurringTemplates(_ context.Context, userID int64) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ExpenseRecord
	for _, e := range s.expenses {
		if e.IsRecurring && (userID == 0 || e.UserID == userID) {
			out = append(out, e)
		}
	}
	sortExpenses(out)
	return out, nil
}

func (s *Store) FindExpenses(_ context.Context, q ledger.ExpenseQuery) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ExpenseRecord
	for _, e := range s.expenses {
		if e.UserID != q.UserID {
			continue
		}
		if q.CategoryID != 0 && e.CategoryID != q.CategoryID {
			continue
		}
		if !q.Start.IsEmpty() && e.Date.Before(q.Start.Time) {
			continue
		}
		if !q.End.IsEmpty() && e.Date.After(q.End.Time) {
			continue
		}
		out = append(out, e)
	}
	sortExpenses(out)
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.ExpenseRecord{}, core.NotFound("expense", id)
	}
	return e, nil
}

func (s *Store) SaveExpense(_ context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveExpenseLocked(e)
}

func (s *Store) saveExpenseLocked(e core.ExpenseRecord) (core.ExpenseRecord, error) {
	now := s.now()
	if e.ID == 0 {
		e.ID = s.nextID()
		e.CreatedAt = now
	} else {
		prev, ok := s.expenses[e.ID]
		if !ok {
			return core.ExpenseRecord{}, core.NotFound("expense", e.ID)
		}
		e.CreatedAt = prev.CreatedAt
		e.LastRecurrenceDate = prev.LastRecurrenceDate
	}
	e.UpdatedAt = now
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return core.NotFound("expense", id)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) CommitOccurrence(_ context.Context, templateID int64, expectedMarker core.Date, instance core.ExpenseRecord) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tpl, ok := s.expenses[templateID]
	if !ok {
		return core.ExpenseRecord{}, core.NotFound("expense", templateID)
	}
	if !tpl.LastRecurrenceDate.Equal(expectedMarker.Time) {
		return core.ExpenseRecord{}, core.ErrConcurrentUpdate
	}

	instance.ID = 0
	saved, err := s.saveExpenseLocked(instance)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	tpl.LastRecurrenceDate = instance.Date
	tpl.UpdatedAt = s.now()
	s.expenses[templateID] = tpl
	return saved, nil
}

func (s *Store) FindBudgets(_ context.Context, userID int64, activeOnly bool) ([]core.BudgetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BudgetRecord
	for _, b := range s.budgets {
		if b.UserID != userID || (activeOnly && !b.Active) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (core.BudgetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.BudgetRecord{}, core.NotFound("budget", id)
	}
	return b, nil
}

func (s *Store) SaveBudget(_ context.Context, b core.BudgetRecord) (core.BudgetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if b.ID == 0 {
		b.ID = s.nextID()
		b.CreatedAt = now
	} else {
		prev, ok := s.budgets[b.ID]
		if !ok {
			return core.BudgetRecord{}, core.NotFound("budget", b.ID)
		}
		b.CreatedAt = prev.CreatedAt
	}
	b.UpdatedAt = now
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return core.NotFound("budget", id)
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.NotFound("category", id)
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextID()
	} else if _, ok := s.categories[c.ID]; !ok {
		return core.Category{}, core.NotFound("category", c.ID)
	}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return core.NotFound("category", id)
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) Close() error {
	return nil
}

func sortExpenses(es []core.ExpenseRecord) {
	sort.Slice(es, func(i, j int) bool {
		if c := es[i].Date.Compare(es[j].Date); c != 0 {
			return c < 0
		}
		return es[i].ID < es[j].ID
	})
}

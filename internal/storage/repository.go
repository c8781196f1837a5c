package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"expenses/internal/core"
	"expenses/internal/ledger"
	applog "expenses/internal/log"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Wrap(err, "create db directory")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}
	// SQLite allows a single writer; one connection keeps transactions serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "run migrations")
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const expenseColumns = `id, user_id, description, amount_cents, date, category_id, payment_method, notes,
	is_recurring, recurrence_frequency, recurrence_end_date, last_recurrence_date, source_template_id,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.ExpenseRecord, error) {
	var (
		e                    core.ExpenseRecord
		date                 string
		categoryID, sourceID sql.NullInt64
		paymentMethod, freq  string
		endDate, lastDate    sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Description, &e.Amount.Cents, &date, &categoryID, &paymentMethod, &e.Notes,
		&e.IsRecurring, &freq, &endDate, &lastDate, &sourceID, &createdAt, &updatedAt)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if e.Date, err = core.ParseDate(date); err != nil {
		return core.ExpenseRecord{}, err
	}
	if e.RecurrenceEndDate, err = core.ParseDate(endDate.String); err != nil {
		return core.ExpenseRecord{}, err
	}
	if e.LastRecurrenceDate, err = core.ParseDate(lastDate.String); err != nil {
		return core.ExpenseRecord{}, err
	}
	e.CategoryID = categoryID.Int64
	e.SourceTemplateID = sourceID.Int64
	e.PaymentMethod = core.PaymentMethod(paymentMethod)
	e.RecurrenceFrequency = core.RecurrenceFrequency(freq)
	e.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	e.UpdatedAt, _ = time.Parse(timestampLayout, updatedAt)
	return e, nil
}

func (r *SQLiteRepository) listExpenses(ctx context.Context, query string, args ...any) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.ExpenseRecord
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan expense")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) FindRecurringTemplates(ctx context.Context, userID int64) ([]core.ExpenseRecord, error) {
	out, err := r.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE is_recurring = 1 AND (? = 0 OR user_id = ?)
		 ORDER BY date, id`, userID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "find recurring templates")
	}
	return out, nil
}

func (r *SQLiteRepository) FindExpenses(ctx context.Context, q ledger.ExpenseQuery) ([]core.ExpenseRecord, error) {
	out, err := r.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE user_id = ?
		   AND (? = 0 OR category_id = ?)
		   AND (? = '' OR date >= ?)
		   AND (? = '' OR date <= ?)
		 ORDER BY date, id`,
		q.UserID, q.CategoryID, q.CategoryID,
		q.Start.String(), q.Start.String(),
		q.End.String(), q.End.String())
	if err != nil {
		return nil, errors.Wrapf(err, "find expenses for user %d", q.UserID)
	}
	return out, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.ExpenseRecord, error) {
	return getExpense(ctx, r.db, id)
}

func getExpense(ctx context.Context, q queryer, id int64) (core.ExpenseRecord, error) {
	e, err := scanExpense(q.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, core.NotFound("expense", id)
	}
	if err != nil {
		return core.ExpenseRecord{}, errors.Wrapf(err, "get expense %d", id)
	}
	return e, nil
}

func (r *SQLiteRepository) SaveExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	saved, err := r.saveExpense(ctx, r.db, e)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", saved.ID,
		applog.FieldUserID, saved.UserID,
		applog.FieldAmountCents, saved.Amount.Cents,
		"date", saved.Date.String())
	return saved, nil
}

func (r *SQLiteRepository) saveExpense(ctx context.Context, q queryer, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	now := r.now().UTC()
	args := []any{
		e.UserID, e.Description, e.Amount.Cents, e.Date.String(), nullID(e.CategoryID),
		string(e.PaymentMethod), e.Notes, e.IsRecurring, string(e.RecurrenceFrequency),
		nullDate(e.RecurrenceEndDate), nullDate(e.LastRecurrenceDate), nullID(e.SourceTemplateID),
	}

	if e.ID == 0 {
		res, err := q.ExecContext(ctx,
			`INSERT INTO expenses (user_id, description, amount_cents, date, category_id, payment_method, notes,
				is_recurring, recurrence_frequency, recurrence_end_date, last_recurrence_date, source_template_id,
				created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			append(args, now.Format(timestampLayout), now.Format(timestampLayout))...)
		if err != nil {
			return core.ExpenseRecord{}, errors.Wrap(err, "insert expense")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return core.ExpenseRecord{}, errors.Wrap(err, "read expense id")
		}
		e.ID = id
		e.CreatedAt, e.UpdatedAt = now, now
		return e, nil
	}

	// last_recurrence_date is left alone: only CommitOccurrence moves it.
	res, err := q.ExecContext(ctx,
		`UPDATE expenses SET user_id = ?, description = ?, amount_cents = ?, date = ?, category_id = ?,
			payment_method = ?, notes = ?, is_recurring = ?, recurrence_frequency = ?, recurrence_end_date = ?,
			source_template_id = ?, updated_at = ?
		 WHERE id = ?`,
		e.UserID, e.Description, e.Amount.Cents, e.Date.String(), nullID(e.CategoryID),
		string(e.PaymentMethod), e.Notes, e.IsRecurring, string(e.RecurrenceFrequency),
		nullDate(e.RecurrenceEndDate), nullID(e.SourceTemplateID), now.Format(timestampLayout), e.ID)
	if err != nil {
		return core.ExpenseRecord{}, errors.Wrapf(err, "update expense %d", e.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ExpenseRecord{}, core.NotFound("expense", e.ID)
	}
	return getExpense(ctx, q, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "expenses", "expense", id)
}

func (r *SQLiteRepository) CommitOccurrence(ctx context.Context, templateID int64, expectedMarker core.Date, instance core.ExpenseRecord) (core.ExpenseRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.ExpenseRecord{}, errors.Wrap(err, "begin occurrence tx")
	}
	defer tx.Rollback()

	var marker sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT last_recurrence_date FROM expenses WHERE id = ?`, templateID).Scan(&marker)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, core.NotFound("expense", templateID)
	}
	if err != nil {
		return core.ExpenseRecord{}, errors.Wrapf(err, "read marker of template %d", templateID)
	}
	if marker.String != expectedMarker.String() {
		return core.ExpenseRecord{}, core.ErrConcurrentUpdate
	}

	instance.ID = 0
	saved, err := r.saveExpense(ctx, tx, instance)
	if err != nil {
		return core.ExpenseRecord{}, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET last_recurrence_date = ?, updated_at = ?
		 WHERE id = ? AND COALESCE(last_recurrence_date, '') = ?`,
		instance.Date.String(), r.now().UTC().Format(timestampLayout), templateID, expectedMarker.String())
	if err != nil {
		return core.ExpenseRecord{}, errors.Wrapf(err, "advance marker of template %d", templateID)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return core.ExpenseRecord{}, core.ErrConcurrentUpdate
	}

	if err := tx.Commit(); err != nil {
		return core.ExpenseRecord{}, errors.Wrap(err, "commit occurrence")
	}
	return saved, nil
}

const budgetColumns = `id, user_id, category_id, name, amount_cents, period_start, period_end, active, budget_type,
	created_at, updated_at`

func scanBudget(row rowScanner) (core.BudgetRecord, error) {
	var (
		b                    core.BudgetRecord
		categoryID           sql.NullInt64
		start, end, bt       string
		createdAt, updatedAt string
	)
	if err := row.Scan(&b.ID, &b.UserID, &categoryID, &b.Name, &b.Amount.Cents, &start, &end, &b.Active, &bt,
		&createdAt, &updatedAt); err != nil {
		return core.BudgetRecord{}, err
	}
	var err error
	if b.PeriodStart, err = core.ParseDate(start); err != nil {
		return core.BudgetRecord{}, err
	}
	if b.PeriodEnd, err = core.ParseDate(end); err != nil {
		return core.BudgetRecord{}, err
	}
	b.CategoryID = categoryID.Int64
	b.Type = core.BudgetType(bt)
	b.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	b.UpdatedAt, _ = time.Parse(timestampLayout, updatedAt)
	return b, nil
}

func (r *SQLiteRepository) FindBudgets(ctx context.Context, userID int64, activeOnly bool) ([]core.BudgetRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets
		 WHERE user_id = ? AND (? = 0 OR active = 1)
		 ORDER BY id`, userID, activeOnly)
	if err != nil {
		return nil, errors.Wrapf(err, "find budgets for user %d", userID)
	}
	defer rows.Close()

	var out []core.BudgetRecord
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan budget")
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.BudgetRecord, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetRecord{}, core.NotFound("budget", id)
	}
	if err != nil {
		return core.BudgetRecord{}, errors.Wrapf(err, "get budget %d", id)
	}
	return b, nil
}

func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.BudgetRecord) (core.BudgetRecord, error) {
	now := r.now().UTC()
	args := []any{
		b.UserID, nullID(b.CategoryID), b.Name, b.Amount.Cents,
		b.PeriodStart.String(), b.PeriodEnd.String(), b.Active, string(b.Type),
	}

	if b.ID == 0 {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO budgets (user_id, category_id, name, amount_cents, period_start, period_end, active, budget_type,
				created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			append(args, now.Format(timestampLayout), now.Format(timestampLayout))...)
		if err != nil {
			return core.BudgetRecord{}, errors.Wrap(err, "insert budget")
		}
		if b.ID, err = res.LastInsertId(); err != nil {
			return core.BudgetRecord{}, errors.Wrap(err, "read budget id")
		}
		b.CreatedAt, b.UpdatedAt = now, now
		return b, nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET user_id = ?, category_id = ?, name = ?, amount_cents = ?, period_start = ?,
			period_end = ?, active = ?, budget_type = ?, updated_at = ?
		 WHERE id = ?`,
		append(args, now.Format(timestampLayout), b.ID)...)
	if err != nil {
		return core.BudgetRecord{}, errors.Wrapf(err, "update budget %d", b.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.BudgetRecord{}, core.NotFound("budget", b.ID)
	}
	return r.GetBudget(ctx, b.ID)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "budgets", "budget", id)
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var (
		c        core.Category
		parentID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, parent_id FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NotFound("category", id)
	}
	if err != nil {
		return core.Category{}, errors.Wrapf(err, "get category %d", id)
	}
	c.ParentID = parentID.Int64
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, parent_id FROM categories WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list categories for user %d", userID)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c        core.Category
			parentID sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &parentID); err != nil {
			return nil, errors.Wrap(err, "scan category")
		}
		c.ParentID = parentID.Int64
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == 0 {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO categories (user_id, name, description, parent_id) VALUES (?, ?, ?, ?)`,
			c.UserID, c.Name, c.Description, nullID(c.ParentID))
		if err != nil {
			return core.Category{}, errors.Wrap(err, "insert category")
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return core.Category{}, errors.Wrap(err, "read category id")
		}
		return c, nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET user_id = ?, name = ?, description = ?, parent_id = ? WHERE id = ?`,
		c.UserID, c.Name, c.Description, nullID(c.ParentID), c.ID)
	if err != nil {
		return core.Category{}, errors.Wrapf(err, "update category %d", c.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, core.NotFound("category", c.ID)
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "categories", "category", id)
}

// deleteByID removes one row; table is always a package constant.
func (r *SQLiteRepository) deleteByID(ctx context.Context, table, entity string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "delete %s %d", entity, id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound(entity, id)
	}
	return nil
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.String()
}

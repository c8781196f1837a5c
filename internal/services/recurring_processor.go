package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expenses/internal/core"
	"expenses/internal/ledger"
	applog "expenses/internal/log"
)

// ExpensePublisher announces instances created by the recurring processor.
type ExpensePublisher interface {
	PublishExpenseCreated(ctx context.Context, e core.ExpenseRecord) error
}

// RunResult counts what happened to each template seen during one run.
type RunResult struct {
	Checked   int
	Created   int
	Dormant   int
	NotDue    int
	Conflicts int
	Failed    int
}

type outcome int

const (
	outcomeNotDue outcome = iota
	outcomeCreated
	outcomeDormant
	outcomeConflict
	outcomeFailed
)

func (r *RunResult) record(o outcome) {
	r.Checked++
	switch o {
	case outcomeCreated:
		r.Created++
	case outcomeDormant:
		r.Dormant++
	case outcomeConflict:
		r.Conflicts++
	case outcomeFailed:
		r.Failed++
	default:
		r.NotDue++
	}
}

// RecurringProcessor materializes due occurrences of recurring templates.
// Each run creates at most one instance per template; templates that fell
// several periods behind catch up one period per run.
type RecurringProcessor struct {
	store     ledger.ExpenseStore
	publisher ExpensePublisher
	locks     *keyedMutex
}

// NewRecurringProcessor creates a processor. publisher may be nil.
func NewRecurringProcessor(store ledger.ExpenseStore, publisher ExpensePublisher) *RecurringProcessor {
	return &RecurringProcessor{
		store:     store,
		publisher: publisher,
		locks:     newKeyedMutex(),
	}
}

// ProcessAll runs every user's templates for today.
func (p *RecurringProcessor) ProcessAll(ctx context.Context, today core.Date) (RunResult, error) {
	return p.run(ctx, 0, today)
}

// ProcessForUser runs one user's templates for today.
func (p *RecurringProcessor) ProcessForUser(ctx context.Context, userID int64, today core.Date) (RunResult, error) {
	if userID <= 0 {
		return RunResult{}, core.NewValidationError("user_id", fmt.Errorf("must be positive, got %d", userID))
	}
	return p.run(ctx, userID, today)
}

func (p *RecurringProcessor) run(ctx context.Context, userID int64, today core.Date) (RunResult, error) {
	var result RunResult
	if p.store == nil {
		return result, fmt.Errorf("processor not properly initialized")
	}
	if err := today.Validate(); err != nil {
		return result, core.NewValidationError("today", err)
	}

	templates, err := p.store.FindRecurringTemplates(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("find recurring templates: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		"templates", len(templates),
		applog.FieldUserID, userID,
		"today", today.String())

	for _, t := range templates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.record(p.processTemplate(ctx, t.ID, today))
	}

	slog.InfoContext(ctx, "Recurring expense processing complete",
		"checked", result.Checked,
		"created", result.Created,
		"dormant", result.Dormant,
		"not_due", result.NotDue,
		"conflicts", result.Conflicts,
		"failed", result.Failed)

	return result, nil
}

// processTemplate handles one template in isolation; its failures are logged
// and never abort the run.
func (p *RecurringProcessor) processTemplate(ctx context.Context, templateID int64, today core.Date) outcome {
	unlock := p.locks.Lock(templateID)
	defer unlock()

	// Re-read under the lock so the marker reflects any commit that happened
	// since the template list was fetched.
	t, err := p.store.GetExpense(ctx, templateID)
	if errors.Is(err, core.ErrNotFound) {
		slog.DebugContext(ctx, "Recurring template disappeared during run", applog.FieldTemplateID, templateID)
		return outcomeNotDue
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load recurring template",
			applog.FieldTemplateID, templateID,
			applog.FieldError, err)
		return outcomeFailed
	}
	if !t.IsRecurring {
		return outcomeNotDue
	}
	if t.IsDormant(today) {
		return outcomeDormant
	}

	occurrence, due, err := t.DueOccurrence(today)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to compute next occurrence",
			applog.FieldTemplateID, t.ID,
			"frequency", t.RecurrenceFrequency,
			applog.FieldError, err)
		return outcomeFailed
	}
	if !due {
		return outcomeNotDue
	}

	instance, err := p.store.CommitOccurrence(ctx, t.ID, t.LastRecurrenceDate, t.Materialize(occurrence))
	if errors.Is(err, core.ErrConcurrentUpdate) {
		slog.WarnContext(ctx, "Recurring template advanced concurrently, skipping",
			applog.FieldTemplateID, t.ID,
			applog.FieldOccurrence, occurrence.String())
		return outcomeConflict
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to create expense from recurring template",
			applog.FieldTemplateID, t.ID,
			applog.FieldOccurrence, occurrence.String(),
			applog.FieldError, err)
		return outcomeFailed
	}

	slog.InfoContext(ctx, "Created expense from recurring template",
		applog.FieldTemplateID, t.ID,
		applog.FieldExpenseID, instance.ID,
		applog.FieldOccurrence, occurrence.String(),
		applog.FieldAmountCents, instance.Amount.Cents,
		"frequency", t.RecurrenceFrequency)

	if p.publisher != nil {
		if err := p.publisher.PublishExpenseCreated(ctx, instance); err != nil {
			slog.ErrorContext(ctx, "Failed to publish expense created message",
				applog.FieldExpenseID, instance.ID,
				applog.FieldError, err)
		}
	}
	return outcomeCreated
}

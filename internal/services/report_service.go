package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/ledger"
	applog "expenses/internal/log"
	"expenses/internal/report"
)

// NamedShare is a category breakdown entry with its display name resolved.
type NamedShare struct {
	report.Share[int64]
	Name string
}

// ReportService fetches a user's expenses and hands them to the report package.
type ReportService struct {
	expenses   ledger.ExpenseStore
	categories ledger.CategoryStore
	names      cache.Cache[int64, string]
}

// NewReportService creates a report service. names may be nil to disable caching.
func NewReportService(expenses ledger.ExpenseStore, categories ledger.CategoryStore, names cache.Cache[int64, string]) *ReportService {
	return &ReportService{
		expenses:   expenses,
		categories: categories,
		names:      names,
	}
}

// MonthlyTrend returns one zero-filled total per month for the months
// calendar months ending with today's month, oldest first.
func (s *ReportService) MonthlyTrend(ctx context.Context, userID int64, months int, today core.Date) ([]report.PeriodTotal, error) {
	return s.Trend(ctx, userID, report.MonthBuckets, months, today)
}

// WeeklyTrend returns one zero-filled total per ISO week, oldest first.
func (s *ReportService) WeeklyTrend(ctx context.Context, userID int64, weeks int, today core.Date) ([]report.PeriodTotal, error) {
	return s.Trend(ctx, userID, report.WeekBuckets, weeks, today)
}

// Trend fetches only the span covered by the strategy's n buckets and totals
// each bucket.
func (s *ReportService) Trend(ctx context.Context, userID int64, strategy report.BucketStrategy, n int, today core.Date) ([]report.PeriodTotal, error) {
	buckets := strategy(today, n)
	expenses, err := s.fetchBuckets(ctx, userID, buckets)
	if err != nil {
		return nil, err
	}
	return report.Trend(expenses, buckets), nil
}

func (s *ReportService) CategoryBreakdown(ctx context.Context, userID int64, start, end core.Date) ([]NamedShare, error) {
	expenses, err := s.fetchRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	shares := report.CategoryBreakdown(expenses, start, end)

	out := make([]NamedShare, len(shares))
	for i, sh := range shares {
		out[i] = NamedShare{Share: sh, Name: s.categoryName(ctx, sh.Key)}
	}
	return out, nil
}

func (s *ReportService) PaymentMethodBreakdown(ctx context.Context, userID int64, start, end core.Date) ([]report.Share[core.PaymentMethod], error) {
	expenses, err := s.fetchRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	return report.PaymentMethodBreakdown(expenses, start, end), nil
}

func (s *ReportService) fetchBuckets(ctx context.Context, userID int64, buckets []report.Bucket) ([]core.ExpenseRecord, error) {
	if len(buckets) == 0 {
		return nil, nil
	}
	return s.fetchRange(ctx, userID, buckets[0].Start, buckets[len(buckets)-1].End)
}

func (s *ReportService) fetchRange(ctx context.Context, userID int64, start, end core.Date) ([]core.ExpenseRecord, error) {
	if !start.IsEmpty() && !end.IsEmpty() && end.Before(start.Time) {
		return nil, core.NewValidationError("end", core.ErrInvalidPeriod)
	}
	expenses, err := s.expenses.FindExpenses(ctx, ledger.ExpenseQuery{UserID: userID, Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("fetch expenses for report: %w", err)
	}
	return expenses, nil
}

// categoryName resolves a display name, falling back to "Category #<id>" for
// ids the store does not know.
func (s *ReportService) categoryName(ctx context.Context, id int64) string {
	if s.names != nil {
		if name, ok := s.names.Get(id); ok {
			return name
		}
	}

	name := fmt.Sprintf("Category #%d", id)
	if s.categories != nil {
		c, err := s.categories.GetCategory(ctx, id)
		switch {
		case err == nil:
			name = c.Name
		case !errors.Is(err, core.ErrNotFound):
			slog.WarnContext(ctx, "Failed to resolve category name", applog.FieldCategoryID, id, applog.FieldError, err)
			return name
		}
	}

	if s.names != nil {
		s.names.Set(id, name)
	}
	return name
}

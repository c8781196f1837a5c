package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"expenses/internal/report"
)

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Spending trends and breakdowns",
	}
	cmd.AddCommand(
		newTrendCmd(a, "monthly", "Totals for the last N calendar months"),
		newTrendCmd(a, "weekly", "Totals for the last N Monday-based weeks"),
		newBreakdownCmd(a, "categories", "Share of spend per category"),
		newBreakdownCmd(a, "payments", "Share of spend per payment method"),
		newSummaryCmd(a),
	)
	return cmd
}

func newTrendCmd(a *app, use, short string) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			today, err := a.today()
			if err != nil {
				return err
			}

			var trend []report.PeriodTotal
			if use == "monthly" {
				if count == 0 {
					count = a.cfg.ReportMonths
				}
				trend, err = a.svc.Reports.MonthlyTrend(cmd.Context(), userID, count, today)
			} else {
				if count == 0 {
					count = a.cfg.ReportWeeks
				}
				trend, err = a.svc.Reports.WeeklyTrend(cmd.Context(), userID, count, today)
			}
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout(), "PERIOD", "FROM", "TO", "TOTAL", "COUNT")
			for _, p := range trend {
				tw.row(p.Label, p.Start, p.End, p.Total, p.Count)
			}
			return tw.flush()
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "Number of periods (default from configuration)")
	return cmd
}

func newBreakdownCmd(a *app, use, short string) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			start, err := parseDateFlag("from", from)
			if err != nil {
				return err
			}
			end, err := parseDateFlag("to", to)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout(), "NAME", "AMOUNT", "COUNT", "SHARE")
			if use == "categories" {
				shares, err := a.svc.Reports.CategoryBreakdown(cmd.Context(), userID, start, end)
				if err != nil {
					return err
				}
				for _, s := range shares {
					tw.row(s.Name, s.Amount, s.Count, formatShare(s.Percentage))
				}
			} else {
				shares, err := a.svc.Reports.PaymentMethodBreakdown(cmd.Context(), userID, start, end)
				if err != nil {
					return err
				}
				for _, s := range shares {
					tw.row(s.Key.DisplayName(), s.Amount, s.Count, formatShare(s.Percentage))
				}
			}
			return tw.flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First date, inclusive")
	cmd.Flags().StringVar(&to, "to", "", "Last date, inclusive")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Total and per-category spend for the month of --date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			today, err := a.today()
			if err != nil {
				return err
			}
			overview, err := a.svc.Expenses.MonthlySummary(cmd.Context(), userID, today.Year(), today.Month())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%04d-%02d: %s across %d expenses\n", overview.Year, overview.Month, overview.Total, overview.Count)
			tw := newTable(out, "CATEGORY", "AMOUNT")
			for _, c := range overview.ByCategory {
				tw.row(strconv.FormatInt(c.CategoryID, 10), c.Amount)
			}
			return tw.flush()
		},
	}
}

func formatShare(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64) + "%"
}

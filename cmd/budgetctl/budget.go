package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"expenses/internal/budget"
	"expenses/internal/core"
)

func newBudgetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Create budgets and check their status",
	}
	cmd.AddCommand(
		newBudgetCreateCmd(a),
		newBudgetStatusCmd(a),
		newBudgetAlertsCmd(a),
		newBudgetDeleteCmd(a),
	)
	return cmd
}

func newBudgetCreateCmd(a *app) *cobra.Command {
	var (
		name, amount, budgetType string
		start, end               string
		categoryID               int64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a budget; non-custom types derive their period from --start or --date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			money, err := parseAmount(amount)
			if err != nil {
				return err
			}
			periodStart, err := parseOptionalDate("start", start)
			if err != nil {
				return err
			}
			periodEnd, err := parseOptionalDate("end", end)
			if err != nil {
				return err
			}
			bt := core.BudgetType(upper(budgetType))
			if periodStart.IsEmpty() && bt != core.BudgetCustom {
				if periodStart, err = a.today(); err != nil {
					return err
				}
			}

			saved, err := a.svc.Budgets.CreateBudget(cmd.Context(), core.BudgetRecord{
				UserID:      userID,
				CategoryID:  categoryID,
				Name:        name,
				Amount:      money,
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
				Type:        bt,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created budget #%d: %s %s from %s to %s\n",
				saved.ID, saved.Type.DisplayName(), saved.Amount, saved.PeriodStart, saved.PeriodEnd)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Budget name")
	cmd.Flags().StringVar(&amount, "amount", "", "Budget amount, e.g. 500 or 500.00")
	cmd.Flags().StringVar(&budgetType, "type", string(core.BudgetMonthly), "DAILY, WEEKLY, MONTHLY, QUARTERLY, YEARLY or CUSTOM")
	cmd.Flags().StringVar(&start, "start", "", "Period start (required for CUSTOM)")
	cmd.Flags().StringVar(&end, "end", "", "Period end (required for CUSTOM)")
	cmd.Flags().Int64Var(&categoryID, "category", 0, "Category id (0 for an overall budget)")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newBudgetStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show spend against every active budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			statuses, err := a.svc.Budgets.Statuses(cmd.Context(), userID)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout(), "ID", "NAME", "CATEGORY", "PERIOD", "BUDGET", "SPENT", "REMAINING", "USED")
			for _, s := range statuses {
				statusRow(tw, s)
			}
			return tw.flush()
		},
	}
}

func newBudgetAlertsCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Classify active budgets and publish approaching or over alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			alerts, err := a.svc.Budgets.CheckAlerts(cmd.Context(), userID)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout(), "LEVEL", "ID", "NAME", "CATEGORY", "PERIOD", "BUDGET", "SPENT", "REMAINING", "USED")
			for _, al := range alerts {
				if al.Level == budget.AlertNone && !all {
					continue
				}
				fmt.Fprintf(tw.w, "%s\t", al.Level)
				statusRow(tw, al.Status)
			}
			return tw.flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include budgets with no alert")
	return cmd
}

func newBudgetDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid budget id %q", args[0])
			}
			if err := a.svc.Budgets.DeleteBudget(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted budget #%d\n", id)
			return nil
		},
	}
}

func statusRow(tw *table, s budget.Status) {
	b := s.Budget
	tw.row(b.ID, dash(b.Name), optionalID(b.CategoryID),
		fmt.Sprintf("%s..%s", b.PeriodStart, b.PeriodEnd),
		b.Amount, s.TotalExpenses, s.RemainingAmount, s.PercentageUsed.StringFixed(2)+"%")
}

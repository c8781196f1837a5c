package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"expenses/internal/services"
)

func newRecurringCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Inspect and process recurring templates",
	}
	cmd.AddCommand(newRecurringRunCmd(a), newRecurringListCmd(a))
	return cmd
}

func newRecurringRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Materialize due occurrences once, for one user or everyone",
		RunE: func(cmd *cobra.Command, _ []string) error {
			today, err := a.today()
			if err != nil {
				return err
			}

			var result services.RunResult
			if a.userID != 0 {
				result, err = a.svc.Recurring.ProcessForUser(cmd.Context(), a.userID, today)
			} else {
				result, err = a.svc.Recurring.ProcessAll(cmd.Context(), today)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"%s: checked %d, created %d, not due %d, dormant %d, conflicts %d, failed %d\n",
				today, result.Checked, result.Created, result.NotDue, result.Dormant, result.Conflicts, result.Failed)
			return nil
		},
	}
}

func newRecurringListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring templates with their next occurrence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			today, err := a.today()
			if err != nil {
				return err
			}
			templates, err := a.svc.Expenses.RecurringTemplates(cmd.Context(), userID)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout(), "ID", "DESCRIPTION", "AMOUNT", "EVERY", "LAST", "NEXT", "UNTIL")
			for _, t := range templates {
				next := "-"
				if t.IsDormant(today) {
					next = "ended"
				} else if d, err := t.NextOccurrence(); err == nil && !d.IsEmpty() {
					next = d.String()
				}
				tw.row(t.ID, t.Description, t.Amount, t.RecurrenceFrequency.DisplayName(),
					dash(t.LastRecurrenceDate.String()), next, dash(t.RecurrenceEndDate.String()))
			}
			return tw.flush()
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"expenses/internal/core"
)

func newExpenseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Record and list expenses",
	}
	cmd.AddCommand(newExpenseAddCmd(a), newExpenseListCmd(a))
	return cmd
}

func newExpenseAddCmd(a *app) *cobra.Command {
	var (
		amount, description, payment, notes string
		frequency, until                    string
		categoryID                          int64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense, or a recurring template with --every",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			date, err := a.today()
			if err != nil {
				return err
			}
			money, err := parseAmount(amount)
			if err != nil {
				return err
			}
			end, err := parseOptionalDate("until", until)
			if err != nil {
				return err
			}

			e := core.ExpenseRecord{
				UserID:              userID,
				Description:         description,
				Amount:              money,
				Date:                date,
				CategoryID:          categoryID,
				PaymentMethod:       core.PaymentMethod(upper(payment)),
				Notes:               notes,
				IsRecurring:         frequency != "",
				RecurrenceFrequency: core.RecurrenceFrequency(upper(frequency)),
				RecurrenceEndDate:   end,
			}
			saved, err := a.svc.Expenses.CreateExpense(cmd.Context(), e)
			if err != nil {
				return err
			}

			kind := "expense"
			if saved.IsRecurring {
				kind = "recurring template"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s #%d: %s %s on %s\n",
				kind, saved.ID, saved.Description, saved.Amount, saved.Date)
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 12.34 or 12,34")
	cmd.Flags().StringVar(&description, "desc", "", "Description")
	cmd.Flags().StringVar(&payment, "payment", string(core.Cash), "Payment method")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().Int64Var(&categoryID, "category", 0, "Category id (0 for none)")
	cmd.Flags().StringVar(&frequency, "every", "", "Recurrence frequency, e.g. MONTHLY")
	cmd.Flags().StringVar(&until, "until", "", "Last date a recurring template may occur on")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("desc")
	return cmd
}

func newExpenseListCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, optionally within a date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			start, err := parseOptionalDate("from", from)
			if err != nil {
				return err
			}
			end, err := parseOptionalDate("to", to)
			if err != nil {
				return err
			}

			expenses, err := a.svc.Expenses.ListExpenses(cmd.Context(), userID, start, end)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout(), "ID", "DATE", "DESCRIPTION", "AMOUNT", "CATEGORY", "PAYMENT", "RECURRING")
			for _, e := range expenses {
				recurring := ""
				if e.IsRecurring {
					recurring = e.RecurrenceFrequency.DisplayName()
				} else if e.SourceTemplateID != 0 {
					recurring = fmt.Sprintf("from #%d", e.SourceTemplateID)
				}
				tw.row(e.ID, e.Date, e.Description, e.Amount, optionalID(e.CategoryID), e.PaymentMethod.DisplayName(), recurring)
			}
			return tw.flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First date, inclusive")
	cmd.Flags().StringVar(&to, "to", "", "Last date, inclusive")
	return cmd
}

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"expenses/internal/backend"
	"expenses/internal/cli"
	"expenses/internal/config"
	"expenses/internal/core"
	applog "expenses/internal/log"
)

// app carries the persistent flags and the services built for one invocation.
type app struct {
	userID int64
	date   string

	logOutput io.Writer
	logger    *slog.Logger
	res       *backend.BackendResult
	cfg       *config.Config
	svc       *cli.Services
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{logOutput: os.Stderr}

	root := &cobra.Command{
		Use:               "budgetctl",
		Short:             "Recurring expenses, budgets and spending reports",
		Long:              "Materialize recurring expenses, track budgets and print spending reports for one user.",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().Int64VarP(&a.userID, "user", "u", 0, "User id")
	root.PersistentFlags().StringVar(&a.date, "date", "", "Reference date YYYY-MM-DD (default: today, UTC)")

	root.AddCommand(
		newExpenseCmd(a),
		newCategoryCmd(a),
		newRecurringCmd(a),
		newBudgetCmd(a),
		newReportCmd(a),
	)
	return root, a
}

// setup loads configuration and wires the services. It runs before every
// subcommand.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	logger := applog.New(applog.Config{Level: level, Component: applog.ComponentCLI, Output: a.logOutput})
	applog.SetDefault(logger)
	a.logger = logger.Logger

	res, err := cli.InitBackend(cmd.Context(), a.logger, cfg)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.res = res
	a.svc = cli.NewServices(cfg, res)
	return nil
}

// close releases the backend, if one was built.
func (a *app) close() {
	if a.res == nil {
		return
	}
	if err := a.res.Cleanup(); err != nil {
		a.logger.Error("Backend cleanup failed", applog.FieldError, err)
	}
	a.res = nil
}

func (a *app) requireUser() (int64, error) {
	if a.userID <= 0 {
		return 0, fmt.Errorf("--user is required and must be positive")
	}
	return a.userID, nil
}

// today returns --date when set, otherwise the current UTC date.
func (a *app) today() (core.Date, error) {
	if a.date == "" {
		return core.DateOf(time.Now().UTC()), nil
	}
	return parseDateFlag("date", a.date)
}

func parseDateFlag(name, value string) (core.Date, error) {
	d, err := core.ParseDate(value)
	if err != nil {
		return core.Date{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

// parseOptionalDate returns the zero Date for an empty flag.
func parseOptionalDate(name, value string) (core.Date, error) {
	if value == "" {
		return core.Date{}, nil
	}
	return parseDateFlag(name, value)
}

func parseAmount(value string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(value)
	if err != nil {
		return core.Money{}, fmt.Errorf("--amount %q: %w", value, err)
	}
	return core.Money{Cents: cents}, nil
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

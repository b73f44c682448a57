package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"expenseflow/internal/core"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (a *app) expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Review and approve expenses",
		Long: `Work with expenses as a given user. --as takes a user id or email and
limits every command to what that user is allowed to see.`,
	}

	var as string
	cmd.PersistentFlags().StringVar(&as, "as", "", "act as this user (id or email)")

	cmd.AddCommand(a.expensesListCmd(&as))
	cmd.AddCommand(a.expensesSummaryCmd(&as))
	cmd.AddCommand(a.expensesStatusCmd(&as, "approve", core.StatusApproved))
	cmd.AddCommand(a.expensesStatusCmd(&as, "reject", core.StatusRejected))
	return cmd
}

func (a *app) expensesListCmd(as *string) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the expenses visible to a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			user, err := s.actor(ctx, *as)
			if err != nil {
				return err
			}
			expenses, err := a.expenseService(s).Visible(ctx, user)
			if err != nil {
				return err
			}
			if status != "" {
				want, err := core.ParseStatus(status)
				if err != nil {
					return err
				}
				filtered := expenses[:0]
				for _, e := range expenses {
					if e.Status == want {
						filtered = append(filtered, e)
					}
				}
				expenses = filtered
			}

			out := cmd.OutOrStdout()
			if len(expenses) == 0 {
				fmt.Fprintln(out, "No expenses found.")
				return nil
			}
			writeExpenses(out, expenses)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show expenses with this status")
	return cmd
}

func writeExpenses(out io.Writer, expenses []core.Expense) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Employee"),
		headerStyle.Render("Date"),
		headerStyle.Render("Category"),
		headerStyle.Render("Amount"),
		headerStyle.Render("Status"),
		headerStyle.Render("Description"))
	for _, e := range expenses {
		amount := mutedStyle.Render("n/a")
		if e.Amount.Valid {
			amount = core.FormatAmount(e.Amount.Decimal) + " " + e.Currency
		}
		date := mutedStyle.Render("n/a")
		if !e.Date.IsZero() {
			date = e.Date.String()
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.EmployeeID, date, e.Category, amount, e.Status, e.Description)
	}
}

func (a *app) expensesSummaryCmd(as *string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the dashboard totals of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			user, err := s.actor(ctx, *as)
			if err != nil {
				return err
			}
			d, err := a.expenseService(s).Dashboard(ctx, user)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sum := d.Summary
			fmt.Fprintf(out, "%s (%s)\n", d.User.Name, d.User.Role)
			fmt.Fprintf(out, "Total: %s %s across %d expenses\n", core.FormatAmount(sum.Total), d.Currency, sum.Count)
			fmt.Fprintf(out, "Pending: %d  Approved: %d  Rejected: %d\n",
				sum.StatusCounts.Pending, sum.StatusCounts.Approved, sum.StatusCounts.Rejected)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "\n%s\t%s\n", headerStyle.Render("Category"), headerStyle.Render("Total"))
			for _, c := range sum.ByCategory {
				fmt.Fprintf(w, "%s\t%s\n", c.Category, core.FormatAmount(c.Total))
			}
			fmt.Fprintf(w, "\n%s\t%s\n", headerStyle.Render("Month"), headerStyle.Render("Total"))
			for _, m := range sum.ByMonth {
				fmt.Fprintf(w, "%s %d\t%s\n", m.Label, m.Year, core.FormatAmount(m.Total))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if n := len(sum.Anomalies); n > 0 {
				fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d records had missing data and count as zero", n)))
			}
			return nil
		},
	}
}

func (a *app) expensesStatusCmd(as *string, verb string, status core.Status) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: "Mark an expense as " + string(status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid expense id %q", args[0])
			}

			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			actor, err := s.actor(ctx, *as)
			if err != nil {
				return err
			}
			updated, err := a.expenseService(s).SetStatus(ctx, actor, id, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expense %d is now %s\n", updated.ID, updated.Status)
			return nil
		},
	}
}

package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/boddenberg/spendsense-go/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List or add expense categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				categories, err := a.expenses.Categories(cmd.Context())
				if err != nil {
					return err
				}
				if len(categories) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render("No categories yet. Use 'spendsense categories add <name>'."))
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintf(w, "%s\t%s\n", headerStyle.Render("ID"), headerStyle.Render("Name"))
				for _, c := range categories {
					fmt.Fprintf(w, "%s\t%s\n", c.ID, c.Name)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				c, err := a.expenses.CreateCategory(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatSuccess(fmt.Sprintf("Created category %s (id %s).", c.Name, c.ID)))
				return nil
			})
		},
	})
	return cmd
}

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Record and review expenses",
	}
	cmd.AddCommand(listExpensesCmd())
	cmd.AddCommand(addExpenseCmd())
	cmd.AddCommand(deleteExpenseCmd())
	cmd.AddCommand(summaryCmd())
	return cmd
}

func listExpensesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				expenses, err := a.expenses.List(cmd.Context())
				if err != nil {
					return err
				}
				categories, err := a.expenses.Categories(cmd.Context())
				if err != nil {
					return err
				}
				names := categoryNames(categories)

				sort.SliceStable(expenses, func(i, j int) bool {
					return expenses[i].OccurredAt.In(a.cfg.Location).After(expenses[j].OccurredAt.In(a.cfg.Location))
				})

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					headerStyle.Render("ID"), headerStyle.Render("Date"), headerStyle.Render("Category"),
					headerStyle.Render("Amount"), headerStyle.Render("Description"))
				for _, e := range expenses {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.OccurredAt, names[e.CategoryID], e.Amount.StringFixed(2), e.Description)
				}
				return nil
			})
		},
	}
}

func addExpenseCmd() *cobra.Command {
	var category, description, date string
	cmd := &cobra.Command{
		Use:   "add <amount>",
		Short: "Record an expense",
		Long: `Record an expense. --category accepts a category ID or name; close
misspellings of a name are matched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return &domain.ValidationError{Messages: []string{"Amount must be a number"}}
			}
			var occurred *domain.Date
			if date != "" {
				d, err := domain.ParseDate(date)
				if err != nil {
					return &domain.ValidationError{Messages: []string{"Date must look like YYYY-MM-DD or MM/DD/YYYY"}}
				}
				occurred = &d
			}

			return withApp(cmd.Context(), func(a *app) error {
				in := domain.ExpenseInput{Amount: amount, Description: description, OccurredAt: occurred}
				if category != "" {
					c, err := a.expenses.ResolveCategory(cmd.Context(), category)
					if err != nil {
						return err
					}
					in.CategoryID = c.ID
				}
				e, err := a.expenses.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatSuccess(fmt.Sprintf("Recorded %s (id %s).", e.Amount.StringFixed(2), e.ID)))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "category ID or name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "what the money was spent on")
	cmd.Flags().StringVar(&date, "date", "", "date of the expense (default: today)")
	return cmd
}

func deleteExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if err := a.expenses.Delete(cmd.Context(), domain.ID(args[0])); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatSuccess("Expense deleted."))
				return nil
			})
		},
	}
}

func summaryCmd() *cobra.Command {
	var q domain.SummaryQuery
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the backend's spending summary for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				now := a.now()
				if q.Month == 0 {
					q.Month = int(now.Month())
				}
				if q.Year == 0 {
					q.Year = now.Year()
				}
				s, err := a.expenses.Summary(cmd.Context(), q)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Spending %02d/%d", q.Month, q.Year)))
				fmt.Fprintf(out, "Total: %s over %d days (%s/day)\n", s.TotalExpense.StringFixed(2), s.TotalDays, s.AveragePerDay.StringFixed(2))
				printByCategory(out, s.ByCategory)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&q.Month, "month", 0, "month 1-12 (default: current)")
	cmd.Flags().IntVar(&q.Year, "year", 0, "year (default: current)")
	cmd.Flags().IntVar(&q.Day, "day", 0, "restrict to a day of the month")
	cmd.Flags().IntVar(&q.Week, "week", 0, "restrict to a week of the month")
	cmd.Flags().IntVar(&q.Quarter, "quarter", 0, "restrict to a quarter 1-4")
	return cmd
}

func categoryNames(categories []domain.Category) map[domain.ID]string {
	names := make(map[domain.ID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}

// printByCategory prints totals sorted by amount, largest first.
func printByCategory(out io.Writer, totals map[string]decimal.Decimal) {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := totals[keys[i]].Cmp(totals[keys[j]]); c != 0 {
			return c > 0
		}
		return keys[i] < keys[j]
	})

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\t%s\n", k, totals[k].StringFixed(2))
	}
	if len(keys) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("  no spending recorded"))
	}
}

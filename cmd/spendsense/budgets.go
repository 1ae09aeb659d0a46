package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/boddenberg/spendsense-go/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Define budgets and check how they are tracking",
	}
	cmd.AddCommand(listBudgetsCmd())
	cmd.AddCommand(addBudgetCmd())
	cmd.AddCommand(deleteBudgetCmd())
	cmd.AddCommand(budgetStatusCmd())
	return cmd
}

func listBudgetsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				budgets, err := a.budgets.List(cmd.Context(), !all)
				if err != nil {
					return err
				}
				categories, err := a.expenses.Categories(cmd.Context())
				if err != nil {
					return err
				}
				names := categoryNames(categories)

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					headerStyle.Render("ID"), headerStyle.Render("Category"), headerStyle.Render("Period"),
					headerStyle.Render("Limit"), headerStyle.Render("Alert at"), headerStyle.Render("Active"))
				for _, b := range budgets {
					category := "Overall"
					if !b.Overall() {
						category = names[*b.CategoryID]
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s%%\t%t\n", b.ID, category, b.Period,
						b.Limit.StringFixed(2), b.AlertThreshold.Shift(2).StringFixed(0), b.Active)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include inactive budgets")
	return cmd
}

func addBudgetCmd() *cobra.Command {
	var category, period, threshold, start, end string
	cmd := &cobra.Command{
		Use:   "add <limit>",
		Short: "Create a budget",
		Long: `Create a spending limit for a period. Without --category the budget
covers all categories. --threshold is the fraction of the limit at which the
budget is reported as near its limit (default 0.8).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := domain.BudgetInput{Period: domain.Period(period)}

			var v domain.Validation
			limit, err := decimal.NewFromString(args[0])
			v.Check(err == nil, "Budget amount must be a number")
			in.Limit = limit
			if threshold != "" {
				t, err := decimal.NewFromString(threshold)
				v.Check(err == nil, "Alert threshold must be a number")
				in.AlertThreshold = &t
			}
			in.StartDate = parseDateFlag(&v, start, "Start date")
			in.EndDate = parseDateFlag(&v, end, "End date")
			if err := v.Err(); err != nil {
				return err
			}

			return withApp(cmd.Context(), func(a *app) error {
				if category != "" {
					c, err := a.expenses.ResolveCategory(cmd.Context(), category)
					if err != nil {
						return err
					}
					in.CategoryID = &c.ID
				}
				b, err := a.budgets.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatSuccess(fmt.Sprintf("Created %s budget of %s (id %s).", b.Period, b.Limit.StringFixed(2), b.ID)))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "category ID or name (default: overall)")
	cmd.Flags().StringVarP(&period, "period", "p", string(domain.PeriodMonthly), "daily, weekly, monthly or yearly")
	cmd.Flags().StringVar(&threshold, "threshold", "", "alert threshold between 0 and 1")
	cmd.Flags().StringVar(&start, "start", "", "first day the budget applies")
	cmd.Flags().StringVar(&end, "end", "", "last day the budget applies")
	return cmd
}

func parseDateFlag(v *domain.Validation, s, label string) *domain.Date {
	if s == "" {
		return nil
	}
	d, err := domain.ParseDate(s)
	v.Check(err == nil, label+" must look like YYYY-MM-DD or MM/DD/YYYY")
	if err != nil {
		return nil
	}
	return &d
}

func deleteBudgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if err := a.budgets.Delete(cmd.Context(), domain.ID(args[0])); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatSuccess("Budget deleted."))
				return nil
			})
		},
	}
}

func budgetStatusCmd() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show how each active budget is tracking in its current period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				var statuses []domain.BudgetStatus
				if remote {
					s, err := a.budgets.RemoteStatus(cmd.Context())
					if err != nil {
						return err
					}
					statuses = s
				} else {
					d, err := a.dashboard.Load(cmd.Context(), a.now())
					if err != nil {
						return err
					}
					statuses = d.Statuses
				}
				printStatuses(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "use the backend's totals instead of evaluating locally")
	return cmd
}

func printStatuses(out io.Writer, statuses []domain.BudgetStatus) {
	if len(statuses) == 0 {
		fmt.Fprintln(out, subtleStyle.Render("No active budgets. Use 'spendsense budgets add' to create one."))
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("Budget"), headerStyle.Render("Period"), headerStyle.Render("Spent"),
		headerStyle.Render("Limit"), headerStyle.Render("Used"), headerStyle.Render("Status"))
	for _, st := range statuses {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			st.CategoryName, st.Budget.Period, st.Spent.StringFixed(2), st.Limit.StringFixed(2),
			formatPercent(st.PercentUsed),
			classificationStyle(st.Classification).Render(string(st.Classification)))
	}
}

// formatPercent renders percent used; "n/a" when the limit is zero.
func formatPercent(p decimal.NullDecimal) string {
	if !p.Valid {
		return "n/a"
	}
	return p.Decimal.StringFixed(1) + "%"
}

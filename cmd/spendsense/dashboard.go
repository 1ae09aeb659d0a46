package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/spendsense-go/internal/handler"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show this month's spending and every budget's status",
		Long: `Show this month's spending and every budget's status.

Budgets that are near or over their limit are reported on every run. Under
'spendsense serve' an alert is raised only when a budget's status gets worse
than the last status seen by that server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				d, err := a.dashboard.Load(cmd.Context(), a.now())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s %d", d.MonthStart.Month(), d.MonthStart.Year())))
				fmt.Fprintln(out, boxStyle.Render("Spent this month: "+headerStyle.Render(d.TotalSpent.StringFixed(2))))
				printByCategory(out, d.ByCategory)
				fmt.Fprintln(out)
				printStatuses(out, d.Statuses)

				for _, alert := range d.Alerts {
					fmt.Fprintln(out, formatWarning(fmt.Sprintf("%s budget is %s: %s of %s spent",
						alert.CategoryName, strings.ReplaceAll(string(alert.Classification), "_", " "),
						alert.Spent.StringFixed(2), alert.Limit.StringFixed(2))))
				}
				return nil
			})
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the AI assistant about your spending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				answer, err := a.assistant.Ask(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, answer.Response)
				for _, s := range answer.Suggestions {
					fmt.Fprintln(out, subtleStyle.Render("  • "+s))
				}
				return nil
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the client as a local JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == 0 {
				port = cfg.ServePort
			}
			return withApp(cmd.Context(), func(a *app) error {
				router := handler.NewRouter(handler.Services{
					Session:   a.session,
					Expenses:  a.expenses,
					Budgets:   a.budgets,
					Dashboard: a.dashboard,
					Assistant: a.assistant,
					Probe:     a.api,
					Now:       a.now,
				}, a.metrics, a.logger)
				return serve(cmd.Context(), router, port, a.logger)
			})
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from serve.port)")
	return cmd
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, h http.Handler, port int, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", port),
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

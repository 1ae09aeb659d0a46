package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/boddenberg/spendsense-go/internal/config"
	"github.com/boddenberg/spendsense-go/internal/infra/observability"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	version = "dev"

	v      = viper.New()
	cfg    *config.Config
	logger = zap.NewNop()

	rootCmd = &cobra.Command{
		Use:   "spendsense",
		Short: "Track expenses and budgets against your SpendSense account",
		Long: `spendsense is the command-line client for a SpendSense backend.

It keeps you logged in between runs, records expenses, evaluates budgets
for the current period and can serve the same data as a local JSON API.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  initConfig,
		PersistentPostRunE: flushLogs,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/spendsense/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(expensesCmd())
	rootCmd.AddCommand(budgetsCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	loaded, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = observability.NewLogger(cfg.LogLevel)
	logger.Debug("configuration loaded",
		zap.String("api_url", cfg.APIURL),
		zap.String("session_driver", cfg.SessionDriver),
		zap.String("timezone", cfg.Location.String()),
		zap.Stringer("week_start", cfg.WeekStart),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
	)
	return nil
}

func flushLogs(_ *cobra.Command, _ []string) error {
	_ = logger.Sync()
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "spendsense", version)
		},
	}
}

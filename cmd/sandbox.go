package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/carryon-app/carryon/internal/logging"
	"github.com/carryon-app/carryon/internal/sandbox"
	"github.com/carryon-app/carryon/pkg/output"
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Run a local backend with demo data",
	Long: `Start an in-memory carryon backend seeded with fake users, routes, trips
and orders. Point a profile at it with 'carryon auth login --api-url'.
Log in as ` + sandbox.DemoEmail + ` / ` + sandbox.DemoPassword + `.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		addr, _ := flags.GetString("addr")
		seed, _ := flags.GetInt64("seed")
		ttl, _ := flags.GetDuration("token-ttl")

		level, _ := flags.GetString("log-level")
		if level == "" {
			level = "info"
		}
		logFormat, _ := flags.GetString("log-format")
		if logFormat == "" {
			logFormat = cfg.Defaults.LogFormat
		}
		logger := logging.New(logging.ParseLevel(level), logFormat)

		sbCfg := sandbox.DefaultConfig()
		sbCfg.Seed = seed
		sbCfg.AccessTTL = ttl
		srv, err := sandbox.New(sbCfg, logger)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		output.Info("Sandbox listening on %s (demo login %s)", addr, sandbox.DemoEmail)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(sandboxCmd)

	defaults := sandbox.DefaultConfig()
	sandboxCmd.Flags().String("addr", ":8089", "Listen address")
	sandboxCmd.Flags().Int64("seed", defaults.Seed, "Seed for the generated data")
	sandboxCmd.Flags().Duration("token-ttl", defaults.AccessTTL, "Access token lifetime")
}

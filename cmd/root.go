package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/carryon-app/carryon/internal/api"
	"github.com/carryon-app/carryon/internal/client"
	"github.com/carryon-app/carryon/internal/config"
	"github.com/carryon-app/carryon/internal/logging"
	"github.com/carryon-app/carryon/internal/session"
	"github.com/carryon-app/carryon/pkg/output"
)

const version = "0.1.0"

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "carryon",
	Short: "carryon command-line client",
	Long: `carryon is the command-line client for the carryon travel shopping service.

Sign in, browse routes and trips, place and track shopping orders, answer
quotes and read notifications from your terminal. Run 'carryon sandbox' for a
local backend with demo data.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		output.Error("%v", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.carryon/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: current profile)")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json")
	rootCmd.PersistentFlags().String("metrics-file", "", "write request metrics to this file in Prometheus text format")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		output.Warn("Could not load config: %v", err)
		cfg = config.Default()
	}
}

// env is everything a command needs to talk to the backend.
type env struct {
	profile  string
	format   output.Format
	logger   *logging.Logger
	api      *api.Client
	session  *session.Manager
	client   *client.Client
	registry *prometheus.Registry
	metrics  string
	close    func() error
}

func newEnv(cmd *cobra.Command) (*env, error) {
	flags := cmd.Flags()
	profile := profileName(cmd)

	rawFormat, _ := flags.GetString("output")
	format, err := output.ParseFormat(rawFormat)
	if err != nil {
		return nil, err
	}

	level, _ := flags.GetString("log-level")
	if level == "" {
		level = cfg.Defaults.LogLevel
	}
	logFormat, _ := flags.GetString("log-format")
	if logFormat == "" {
		logFormat = cfg.Defaults.LogFormat
	}
	logger := logging.New(logging.ParseLevel(level), logFormat).With(logging.Profile(profile))
	logging.SetDefault(logger)

	registry := prometheus.NewRegistry()
	apiClient, err := api.New(cfg.APIConfig(profile, version),
		api.WithLogger(logger),
		api.WithMetrics(api.NewMetrics(registry)),
	)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := session.OpenStore(cfg.Defaults.TokenStore)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	mgr := session.NewManager(store, profile, nil, session.WithLogger(logger))
	c := client.New(apiClient, mgr)
	mgr.SetRefresher(c.Auth)

	metricsFile, _ := flags.GetString("metrics-file")

	return &env{
		profile:  profile,
		format:   format,
		logger:   logger,
		api:      apiClient,
		session:  mgr,
		client:   c,
		registry: registry,
		metrics:  metricsFile,
		close:    closeStore,
	}, nil
}

// profileName returns --profile, the current profile, or "default".
func profileName(cmd *cobra.Command) string {
	if profile, _ := cmd.Flags().GetString("profile"); profile != "" {
		return profile
	}
	if cfg.CurrentProfile != "" {
		return cfg.CurrentProfile
	}
	return "default"
}

// run builds an env, calls fn and sends any error through the client
// error handler.
func run(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	err = fn(ctx, e)
	if e.metrics != "" {
		if werr := prometheus.WriteToTextfile(e.metrics, e.registry); werr != nil {
			output.Warn("Could not write metrics: %v", werr)
		}
	}
	if errors.Is(err, session.ErrNotLoggedIn) {
		err = fmt.Errorf("%w, run 'carryon auth login' first", err)
	}
	return client.HandleError(ctx, e.logger, e.api.Locale(), err)
}

// stdinOr returns s, or the first line of stdin when s is "-".
func stdinOr(s string) (string, error) {
	if s != "-" {
		return s, nil
	}
	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	return line, nil
}

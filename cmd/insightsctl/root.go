package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"smartexpense/internal/analytics"
	"smartexpense/internal/backend"
	"smartexpense/internal/cli"
	"smartexpense/internal/config"
	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

var (
	flagDB      string
	flagUser    string
	flagDate    string
	flagBackend string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:          "insightsctl",
	Short:        "Financial insights from the terminal",
	Long:         "Summaries, insights, budgets and saving goals computed from your recorded transactions.",
	SilenceUsage: true,
	RunE:         runSummary,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (selects the sqlite backend)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "User id (default: DEMO_USER_ID)")
	rootCmd.PersistentFlags().StringVarP(&flagDate, "date", "d", "", "Reference date YYYY-MM-DD (default: today)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Data backend: "+fmt.Sprint(backend.GetBackendTypeStrings()))
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log to stderr")
}

// session bundles what every command needs.
type session struct {
	cfg    *config.Config
	logger *log.Logger
	res    *backend.BackendResult
	engine *analytics.Engine
	user   core.UserID
	ref    core.Date
}

func (s *session) Close() {
	if err := s.res.Close(); err != nil {
		s.logger.Warn("Backend close error", log.FieldError, err.Error())
	}
}

// openSession resolves flags over configuration and opens the backend.
// Demo data is only auto-seeded for the in-memory backend; persistent
// stores are seeded explicitly with the seed command.
func openSession(ctx context.Context, autoSeed bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagBackend != "" {
		cfg.DataBackend = flagBackend
	}
	if flagDB != "" {
		cfg.DataBackend = string(backend.SQLiteBackend)
		cfg.SQLiteDBPath = flagDB
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var out io.Writer = io.Discard
	if flagVerbose {
		out = os.Stderr
	}
	logger := cli.SetupLogger(cfg, out).WithComponent(log.ComponentCLI)

	ref := core.Today()
	if flagDate != "" {
		if ref, err = core.ParseDate(flagDate); err != nil {
			return nil, fmt.Errorf("--date: %w", err)
		}
	}
	user := core.UserID(cfg.DemoUserID)
	if flagUser != "" {
		user = core.UserID(flagUser)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	backendCfg.SeedDemo = autoSeed && backendCfg.SeedDemo && backendCfg.Type == backend.MemoryBackend
	backendCfg.DemoUser = user
	backendCfg.SeedMonth = ref

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		logger: logger,
		res:    res,
		engine: analytics.NewEngine(res.Store, logger),
		user:   user,
		ref:    ref,
	}, nil
}

// withSession runs fn against an open session bounded by the configured
// request timeout.
func withSession(fn func(ctx context.Context, s *session, w io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd.Context(), cmd.Name() != "seed")
		if err != nil {
			return err
		}
		defer s.Close()

		timeout := s.cfg.RequestTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return fn(ctx, s, cmd.OutOrStdout())
	}
}

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.RenderTitle(title))
	fmt.Fprintln(w)
}

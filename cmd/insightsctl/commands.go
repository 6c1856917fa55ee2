package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"smartexpense/internal/amqp"
	"smartexpense/internal/backend"
	"smartexpense/internal/cli"
	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
)

var runSummary = withSession(func(ctx context.Context, s *session, w io.Writer) error {
	d, err := s.engine.Dashboard(ctx, s.user, s.ref)
	if err != nil {
		return err
	}
	printTitle(w, fmt.Sprintf("SUMMARY  %s  %s", s.user, core.MonthKey(s.ref)))
	fmt.Fprint(w, cli.RenderDashboard(d))
	return nil
})

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "All-time totals, the month overview and top categories",
	RunE:  runSummary,
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Saving rate, month-over-month change, spikes and recommendations",
	RunE: withSession(func(ctx context.Context, s *session, w io.Writer) error {
		in, err := s.engine.Insights(ctx, s.user, s.ref)
		if err != nil {
			return err
		}
		printTitle(w, "INSIGHTS  "+in.Month)
		fmt.Fprint(w, cli.RenderInsights(in))
		return nil
	}),
}

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Monthly series for income, expenses, savings and goal contributions",
	RunE: withSession(func(ctx context.Context, s *session, w io.Writer) error {
		c, err := s.engine.Charts(ctx, s.user)
		if err != nil {
			return err
		}
		printTitle(w, "TRENDS")
		fmt.Fprint(w, cli.RenderCharts(c))
		return nil
	}),
}

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Saving goal progress",
	RunE: withSession(func(ctx context.Context, s *session, w io.Writer) error {
		goals, err := s.engine.Goals(ctx, s.user)
		if err != nil {
			return err
		}
		printTitle(w, "SAVING GOALS")
		fmt.Fprint(w, cli.RenderGoals(goals))
		return nil
	}),
}

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Budget status for the reference month",
	RunE: withSession(func(ctx context.Context, s *session, w io.Writer) error {
		status, err := s.engine.BudgetStatus(ctx, s.user, s.ref)
		if err != nil {
			return err
		}
		printTitle(w, "BUDGET  "+status.Month)
		fmt.Fprint(w, cli.RenderBudget(status))
		return nil
	}),
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write a month of demo records for --user into the reference month",
	Long: "Write a month of demo records for --user into the reference month.\n" +
		"When AMQP_URL is set a record-changed event is published so running servers drop cached views.",
	RunE: withSession(func(ctx context.Context, s *session, w io.Writer) error {
		if s.res.Writer == nil {
			return fmt.Errorf("seed %s: %w", s.cfg.DataBackend, backend.ErrReadOnly)
		}
		month := core.MonthKey(s.ref)
		if err := records.SeedDemo(ctx, s.res.Writer, s.user, s.ref); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "Demo data written",
			log.FieldOperation, log.OpSeed, log.FieldUserID, string(s.user), log.FieldMonth, month)
		fmt.Fprintf(w, "  Seeded demo data for %s in %s\n", s.user, month)

		if s.cfg.DataBackend == string(backend.MemoryBackend) {
			fmt.Fprintln(w, "  (memory backend: data is discarded on exit)")
			return nil
		}
		return publishRecordChanged(ctx, s, w, month)
	}),
}

func publishRecordChanged(ctx context.Context, s *session, w io.Writer, month string) error {
	broker, err := cli.ConnectAMQP(s.cfg, s.logger)
	if err != nil {
		return err
	}
	if broker == nil {
		return nil
	}
	defer broker.Close()

	msg := amqp.NewRecordChangedMessage(s.user, "", month)
	if err := broker.PublishRecordChanged(ctx, msg); err != nil {
		return fmt.Errorf("publish record-changed event: %w", err)
	}
	fmt.Fprintf(w, "  Published record-changed event %s\n", msg.EventID)
	return nil
}

func init() {
	rootCmd.AddCommand(summaryCmd, insightsCmd, chartsCmd, goalsCmd, budgetCmd, seedCmd)
}

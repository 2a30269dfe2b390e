package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/djlord-it/easy-announce/internal/analytics"
	"github.com/djlord-it/easy-announce/internal/domain"
	"github.com/djlord-it/easy-announce/internal/store/postgres"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the run history (needs DATABASE_URL)",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the daily counters for the group (needs REDIS_ADDR)",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	historyCmd.Flags().Int("limit", 10, "number of runs to show")
	statsCmd.Flags().String("date", "", "day to show as YYYY-MM-DD (default: today, UTC)")
	rootCmd.AddCommand(historyCmd, statsCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return exitWith(exitInvalidConfig, errors.New("DATABASE_URL: required for history"))
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.DBOpTimeout)
	defer cancel()
	runs, err := postgres.New(db).ListRuns(ctx, cfg.GroupURL, limit)
	if err != nil {
		return err
	}

	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func printRuns(w io.Writer, runs []domain.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %-8s processed=%d announced=%d already=%d failed=%d notified=%t\n",
			r.StartedAt.UTC().Format(time.RFC3339), r.ID, r.Result,
			r.Summary.Processed, r.Summary.Announced, r.Summary.AlreadyAnnounced, r.Summary.Failed, r.Notified)
		if r.FatalReason != "" {
			fmt.Fprintf(w, "    fatal: %s\n", r.FatalReason)
		}
		for _, f := range r.Summary.FailureDetails {
			fmt.Fprintf(w, "    failed: %s %s: %s\n", f.Date, f.URL, f.Reason)
		}
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.RedisAddr == "" {
		return exitWith(exitInvalidConfig, errors.New("REDIS_ADDR: required for stats"))
	}

	day := time.Now().UTC()
	if raw, _ := cmd.Flags().GetString("date"); raw != "" {
		day, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return exitWith(exitInvalidConfig, fmt.Errorf("--date: %w", err))
		}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.DBOpTimeout)
	defer cancel()
	counts, err := analytics.NewRedisSink(client).Daily(ctx, cfg.GroupURL, day)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", analytics.GroupKey(cfg.GroupURL), day.Format("2006-01-02"))
	for _, field := range analytics.Fields {
		fmt.Fprintf(out, "  %-18s %d\n", field, counts[field])
	}
	return nil
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/internal/usecase"
)

var (
	maxJobs       int
	continuous    bool
	sleepInterval time.Duration
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process pending crawl jobs",
	Long: `Claims pending jobs in priority order and processes them one at a time.

Without --continuous the command stops once no job is pending or --max-jobs
jobs were processed. SIGINT and SIGTERM stop it after the current job.`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <url>...",
	Short: "Create crawl jobs for URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEnqueue,
}

var (
	enqueuePriority int
	enqueueKind     string
)

func init() {
	processCmd.Flags().IntVar(&maxJobs, "max-jobs", 0, "stop after this many jobs (0 means no limit)")
	processCmd.Flags().BoolVar(&continuous, "continuous", false, "keep polling for new jobs")
	processCmd.Flags().DurationVar(&sleepInterval, "sleep-interval", 0, "idle sleep in continuous mode (default from processor.sleep_interval)")
	rootCmd.AddCommand(processCmd)

	enqueueCmd.Flags().Int64Var(&sourceID, "source-id", 0, "id of the owning source")
	enqueueCmd.Flags().IntVar(&enqueuePriority, "priority", 0, "job priority, higher runs sooner")
	enqueueCmd.Flags().StringVar(&enqueueKind, "kind", "", "job kind: single_url or sitemap (inferred from the URL when empty)")
	_ = enqueueCmd.MarkFlagRequired("source-id")
	rootCmd.AddCommand(enqueueCmd)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	stats, err := a.processor().Run(ctx, usecase.RunOptions{
		MaxJobs:       maxJobs,
		Continuous:    continuous,
		SleepInterval: sleepInterval,
	})
	a.logger.Info("processing finished",
		zap.String("run_id", stats.RunID),
		zap.Int("processed", stats.Processed),
		zap.Int("completed", stats.Completed),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("retried", stats.Retried),
		zap.Int("failed", stats.Failed),
		zap.Int("rejected", stats.Rejected),
		zap.Int("interrupted", stats.Interrupted),
	)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "processed %d jobs: %d completed, %d duplicates, %d retried, %d failed, %d rejected\n",
		stats.Processed, stats.Completed, stats.Duplicates, stats.Retried, stats.Failed, stats.Rejected)
	return err
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	m := usecase.NewURLManager(a.jobs, a.logger)
	for _, u := range args {
		res, err := m.Submit(ctx, usecase.SubmitRequest{
			URL:      u,
			SourceID: sourceID,
			Kind:     entity.JobKind(enqueueKind),
			Priority: enqueuePriority,
		})
		if err != nil {
			return err
		}
		state := "created"
		if !res.Created {
			state = "already active"
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", res.JobID, res.Kind, state, res.URL); err != nil {
			return err
		}
	}
	return nil
}

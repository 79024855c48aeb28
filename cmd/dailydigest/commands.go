package main

import (
	"fmt"

	"github.com/pizzanicky/BettaFish4WGD/internal/ingest"
	"github.com/pizzanicky/BettaFish4WGD/internal/scheduler"
	"github.com/spf13/cobra"
)

func newCrawlCmd() *cobra.Command {
	var maxCount int

	cmd := &cobra.Command{
		Use:   "crawl <keyword>",
		Short: "Run the crawler once for a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer d.Close()

			res := d.service.RunCrawl(cmd.Context(), args[0], maxCount)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return errUnsuccessful
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxCount, "max", 0, "maximum posts to crawl (default CRAWL_MAX_COUNT)")
	return cmd
}

func newDigestCmd() *cobra.Command {
	var (
		hours      int
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "digest <keyword>",
		Short: "Summarise posts already crawled for a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer d.Close()

			res := d.service.RunDigest(cmd.Context(), args[0], hours)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if err := writeReport(reportPath, args[0], res); err != nil {
				return err
			}
			if !res.Success {
				return errUnsuccessful
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 0, "lookback window in hours (default DIGEST_WINDOW_HOURS)")
	cmd.Flags().StringVar(&reportPath, "report", "", "also write an HTML report to this path")
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		hours      int
		maxCount   int
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "run <keyword>",
		Short: "Crawl a keyword, then digest it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer d.Close()

			res := d.service.RunCrawlAndDigest(cmd.Context(), args[0], hours, maxCount)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if err := writeReport(reportPath, args[0], res.Digest); err != nil {
				return err
			}
			if !res.CrawlSuccess || !res.Digest.Success {
				return errUnsuccessful
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 0, "lookback window in hours (default DIGEST_WINDOW_HOURS)")
	cmd.Flags().IntVar(&maxCount, "max", 0, "maximum posts to crawl (default CRAWL_MAX_COUNT)")
	cmd.Flags().StringVar(&reportPath, "report", "", "also write an HTML report to this path")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the jobs file on DIGEST_SCHEDULE until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := newDeps(ctx, true)
			if err != nil {
				return err
			}
			defer d.Close()

			jobs, err := ingest.LoadJobs(d.cfg.JobsFile, d.cfg.MaxCount, d.cfg.WindowHours)
			if err != nil {
				return fmt.Errorf("load jobs: %w", err)
			}
			if len(jobs) == 0 {
				return fmt.Errorf("no valid jobs in %s", d.cfg.JobsFile)
			}

			s, err := scheduler.New(d.cfg.Schedule, d.service, jobs, d.cfg.OutDir, d.logger)
			if err != nil {
				return err
			}
			if runNow {
				s.RunOnce(ctx)
			}
			s.Start()
			<-ctx.Done()
			d.logger.Info("Shutdown signal received")
			s.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "now", false, "run every job once before waiting for the schedule")
	return cmd
}

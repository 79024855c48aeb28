// Command scraper is a reference crawl backend. It reads KEYWORDS and
// CRAWLER_MAX_NOTES_COUNT from the crawler config file, searches Reddit for
// each keyword and upserts the posts into the shared posts table.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pizzanicky/BettaFish4WGD/internal/collector"
	"github.com/pizzanicky/BettaFish4WGD/internal/config"
	"github.com/pizzanicky/BettaFish4WGD/internal/crawlconf"
	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
	"github.com/pizzanicky/BettaFish4WGD/internal/storage"
	"github.com/spf13/cobra"
)

type options struct {
	platform   string
	loginType  string
	crawlType  string
	saveOption string
	configPath string
	keywords   []string
	maxCount   int
	workers    int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:          "scraper",
		Short:        "Search Reddit for the configured keywords and store the posts",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScraper(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.platform, "platform", "reddit", "platform to crawl")
	f.StringVar(&o.loginType, "lt", "qrcode", "login type (ignored by this backend)")
	f.StringVar(&o.crawlType, "type", "search", "crawl type")
	f.StringVar(&o.saveOption, "save_data_option", "db", "storage: postgresql, sqlite or db (DATABASE_DRIVER)")
	f.StringVar(&o.configPath, "config", "config/base_config.py", "crawler config file holding KEYWORDS and CRAWLER_MAX_NOTES_COUNT")
	f.StringSliceVar(&o.keywords, "keywords", nil, "keywords to search, overriding the config file")
	f.IntVar(&o.maxCount, "max", 0, "posts per keyword, overriding the config file")
	f.IntVar(&o.workers, "workers", 0, "concurrent searches (default depends on COLLECTOR_MODE)")
	return cmd
}

func runScraper(cmd *cobra.Command, o options) error {
	// 1. Setup
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	if o.platform != "reddit" {
		return fmt.Errorf("unsupported platform %q", o.platform)
	}
	if o.crawlType != "search" {
		return fmt.Errorf("unsupported crawl type %q", o.crawlType)
	}
	driver, err := storageDriver(o.saveOption, cfg.DatabaseDriver)
	if err != nil {
		return err
	}

	// 2. Load Inputs
	keywords, maxCount, err := resolveTargets(o)
	if err != nil {
		logger.Error("Invalid crawler config", "path", o.configPath, "error", err)
		return err
	}

	// 3. Initialize Client (Using Factory)
	mode := os.Getenv("COLLECTOR_MODE")
	client, err := collector.NewCollector(mode)
	if err != nil {
		logger.Error("Failed to initialize collector", "error", err)
		return err
	}
	logger.Info("Collector initialized", "mode", mode)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, driver, cfg.DatabaseURL, storage.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to open storage", "driver", driver, "error", err)
		return err
	}
	defer store.Close()

	workers := o.workers
	if workers <= 0 {
		// Adjust workers based on mode to prevent rate limiting
		workers = 4
		if mode == "public" {
			workers = 2
		}
	}
	return scrape(ctx, client, store, keywords, maxCount, workers, logger)
}

// resolveTargets merges command-line overrides with the crawler config file.
func resolveTargets(o options) ([]string, int, error) {
	keywords, maxCount := o.keywords, o.maxCount
	if len(keywords) == 0 || maxCount <= 0 {
		vals, err := crawlconf.ReadValues(o.configPath)
		if err != nil {
			return nil, 0, err
		}
		if len(keywords) == 0 {
			keywords = vals.List(crawlconf.KeyKeywords)
		}
		if maxCount <= 0 {
			maxCount = vals.Int(crawlconf.KeyMaxCount, 20)
		}
	}
	if len(keywords) == 0 {
		return nil, 0, errors.New("no keywords configured")
	}
	if maxCount <= 0 {
		return nil, 0, fmt.Errorf("invalid max count %d", maxCount)
	}
	return keywords, maxCount, nil
}

func storageDriver(option, configured string) (string, error) {
	switch option {
	case "postgresql", "postgres":
		return "postgres", nil
	case "sqlite":
		return "sqlite", nil
	case "db", "":
		return configured, nil
	default:
		return "", fmt.Errorf("unsupported save_data_option %q", option)
	}
}

// scrape fans keywords out to workers and funnels every post through a
// single writer. It fails if any search or any write failed.
func scrape(ctx context.Context, client domain.Collector, repo domain.PostRepository, keywords []string, maxCount, workers int, logger *slog.Logger) error {
	jobQueue := make(chan string, len(keywords))
	resultQueue := make(chan domain.Post, 100)
	var workerWg sync.WaitGroup
	var writerWg sync.WaitGroup

	writer := &storage.WriterService{Repo: repo, Logger: logger}
	writerWg.Add(1)
	go writer.Start(ctx, &writerWg, resultQueue)

	var (
		mu       sync.Mutex
		failures []error
	)
	for range min(workers, len(keywords)) {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for kw := range jobQueue {
				if ctx.Err() != nil {
					return
				}
				posts, err := client.SearchPosts(ctx, kw, maxCount)
				if err != nil {
					logger.Error("Search failed", "keyword", kw, "error", err)
					mu.Lock()
					failures = append(failures, fmt.Errorf("%s: %w", kw, err))
					mu.Unlock()
					continue
				}
				logger.Info("Search finished", "keyword", kw, "posts", len(posts))
				for _, p := range posts {
					resultQueue <- p
				}
			}
		}()
	}

	logger.Info("Starting scrape cycle", "keywords", len(keywords), "max_count", maxCount)
	for _, kw := range keywords {
		jobQueue <- kw
	}
	close(jobQueue)

	workerWg.Wait()
	close(resultQueue)
	writerWg.Wait()

	written, failed := writer.Stats()
	logger.Info("Scrape complete", "written", written, "failed", failed)

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		failures = append(failures, fmt.Errorf("%d posts could not be stored", failed))
	}
	return errors.Join(failures...)
}

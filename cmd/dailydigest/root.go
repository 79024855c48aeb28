package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pizzanicky/BettaFish4WGD/internal/brain"
	"github.com/pizzanicky/BettaFish4WGD/internal/config"
	"github.com/pizzanicky/BettaFish4WGD/internal/crawler"
	"github.com/pizzanicky/BettaFish4WGD/internal/digest"
	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
	"github.com/pizzanicky/BettaFish4WGD/internal/pipeline"
	"github.com/pizzanicky/BettaFish4WGD/internal/report"
	"github.com/pizzanicky/BettaFish4WGD/internal/storage"
	"github.com/spf13/cobra"
)

// errUnsuccessful makes the process exit non-zero after a failed result has
// been printed.
var errUnsuccessful = errors.New("operation did not succeed")

var rootCmd = &cobra.Command{
	Use:           "dailydigest",
	Short:         "Crawl keywords and generate daily digests",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() error {
	// Load .env file early so environment variables are available
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errUnsuccessful) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.AddCommand(
		newCrawlCmd(),
		newDigestCmd(),
		newRunCmd(),
		newScheduleCmd(),
	)
}

// deps is everything a subcommand needs, built from the environment.
type deps struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *storage.PostStore
	service *pipeline.Service
}

func (d *deps) Close() error {
	return d.store.Close()
}

// newDeps wires storage, the crawl invoker and the digest generator. The
// language model is only required when needModel is set.
func newDeps(ctx context.Context, needModel bool) (*deps, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	store, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	var model domain.LanguageModel
	client, err := brain.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiRPM, logger)
	switch {
	case err == nil:
		model = client
	case needModel:
		_ = store.Close()
		return nil, err
	default:
		logger.Debug("Language model unavailable", "error", err)
	}

	invoker := crawler.NewInvoker(crawler.Options{
		Command:        cfg.CrawlerCommand,
		Dir:            cfg.CrawlerDir,
		ConfigPath:     cfg.CrawlerConfig,
		Storage:        cfg.CrawlerStorage,
		Timeout:        cfg.CrawlerTimeout,
		SettleAttempts: cfg.CrawlSettleAttempts,
		SettleInterval: cfg.CrawlSettleInterval,
	}, store, logger)

	svc := pipeline.NewService(invoker, digest.NewGenerator(store, model, logger), logger)
	svc.WindowHours = cfg.WindowHours
	svc.MaxCount = cfg.MaxCount
	svc.CrawlTimeout = cfg.CrawlerTimeout

	return &deps{cfg: cfg, logger: logger, store: store, service: svc}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReport(path, keyword string, res domain.DigestResult) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.Render(f, keyword, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

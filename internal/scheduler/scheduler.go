// Package scheduler runs crawl-and-digest jobs on a cron schedule and writes
// each result to disk.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
	"github.com/pizzanicky/BettaFish4WGD/internal/report"
	"github.com/robfig/cron/v3"
)

// Runner performs one crawl followed by a digest.
type Runner interface {
	RunCrawlAndDigest(ctx context.Context, keyword string, hours, maxCount int) domain.CombinedResult
}

// Output is the JSON document written for every job run.
type Output struct {
	Keyword     string                `json:"keyword"`
	WindowHours int                   `json:"window_hours"`
	MaxCount    int                   `json:"max_count"`
	StartedAt   time.Time             `json:"started_at"`
	Result      domain.CombinedResult `json:"result"`
}

// Scheduler runs its jobs one after another on every tick.
type Scheduler struct {
	runner Runner
	jobs   []domain.Job
	outDir string
	spec   string
	logger *slog.Logger
	now    func() time.Time

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New creates a Scheduler for the 5-field cron spec. Nothing runs until
// Start is called.
func New(spec string, runner Runner, jobs []domain.Job, outDir string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner: runner,
		jobs:   jobs,
		outDir: outDir,
		spec:   spec,
		logger: logger,
		now:    time.Now,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(s.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("add schedule: %w", err)
	}
	return s, nil
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("Scheduler started", "schedule", s.spec, "jobs", len(s.jobs), "next_run", e.Next.Format(time.RFC3339))
	}
}

// Stop prevents further ticks and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	s.cancel()
	s.logger.Info("Scheduler stopped")
}

// RunOnce runs every job in order and writes its outputs. A failing job does
// not stop the ones after it.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tick := s.now()
	s.logger.Info("Scheduled run started", "jobs", len(s.jobs))
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			s.logger.Warn("Scheduled run interrupted", "error", ctx.Err())
			return
		}
		started := s.now()
		res := s.runner.RunCrawlAndDigest(ctx, job.Keyword, job.WindowHours, job.MaxCount)
		out := Output{
			Keyword:     job.Keyword,
			WindowHours: job.WindowHours,
			MaxCount:    job.MaxCount,
			StartedAt:   started,
			Result:      res,
		}
		base, err := s.write(out, tick)
		if err != nil {
			s.logger.Error("Failed to write digest", "keyword", job.Keyword, "error", err)
			continue
		}
		s.logger.Info("Job finished", "keyword", job.Keyword,
			"crawl_success", res.CrawlSuccess, "digest_success", res.Digest.Success, "output", base)
	}
}

func (s *Scheduler) write(out Output, tick time.Time) (string, error) {
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return "", err
	}
	base := filepath.Join(s.outDir, fmt.Sprintf("%s-%s", Slug(out.Keyword), tick.Format("20060102-1504")))

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(base+".json", data, 0o644); err != nil {
		return "", err
	}

	f, err := os.Create(base + ".html")
	if err != nil {
		return "", err
	}
	if err := report.Render(f, out.Keyword, out.Result.Digest); err != nil {
		f.Close()
		return "", err
	}
	return base, f.Close()
}

// Slug turns a keyword into a file-name-safe token.
func Slug(keyword string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(keyword) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "keyword"
	}
	return slug
}

// cronLogger routes cron's own messages through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

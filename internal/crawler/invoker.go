// Package crawler launches the external crawl process for one keyword.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/pizzanicky/BettaFish4WGD/internal/crawlconf"
	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
)

const (
	DefaultTimeout = 120 * time.Second
	// CountWindowHours is the lookback used to count what a crawl produced.
	CountWindowHours = 24
	maxDiagnostic    = 200
	waitDelay        = 5 * time.Second
)

// ErrCrawlTimeout is reported when the crawl process outlives its timeout.
var ErrCrawlTimeout = errors.New("crawl timed out")

// CrawlerFailedError reports a crawl process that exited non-zero.
type CrawlerFailedError struct {
	ExitCode   int
	Diagnostic string
}

func (e *CrawlerFailedError) Error() string {
	return fmt.Sprintf("crawler exited with code %d: %s", e.ExitCode, e.Diagnostic)
}

// configLocks serialises patch→run→restore per config file for the whole
// process, no matter how many Invokers point at it.
var configLocks sync.Map

func lockFor(path string) *sync.Mutex {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = filepath.Clean(abs)
	}
	mu, _ := configLocks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Options configures an Invoker.
type Options struct {
	// Command is the program and leading arguments, e.g. ["python3", "main.py"].
	Command []string
	// Dir is the crawler's root; the process runs there.
	Dir string
	// ConfigPath is the config file the crawler reads. Relative paths are
	// resolved against Dir.
	ConfigPath string
	// Platform and Storage fill the --platform and --save_data_option flags.
	Platform string
	Storage  string
	// Timeout is used when a request does not set its own.
	Timeout time.Duration
	// SettleAttempts is how many extra times to re-count when the first count
	// after a successful crawl comes back empty.
	SettleAttempts int
	SettleInterval time.Duration
}

// Invoker runs the crawler with a patched config and reports the outcome.
type Invoker struct {
	opts   Options
	posts  domain.PostFinder
	logger *slog.Logger
}

// NewInvoker creates an Invoker. posts is used to count what a crawl yielded.
func NewInvoker(opts Options, posts domain.PostFinder, logger *slog.Logger) *Invoker {
	if opts.Platform == "" {
		opts.Platform = "reddit"
	}
	if opts.Storage == "" {
		opts.Storage = "postgresql"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.SettleInterval <= 0 {
		opts.SettleInterval = 500 * time.Millisecond
	}
	if opts.ConfigPath != "" && !filepath.IsAbs(opts.ConfigPath) && opts.Dir != "" {
		opts.ConfigPath = filepath.Join(opts.Dir, opts.ConfigPath)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{opts: opts, posts: posts, logger: logger}
}

// Args returns the full command line for one crawl.
func (inv *Invoker) Args() []string {
	args := append([]string{}, inv.opts.Command...)
	return append(args,
		"--platform", inv.opts.Platform,
		"--lt", "qrcode",
		"--type", "search",
		"--save_data_option", inv.opts.Storage,
	)
}

// Invoke crawls req.Keyword. It never returns an error: every failure is
// folded into the result, and the crawler config is restored on every path.
func (inv *Invoker) Invoke(ctx context.Context, req domain.CrawlRequest) domain.CrawlResult {
	log := inv.logger.With("keyword", req.Keyword, "run_id", uuid.NewString())

	if len(inv.opts.Command) == 0 {
		return fail(domain.CrawlError, "crawler command is not configured")
	}
	if err := crawlconf.ValidateKeyword(req.Keyword); err != nil {
		return fail(domain.CrawlError, err.Error())
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = inv.opts.Timeout
	}

	mu := lockFor(inv.opts.ConfigPath)
	mu.Lock()
	res, err := inv.runPatched(ctx, log, req, timeout)
	mu.Unlock()

	if err != nil {
		return inv.classify(log, err, timeout)
	}

	count := inv.countPosts(ctx, log, req.Keyword)
	log.Info("Crawl completed", "post_count", count)
	res.PostCount = count
	res.Message = fmt.Sprintf("crawled %d posts", count)
	return res
}

func (inv *Invoker) runPatched(ctx context.Context, log *slog.Logger, req domain.CrawlRequest, timeout time.Duration) (res domain.CrawlResult, err error) {
	snap, err := crawlconf.Patch(inv.opts.ConfigPath, req.Keyword, req.MaxCount)
	if err != nil {
		return res, err
	}
	defer func() {
		if rerr := snap.Restore(); rerr != nil {
			log.Error("Failed to restore crawler config", "path", snap.Path(), "error", rerr)
			if err == nil {
				err = rerr
			}
		}
	}()

	return domain.CrawlResult{Success: true, Outcome: domain.CrawlOK}, inv.run(ctx, log, timeout)
}

func (inv *Invoker) run(ctx context.Context, log *slog.Logger, timeout time.Duration) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := inv.Args()
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = inv.opts.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	killGroupOnCancel(cmd)
	cmd.WaitDelay = waitDelay

	log.Info("Running crawler", "command", strings.Join(args, " "), "dir", inv.opts.Dir, "timeout", timeout)
	start := time.Now()
	err := cmd.Run()
	log.Debug("Crawler exited", "elapsed", time.Since(start), "stdout_bytes", stdout.Len(), "stderr_bytes", stderr.Len())

	if err == nil {
		return nil
	}
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return ErrCrawlTimeout
	case ctx.Err() != nil:
		return ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		diag := stderr.String()
		if strings.TrimSpace(diag) == "" {
			diag = stdout.String()
		}
		log.Error("Crawler failed", "exit_code", exitErr.ExitCode(), "stderr", stderr.String())
		return &CrawlerFailedError{ExitCode: exitErr.ExitCode(), Diagnostic: truncate(strings.TrimSpace(diag), maxDiagnostic)}
	}
	return fmt.Errorf("start crawler: %w", err)
}

func (inv *Invoker) classify(log *slog.Logger, err error, timeout time.Duration) domain.CrawlResult {
	var ioErr *crawlconf.ConfigIOError
	var failed *CrawlerFailedError
	switch {
	case errors.Is(err, ErrCrawlTimeout):
		log.Error("Crawler timed out", "timeout", timeout)
		return fail(domain.CrawlTimeout, fmt.Sprintf("crawl timed out after %s", timeout))
	case errors.As(err, &failed):
		return fail(domain.CrawlCrawlerFailed, "crawl failed: "+failed.Diagnostic)
	case errors.As(err, &ioErr):
		log.Error("Crawler config error", "error", err)
		return fail(domain.CrawlConfigError, "crawler config unavailable: "+ioErr.Err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn("Crawl cancelled", "error", err)
		return fail(domain.CrawlCancelled, "crawl cancelled")
	default:
		log.Error("Crawl failed", "error", err)
		return fail(domain.CrawlError, "crawl failed: "+err.Error())
	}
}

// countPosts reads back how many posts are visible for keyword. Storage may
// lag behind the crawler, so an empty count is re-checked a few times.
func (inv *Invoker) countPosts(ctx context.Context, log *slog.Logger, keyword string) int {
	if inv.posts == nil {
		return 0
	}

	var count int
	op := func() error {
		posts, err := inv.posts.FindRecent(ctx, keyword, CountWindowHours)
		if err != nil {
			log.Warn("Failed to count crawled posts", "error", err)
		}
		count = len(posts)
		if count == 0 {
			return errors.New("no posts visible yet")
		}
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = inv.opts.SettleInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(max(inv.opts.SettleAttempts, 0))), ctx)
	_ = backoff.Retry(op, b)
	return count
}

func fail(outcome domain.CrawlOutcome, msg string) domain.CrawlResult {
	return domain.CrawlResult{Success: false, Message: msg, Outcome: outcome}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

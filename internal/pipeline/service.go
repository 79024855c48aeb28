// Package pipeline exposes the crawl, digest and combined operations that
// the CLI and the scheduler call.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
)

const (
	DefaultWindowHours = 24
	DefaultMaxCount    = 50
	// MsgDigestSkipped is the digest failure message after a failed crawl.
	MsgDigestSkipped = "crawl failed, digest skipped"
)

// Crawler runs one crawl.
type Crawler interface {
	Invoke(ctx context.Context, req domain.CrawlRequest) domain.CrawlResult
}

// Digester builds one digest from stored posts.
type Digester interface {
	Generate(ctx context.Context, keyword string, windowHours int) domain.DigestResult
}

// Service ties a crawler and a digester together. None of its operations
// return an error; failures are carried in the results.
type Service struct {
	crawler  Crawler
	digester Digester
	logger   *slog.Logger

	WindowHours  int
	MaxCount     int
	CrawlTimeout time.Duration
}

// NewService creates a Service with default window and max count.
func NewService(crawler Crawler, digester Digester, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		crawler:     crawler,
		digester:    digester,
		logger:      logger,
		WindowHours: DefaultWindowHours,
		MaxCount:    DefaultMaxCount,
	}
}

// RunCrawl crawls keyword for at most maxCount posts. maxCount <= 0 uses the
// service default.
func (s *Service) RunCrawl(ctx context.Context, keyword string, maxCount int) domain.CrawlResult {
	if maxCount <= 0 {
		maxCount = s.MaxCount
	}
	s.logger.Info("Crawl requested", "keyword", keyword, "max_count", maxCount)
	res := s.crawler.Invoke(ctx, domain.CrawlRequest{
		Keyword:  keyword,
		MaxCount: maxCount,
		Timeout:  s.CrawlTimeout,
	})
	s.logger.Info("Crawl finished", "keyword", keyword, "success", res.Success, "outcome", res.Outcome, "post_count", res.PostCount)
	return res
}

// RunDigest summarises posts crawled for keyword in the last hours. hours
// <= 0 uses the service default.
func (s *Service) RunDigest(ctx context.Context, keyword string, hours int) domain.DigestResult {
	if hours <= 0 {
		hours = s.WindowHours
	}
	s.logger.Info("Digest requested", "keyword", keyword, "window_hours", hours)
	res := s.digester.Generate(ctx, keyword, hours)
	if !res.Success {
		s.logger.Warn("Digest failed", "keyword", keyword, "reason", res.FailureMessage)
	}
	return res
}

// RunCrawlAndDigest crawls and then digests. When the crawl fails the digest
// is not attempted.
func (s *Service) RunCrawlAndDigest(ctx context.Context, keyword string, hours, maxCount int) domain.CombinedResult {
	crawl := s.RunCrawl(ctx, keyword, maxCount)
	out := domain.CombinedResult{
		CrawlSuccess: crawl.Success,
		CrawlMessage: crawl.Message,
		PostCount:    crawl.PostCount,
	}
	if !crawl.Success {
		out.Digest = domain.DigestResult{
			CoverCard:      map[string]any{},
			TopPosts:       []domain.TopPost{},
			FailureMessage: MsgDigestSkipped,
			GeneratedAt:    time.Now(),
		}
		return out
	}
	out.Digest = s.RunDigest(ctx, keyword, hours)
	return out
}

package domain

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Count is an engagement counter as written by a crawl backend. Backends
// store these as free text, so anything that doesn't parse counts as zero.
type Count string

// Int returns the numeric value of c, or 0 when it is missing or malformed.
func (c Count) Int() int {
	n, err := strconv.Atoi(strings.TrimSpace(string(c)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// CountOf formats n as a Count.
func CountOf(n int) Count {
	return Count(strconv.Itoa(n))
}

// Post is one crawled social item. Nickname, UserID, Avatar and IPLocation
// identify the author; they are stored but never rendered into a digest.
type Post struct {
	PostID        string `json:"post_id"`
	Content       string `json:"content"`
	LikedCount    Count  `json:"liked_count"`
	CommentCount  Count  `json:"comment_count"`
	SharedCount   Count  `json:"shared_count"`
	SourceKeyword string `json:"source_keyword"`
	URL           string `json:"url"`
	PublishedAt   int64  `json:"published_at"`
	CrawledAt     int64  `json:"crawled_at"`
	ModifiedAt    int64  `json:"modified_at"`

	Nickname   string `json:"-"`
	UserID     string `json:"-"`
	Avatar     string `json:"-"`
	IPLocation string `json:"-"`
}

// CrawlRequest asks for one crawl of keyword.
type CrawlRequest struct {
	Keyword  string
	MaxCount int
	Timeout  time.Duration
}

// CrawlOutcome classifies how a crawl ended.
type CrawlOutcome string

const (
	CrawlOK            CrawlOutcome = "ok"
	CrawlTimeout       CrawlOutcome = "timeout"
	CrawlCrawlerFailed CrawlOutcome = "crawler_failed"
	CrawlConfigError   CrawlOutcome = "config_error"
	CrawlCancelled     CrawlOutcome = "cancelled"
	CrawlError         CrawlOutcome = "error"
)

// CrawlResult is what a crawl reports back. PostCount is advisory: the
// backend may have written rows that are not visible yet.
type CrawlResult struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	PostCount int          `json:"post_count"`
	Outcome   CrawlOutcome `json:"outcome"`
}

// TopPost is the digest-facing view of a highly liked post.
type TopPost struct {
	ContentSnippet string `json:"content_snippet"`
	Score          int    `json:"score"`
	CommentCount   int    `json:"comment_count"`
	URL            string `json:"url"`
}

// DigestResult is the outcome of one digest generation.
type DigestResult struct {
	Success        bool           `json:"success"`
	Summary        string         `json:"summary,omitempty"`
	CoverCard      map[string]any `json:"cover_card"`
	PostCount      int            `json:"post_count"`
	TopPosts       []TopPost      `json:"top_posts"`
	FailureMessage string         `json:"failure_message,omitempty"`
	Degraded       bool           `json:"degraded,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// CombinedResult reports a crawl followed by a digest.
type CombinedResult struct {
	CrawlSuccess bool         `json:"crawl_success"`
	CrawlMessage string       `json:"crawl_message"`
	PostCount    int          `json:"post_count"`
	Digest       DigestResult `json:"digest_result"`
}

// PostFinder reads recently crawled posts.
type PostFinder interface {
	FindRecent(ctx context.Context, keyword string, windowHours int) ([]Post, error)
}

// PostRepository persists crawled posts.
type PostRepository interface {
	PostFinder
	Upsert(ctx context.Context, post Post) error
}

// LanguageModel turns a prompt into generated text.
type LanguageModel interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// Collector defines the interface for keyword search against a platform.
type Collector interface {
	SearchPosts(ctx context.Context, keyword string, limit int) ([]Post, error)
}

// Job is one scheduled crawl-and-digest run.
type Job struct {
	Keyword     string
	MaxCount    int
	WindowHours int
}

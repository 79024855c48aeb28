package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrMissingPostID is returned when upserting a post without an identifier.
var ErrMissingPostID = errors.New("post has no post_id")

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// RepositoryError wraps a failure of the underlying store.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("post repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

type postRow struct {
	PostID        string `db:"post_id"`
	Content       string `db:"content"`
	LikedCount    string `db:"liked_count"`
	CommentCount  string `db:"comment_count"`
	SharedCount   string `db:"shared_count"`
	SourceKeyword string `db:"source_keyword"`
	URL           string `db:"url"`
	PublishedAt   int64  `db:"published_at"`
	Nickname      string `db:"nickname"`
	UserID        string `db:"user_id"`
	Avatar        string `db:"avatar"`
	IPLocation    string `db:"ip_location"`
	CrawledAt     int64  `db:"crawled_at"`
	ModifiedAt    int64  `db:"modified_at"`
}

func (r postRow) toPost() domain.Post {
	return domain.Post{
		PostID:        r.PostID,
		Content:       r.Content,
		LikedCount:    domain.Count(r.LikedCount),
		CommentCount:  domain.Count(r.CommentCount),
		SharedCount:   domain.Count(r.SharedCount),
		SourceKeyword: r.SourceKeyword,
		URL:           r.URL,
		PublishedAt:   r.PublishedAt,
		Nickname:      r.Nickname,
		UserID:        r.UserID,
		Avatar:        r.Avatar,
		IPLocation:    r.IPLocation,
		CrawledAt:     r.CrawledAt,
		ModifiedAt:    r.ModifiedAt,
	}
}

const selectPosts = `SELECT post_id, content, liked_count, comment_count, shared_count,
	source_keyword, url, published_at, nickname, user_id, avatar, ip_location,
	crawled_at, modified_at
	FROM posts`

// crawled_at is only written on insert; modified_at never moves backwards.
const upsertPost = `INSERT INTO posts (post_id, content, liked_count, comment_count, shared_count,
	source_keyword, url, published_at, nickname, user_id, avatar, ip_location, crawled_at, modified_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (post_id) DO UPDATE SET
		content = excluded.content,
		liked_count = excluded.liked_count,
		comment_count = excluded.comment_count,
		shared_count = excluded.shared_count,
		source_keyword = excluded.source_keyword,
		url = excluded.url,
		published_at = excluded.published_at,
		nickname = excluded.nickname,
		user_id = excluded.user_id,
		avatar = excluded.avatar,
		ip_location = excluded.ip_location,
		modified_at = CASE WHEN excluded.modified_at > posts.modified_at
			THEN excluded.modified_at ELSE posts.modified_at END`

// Option customises a PostStore.
type Option func(*PostStore)

// WithClock overrides the time source used for crawl timestamps and windows.
func WithClock(now func() time.Time) Option {
	return func(s *PostStore) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *PostStore) { s.logger = logger }
}

// PostStore is a SQL-backed post repository.
type PostStore struct {
	db     *sqlx.DB
	now    func() time.Time
	logger *slog.Logger
}

var _ domain.PostRepository = (*PostStore)(nil)

// NewPostStore wraps an open database. The schema must already exist.
func NewPostStore(db *sqlx.DB, opts ...Option) *PostStore {
	s := &PostStore{db: db, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to driver ("sqlite" or "postgres"), applies migrations and
// returns a ready store.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*PostStore, error) {
	var dialect goose.Dialect
	switch driver {
	case "sqlite":
		dialect = goose.DialectSQLite3
		dsn = sqliteDSN(dsn)
	case "postgres":
		dialect = goose.DialectPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, &RepositoryError{Op: "open", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &RepositoryError{Op: "open", Err: err}
	}

	if err := migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, &RepositoryError{Op: "migrate", Err: err}
	}
	return NewPostStore(db, opts...), nil
}

func migrate(ctx context.Context, db *sqlx.DB, dialect goose.Dialect) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db.DB, fsys)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		slog.Debug("Applied migration", "source", r.Source.Path, "duration", r.Duration)
	}
	return nil
}

// sqliteDSN adds a busy timeout so concurrent upserts wait instead of failing.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

// Close closes the underlying database.
func (s *PostStore) Close() error {
	return s.db.Close()
}

// FindRecent returns posts crawled for keyword within the last windowHours,
// newest first. On failure it logs and returns an empty slice alongside a
// *RepositoryError so callers can carry on as if nothing was found.
func (s *PostStore) FindRecent(ctx context.Context, keyword string, windowHours int) ([]domain.Post, error) {
	threshold := s.now().Add(-time.Duration(windowHours) * time.Hour).UnixMilli()

	var rows []postRow
	query := s.db.Rebind(selectPosts + ` WHERE source_keyword = ? AND crawled_at >= ? ORDER BY crawled_at DESC, post_id`)
	if err := s.db.SelectContext(ctx, &rows, query, keyword, threshold); err != nil {
		s.logger.Error("Failed to query recent posts", "keyword", keyword, "window_hours", windowHours, "error", err)
		return []domain.Post{}, &RepositoryError{Op: "find_recent", Err: err}
	}

	posts := make([]domain.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.toPost())
	}
	s.logger.Debug("Found recent posts", "keyword", keyword, "window_hours", windowHours, "count", len(posts))
	return posts, nil
}

// Upsert inserts post or refreshes the stored copy. crawled_at is set once,
// on insert; modified_at is bumped on every call.
func (s *PostStore) Upsert(ctx context.Context, post domain.Post) error {
	if post.PostID == "" {
		return &RepositoryError{Op: "upsert", Err: ErrMissingPostID}
	}
	now := s.now().UnixMilli()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(upsertPost),
		post.PostID, post.Content,
		string(post.LikedCount), string(post.CommentCount), string(post.SharedCount),
		post.SourceKeyword, post.URL, post.PublishedAt,
		post.Nickname, post.UserID, post.Avatar, post.IPLocation,
		now, now)
	if err != nil {
		s.logger.Error("Failed to upsert post", "post_id", post.PostID, "error", err)
		return &RepositoryError{Op: "upsert", Err: err}
	}
	return nil
}

// Get returns the stored copy of one post.
func (s *PostStore) Get(ctx context.Context, postID string) (domain.Post, error) {
	var row postRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(selectPosts+` WHERE post_id = ?`), postID); err != nil {
		return domain.Post{}, &RepositoryError{Op: "get", Err: err}
	}
	return row.toPost(), nil
}

// Count returns the number of stored posts.
func (s *PostStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts`); err != nil {
		return 0, &RepositoryError{Op: "count", Err: err}
	}
	return n, nil
}

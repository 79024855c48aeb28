package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pizzanicky/BettaFish4WGD/internal/collector"
	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
	"github.com/pizzanicky/BettaFish4WGD/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type failingCollector struct {
	fail string
}

func (f failingCollector) SearchPosts(ctx context.Context, keyword string, limit int) ([]domain.Post, error) {
	if keyword == f.fail {
		return nil, errors.New("status 503")
	}
	return (&collector.MockClient{}).SearchPosts(ctx, keyword, limit)
}

type memRepo struct {
	mu    sync.Mutex
	posts map[string]domain.Post
}

func (r *memRepo) Upsert(_ context.Context, p domain.Post) error {
	if p.PostID == "" {
		return storage.ErrMissingPostID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.PostID] = p
	return nil
}

func (r *memRepo) FindRecent(context.Context, string, int) ([]domain.Post, error) {
	return nil, nil
}

func TestScrape_StoresEveryKeyword(t *testing.T) {
	repo := &memRepo{posts: map[string]domain.Post{}}

	err := scrape(context.Background(), &collector.MockClient{}, repo, []string{"golang", "rust", "zig"}, 4, 2, discardLogger)
	require.NoError(t, err)

	assert.Len(t, repo.posts, 12)
	assert.Equal(t, "rust", repo.posts["mock_rust_3"].SourceKeyword)
}

func TestScrape_ReportsSearchFailure(t *testing.T) {
	repo := &memRepo{posts: map[string]domain.Post{}}

	err := scrape(context.Background(), failingCollector{fail: "rust"}, repo, []string{"golang", "rust"}, 2, 4, discardLogger)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rust")
	assert.Len(t, repo.posts, 2)
}

func TestResolveTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base_config.py")
	require.NoError(t, os.WriteFile(path, []byte("PLATFORM = \"reddit\"\nKEYWORDS = \"golang,rust\"\nCRAWLER_MAX_NOTES_COUNT = 15\n"), 0o644))

	kws, maxCount, err := resolveTargets(options{configPath: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "rust"}, kws)
	assert.Equal(t, 15, maxCount)

	kws, maxCount, err = resolveTargets(options{configPath: path, keywords: []string{"zig"}, maxCount: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"zig"}, kws)
	assert.Equal(t, 3, maxCount)

	_, _, err = resolveTargets(options{configPath: filepath.Join(t.TempDir(), "missing.py")})
	assert.Error(t, err)
}

func TestStorageDriver(t *testing.T) {
	d, err := storageDriver("postgresql", "sqlite")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d)

	d, err = storageDriver("db", "sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d)

	_, err = storageDriver("csv", "sqlite")
	assert.Error(t, err)
}

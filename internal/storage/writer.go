package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
)

// WriterService drains crawled posts into the repository from a single
// goroutine, so collectors never touch storage directly.
type WriterService struct {
	Repo   domain.PostRepository
	Logger *slog.Logger

	mu      sync.Mutex
	written int
	failed  int
}

// Start upserts every post received on input until it is closed.
func (w *WriterService) Start(ctx context.Context, wg *sync.WaitGroup, input <-chan domain.Post) {
	defer wg.Done()
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for post := range input {
		err := w.Repo.Upsert(ctx, post)

		w.mu.Lock()
		if err != nil {
			w.failed++
		} else {
			w.written++
		}
		w.mu.Unlock()

		if err != nil {
			logger.Warn("Dropped post", "post_id", post.PostID, "error", err)
			continue
		}
		logger.Debug("Stored post", "post_id", post.PostID, "keyword", post.SourceKeyword)
	}
}

// Stats reports how many posts were stored and how many failed.
func (w *WriterService) Stats() (written, failed int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written, w.failed
}

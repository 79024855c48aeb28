package collector

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
)

// MockClient implements domain.Collector but returns fake data
type MockClient struct {
	Latency time.Duration
}

func NewMockClient() *MockClient {
	return &MockClient{Latency: 500 * time.Millisecond}
}

func (mc *MockClient) SearchPosts(ctx context.Context, keyword string, limit int) ([]domain.Post, error) {
	// Simulate network latency (nice for testing concurrency)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(mc.Latency):
	}

	now := time.Now().UnixMilli()
	posts := make([]domain.Post, 0, limit)
	for i := range limit {
		posts = append(posts, domain.Post{
			PostID:        fmt.Sprintf("mock_%s_%d", keyword, i),
			Content:       fmt.Sprintf("Simulated discussion #%d about %s", i, keyword),
			LikedCount:    domain.CountOf(rand.IntN(500)),
			CommentCount:  domain.CountOf(rand.IntN(50)),
			SharedCount:   domain.CountOf(0),
			SourceKeyword: keyword,
			URL:           "http://localhost/mock-url",
			PublishedAt:   now,
			Nickname:      "simulated_user",
		})
	}
	return posts, nil
}

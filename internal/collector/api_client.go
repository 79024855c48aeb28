package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
	"golang.org/x/time/rate"
)

// APIClient searches Reddit through the authenticated API.
type APIClient struct {
	client  *reddit.Client
	limiter *rate.Limiter
}

func NewAPIClient(id, secret, user, pass, userAgent string) (*APIClient, error) {
	creds := reddit.Credentials{ID: id, Secret: secret, Username: user, Password: pass}

	client, err := reddit.NewClient(creds, reddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, err
	}

	// API Rate Limit: ~60 reqs/min (safe buffer)
	limiter := rate.NewLimiter(rate.Every(1*time.Second), 1)

	return &APIClient{client: client, limiter: limiter}, nil
}

func (ac *APIClient) SearchPosts(ctx context.Context, keyword string, limit int) ([]domain.Post, error) {
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	posts, _, err := ac.client.Subreddit.SearchPosts(ctx, keyword, "", &reddit.ListPostSearchOptions{
		ListPostOptions: reddit.ListPostOptions{
			ListOptions: reddit.ListOptions{Limit: clampLimit(limit)},
			Time:        "day",
		},
		Sort: "new",
	})
	if err != nil {
		return nil, fmt.Errorf("authenticated api error: %w", err)
	}

	result := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		var published int64
		if p.Created != nil {
			published = p.Created.Time.UnixMilli()
		}
		result = append(result, domain.Post{
			PostID:        p.ID,
			Content:       joinContent(p.Title, p.Body),
			LikedCount:    domain.CountOf(p.Score),
			CommentCount:  domain.CountOf(p.NumberOfComments),
			SharedCount:   domain.CountOf(0),
			SourceKeyword: keyword,
			URL:           redditURL(p.Permalink, p.URL),
			PublishedAt:   published,
			Nickname:      p.Author,
			UserID:        p.AuthorID,
		})
	}
	return result, nil
}

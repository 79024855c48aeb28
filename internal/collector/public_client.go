package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
	"golang.org/x/time/rate"
)

const publicBaseURL = "https://www.reddit.com"

// PublicClient searches Reddit through the unauthenticated JSON listing.
type PublicClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	baseURL    string
}

type redditJSONResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				Author      string  `json:"author"`
				AuthorID    string  `json:"author_fullname"`
				URL         string  `json:"url"`
				Permalink   string  `json:"permalink"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				CreatedUTC  float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func NewPublicClient(userAgent string) (*PublicClient, error) {
	return newPublicClient(userAgent, publicBaseURL, rate.Every(2*time.Second)), nil
}

func newPublicClient(userAgent, baseURL string, every rate.Limit) *PublicClient {
	return &PublicClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Public JSON Limit: 1 req / 2 seconds (Stricter)
		limiter:   rate.NewLimiter(every, 1),
		userAgent: userAgent,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

func (pc *PublicClient) SearchPosts(ctx context.Context, keyword string, limit int) ([]domain.Post, error) {
	if err := pc.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", keyword)
	q.Set("limit", strconv.Itoa(clampLimit(limit)))
	q.Set("sort", "new")
	q.Set("t", "day")
	q.Set("type", "link")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pc.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", pc.userAgent)

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit public access status: %d", resp.StatusCode)
	}

	var rResp redditJSONResponse
	if err := json.NewDecoder(resp.Body).Decode(&rResp); err != nil {
		return nil, fmt.Errorf("decode search listing: %w", err)
	}

	posts := make([]domain.Post, 0, len(rResp.Data.Children))
	for _, child := range rResp.Data.Children {
		d := child.Data
		posts = append(posts, domain.Post{
			PostID:        d.ID,
			Content:       joinContent(d.Title, d.Selftext),
			LikedCount:    domain.CountOf(d.Score),
			CommentCount:  domain.CountOf(d.NumComments),
			SharedCount:   domain.CountOf(0),
			SourceKeyword: keyword,
			URL:           redditURL(d.Permalink, d.URL),
			PublishedAt:   int64(d.CreatedUTC * 1000),
			Nickname:      d.Author,
			UserID:        d.AuthorID,
		})
	}
	return posts, nil
}

package collector

import (
	"fmt"
	"os"
	"strings"

	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
)

// maxSearchLimit is the largest page Reddit's search listing returns.
const maxSearchLimit = 100

// NewCollector selects the correct implementation based on the MODE
func NewCollector(mode string) (domain.Collector, error) {
	userAgent := os.Getenv("REDDIT_USER_AGENT")

	switch mode {
	case "api":
		return NewAPIClient(
			os.Getenv("REDDIT_CLIENT_ID"),
			os.Getenv("REDDIT_CLIENT_SECRET"),
			os.Getenv("REDDIT_USERNAME"),
			os.Getenv("REDDIT_PASSWORD"),
			userAgent,
		)
	case "public":
		if userAgent == "" {
			return nil, fmt.Errorf("REDDIT_USER_AGENT is required for public mode")
		}
		return NewPublicClient(userAgent)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown COLLECTOR_MODE: %s (use 'api', 'public', or 'mock')", mode)
	}
}

func clampLimit(limit int) int {
	return min(max(limit, 1), maxSearchLimit)
}

func joinContent(title, body string) string {
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if body == "" {
		return title
	}
	return title + "\n" + body
}

// redditURL prefers the permalink, which always points at the discussion.
func redditURL(permalink, link string) string {
	if permalink == "" {
		return link
	}
	if strings.HasPrefix(permalink, "http") {
		return permalink
	}
	return publicBaseURL + permalink
}

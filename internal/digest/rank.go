package digest

import (
	"sort"
	"unicode/utf8"

	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
)

const (
	TopPostCount  = 5
	snippetLength = 100
)

// TopPosts returns the most liked posts, highest first. Posts with equal
// likes keep their input order.
func TopPosts(posts []domain.Post, n int) []domain.TopPost {
	ranked := make([]domain.Post, len(posts))
	copy(ranked, posts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].LikedCount.Int() > ranked[j].LikedCount.Int()
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	top := make([]domain.TopPost, 0, len(ranked))
	for _, p := range ranked {
		top = append(top, domain.TopPost{
			ContentSnippet: snippet(p.Content, snippetLength),
			Score:          p.LikedCount.Int(),
			CommentCount:   p.CommentCount.Int(),
			URL:            p.URL,
		})
	}
	return top
}

func snippet(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

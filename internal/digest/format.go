// Package digest turns recently crawled posts into a generated summary with
// a structured cover card.
package digest

import (
	"fmt"
	"strings"

	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
)

const (
	// MaxPromptPosts caps how many posts go into one prompt.
	MaxPromptPosts = 50
	// NoPostsText is what Format renders for an empty input.
	NoPostsText = "No posts found."
)

// Format renders posts for a generation prompt. Only the content and
// engagement counts are included; author fields never leave storage.
func Format(posts []domain.Post) string {
	if len(posts) == 0 {
		return NoPostsText
	}
	if len(posts) > MaxPromptPosts {
		posts = posts[:MaxPromptPosts]
	}

	var b strings.Builder
	for i, p := range posts {
		fmt.Fprintf(&b, "Post %d:\n", i+1)
		fmt.Fprintf(&b, "Content: %s\n", strings.TrimSpace(p.Content))
		fmt.Fprintf(&b, "Engagement: %d likes, %d comments\n", p.LikedCount.Int(), p.CommentCount.Int())
		b.WriteString(strings.Repeat("-", 20) + "\n")
	}
	return b.String()
}

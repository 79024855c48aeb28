package digest_test

import (
	"strings"
	"testing"

	"github.com/pizzanicky/BettaFish4WGD/internal/digest"
	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTopPosts_RanksByLikes(t *testing.T) {
	posts := []domain.Post{
		{Content: "five", LikedCount: "5"},
		{Content: "bad", LikedCount: "bad"},
		{Content: "ten", LikedCount: "10"},
		{Content: "none", LikedCount: ""},
		{Content: "seven", LikedCount: "7"},
	}

	top := digest.TopPosts(posts, digest.TopPostCount)

	var order []string
	var scores []int
	for _, p := range top {
		order = append(order, p.ContentSnippet)
		scores = append(scores, p.Score)
	}
	assert.Equal(t, []string{"ten", "seven", "five", "bad", "none"}, order)
	assert.Equal(t, []int{10, 7, 5, 0, 0}, scores)
}

func TestTopPosts_LengthAndSnippet(t *testing.T) {
	long := strings.Repeat("ü", 150)
	posts := []domain.Post{
		{Content: long, LikedCount: "3", CommentCount: "4", URL: "https://example.com/1"},
		{Content: "short", LikedCount: "1"},
	}

	top := digest.TopPosts(posts, digest.TopPostCount)

	assert.Len(t, top, 2)
	assert.Equal(t, strings.Repeat("ü", 100)+"...", top[0].ContentSnippet)
	assert.Equal(t, 4, top[0].CommentCount)
	assert.Equal(t, "https://example.com/1", top[0].URL)
	assert.Equal(t, "short", top[1].ContentSnippet)

	assert.Len(t, digest.TopPosts(makePosts(12), digest.TopPostCount), 5)
	assert.Empty(t, digest.TopPosts(nil, digest.TopPostCount))
}

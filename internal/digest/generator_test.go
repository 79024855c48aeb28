package digest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pizzanicky/BettaFish4WGD/internal/digest"
	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFinder struct {
	posts []domain.Post
	err   error
}

func (s stubFinder) FindRecent(context.Context, string, int) ([]domain.Post, error) {
	return s.posts, s.err
}

type stubModel struct {
	reply   string
	err     error
	calls   int
	prompts []string
}

func (m *stubModel) Chat(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

func TestGenerate_NoPostsSkipsModel(t *testing.T) {
	model := &stubModel{reply: "unused"}
	gen := digest.NewGenerator(stubFinder{}, model, nil)

	res := gen.Generate(context.Background(), "golang", 24)

	assert.False(t, res.Success)
	assert.Equal(t, digest.MsgNoPosts, res.FailureMessage)
	assert.Equal(t, 0, model.calls)
	assert.NotNil(t, res.CoverCard)
}

func TestGenerate_RepositoryErrorReadsAsNoPosts(t *testing.T) {
	model := &stubModel{reply: "unused"}
	gen := digest.NewGenerator(stubFinder{posts: []domain.Post{}, err: errors.New("db down")}, model, nil)

	res := gen.Generate(context.Background(), "golang", 24)

	assert.False(t, res.Success)
	assert.Equal(t, digest.MsgNoPosts, res.FailureMessage)
	assert.Equal(t, 0, model.calls)
}

func TestGenerate_Success(t *testing.T) {
	posts := makePosts(8)
	model := &stubModel{reply: "Gophers were busy today.\n{\"title\": \"Daily Go\", \"highlights\": [\"generics\"]}"}
	gen := digest.NewGenerator(stubFinder{posts: posts}, model, nil)

	res := gen.Generate(context.Background(), "golang", 12)

	require.True(t, res.Success)
	assert.Equal(t, "Gophers were busy today.", res.Summary)
	assert.Equal(t, "Daily Go", res.CoverCard["title"])
	assert.Equal(t, 8, res.PostCount)
	assert.False(t, res.Degraded)
	assert.Empty(t, res.FailureMessage)
	require.Len(t, res.TopPosts, 5)
	assert.Equal(t, 7, res.TopPosts[0].Score)
	assert.False(t, res.GeneratedAt.IsZero())

	require.Equal(t, 1, model.calls)
	prompt := model.prompts[0]
	assert.Contains(t, prompt, `"golang"`)
	assert.Contains(t, prompt, "last 12 hours")
	assert.Contains(t, prompt, "Post 8:")
	assert.NotContains(t, prompt, "nick-")
}

func TestGenerate_DegradedParseStillSucceeds(t *testing.T) {
	model := &stubModel{reply: "Plain narrative with no card."}
	gen := digest.NewGenerator(stubFinder{posts: makePosts(2)}, model, nil)

	res := gen.Generate(context.Background(), "golang", 24)

	require.True(t, res.Success)
	assert.True(t, res.Degraded)
	assert.Equal(t, "Plain narrative with no card.", res.Summary)
	assert.Empty(t, res.CoverCard)
	assert.NotNil(t, res.CoverCard)
}

func TestGenerate_ModelFailuresAreNotRetried(t *testing.T) {
	tests := []struct {
		name    string
		model   *stubModel
		message string
	}{
		{name: "transport error", model: &stubModel{err: errors.New("quota exhausted")}, message: "quota exhausted"},
		{name: "empty reply", model: &stubModel{reply: "  \n"}, message: "empty response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := digest.NewGenerator(stubFinder{posts: makePosts(3)}, tt.model, nil)

			res := gen.Generate(context.Background(), "golang", 24)

			assert.False(t, res.Success)
			assert.Contains(t, res.FailureMessage, tt.message)
			assert.Equal(t, 3, res.PostCount)
			assert.Equal(t, 1, tt.model.calls)
		})
	}
}

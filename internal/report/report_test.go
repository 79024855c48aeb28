package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
	"github.com/pizzanicky/BettaFish4WGD/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Success(t *testing.T) {
	res := domain.DigestResult{
		Success: true,
		Summary: "Generics <b>everywhere</b> & more",
		CoverCard: map[string]any{
			"title":      "Daily Go",
			"subtitle":   "What gophers said",
			"highlights": []any{"iterators", "toolchain"},
		},
		PostCount: 2,
		TopPosts: []domain.TopPost{
			{ContentSnippet: "Range over func", Score: 40, CommentCount: 12, URL: "https://example.com/1"},
			{ContentSnippet: "Go 1.24 out", Score: 31, CommentCount: 5, URL: "https://example.com/2"},
		},
		GeneratedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "golang", res))
	out := buf.String()

	assert.Contains(t, out, "Daily Go")
	assert.Contains(t, out, "What gophers said")
	assert.Contains(t, out, "Likes")
	assert.Contains(t, out, "Comments")
	assert.Contains(t, out, "Generics &lt;b&gt;everywhere&lt;/b&gt; &amp; more")
	assert.NotContains(t, out, "<b>everywhere</b>")
	assert.Contains(t, out, "<li>iterators</li>")
	assert.Contains(t, out, `href="https://example.com/1"`)
	assert.Contains(t, out, "2026-03-01 09:30 UTC")
}

func TestRender_FailureFallsBackToKeywordTitle(t *testing.T) {
	res := domain.DigestResult{
		CoverCard:      map[string]any{},
		TopPosts:       []domain.TopPost{},
		FailureMessage: "no posts in window",
	}

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "rust", res))

	assert.Contains(t, buf.String(), "Daily digest: rust")
	assert.Contains(t, buf.String(), "no posts in window")
}

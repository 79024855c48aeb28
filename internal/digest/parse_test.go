package digest_test

import (
	"testing"

	"github.com/pizzanicky/BettaFish4WGD/internal/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		summary  string
		card     map[string]any
		degraded bool
	}{
		{
			name:    "summary then object",
			reply:   `Great trends today. {"title": "Daily"}`,
			summary: "Great trends today.",
			card:    map[string]any{"title": "Daily"},
		},
		{
			name:     "no brace",
			reply:    "Nothing structured here.",
			summary:  "Nothing structured here.",
			card:     map[string]any{},
			degraded: true,
		},
		{
			name:    "fenced payload",
			reply:   "## Digest\nLots happened.\n\n```json\n{\"title\": \"Weekly\", \"sentiment\": \"mixed\"}\n```\n",
			summary: "## Digest\nLots happened.",
			card:    map[string]any{"title": "Weekly", "sentiment": "mixed"},
		},
		{
			name:    "earlier braces in narrative",
			reply:   `People shared snippets like {"x": 1} and {broken. {"title": "Late"}`,
			summary: `People shared snippets like {"x": 1} and {broken.`,
			card:    map[string]any{"title": "Late"},
		},
		{
			name:    "nested object",
			reply:   `Summary. {"title": "T", "meta": {"posts": 3}}`,
			summary: "Summary.",
			card:    map[string]any{"title": "T", "meta": map[string]any{"posts": float64(3)}},
		},
		{
			name:     "malformed tail",
			reply:    `Summary. {"title": "T"`,
			summary:  `Summary. {"title": "T"`,
			card:     map[string]any{},
			degraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := digest.ParseReply(tt.reply)

			assert.Equal(t, tt.summary, got.Summary)
			assert.Equal(t, tt.card, got.CoverCard)
			assert.Equal(t, tt.degraded, got.Degraded())
			if tt.degraded {
				require.NotNil(t, got.Degradation)
				assert.Contains(t, got.Degradation.Error(), "cover card unavailable")
			}
		})
	}
}

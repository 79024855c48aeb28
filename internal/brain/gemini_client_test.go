package brain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp  *genai.GenerateContentResponse
	err   error
	calls int
	model string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	return f.resp, f.err
}

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func TestChat_ReturnsText(t *testing.T) {
	models := &fakeModels{resp: textResponse(
		&genai.Part{Text: "thinking...", Thought: true},
		&genai.Part{Text: "Hello "},
		&genai.Part{Text: "world"},
	)}
	client := newGeminiClient(models, "", 600, nil)

	got, err := client.Chat(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, "Hello world", got)
	assert.Equal(t, DefaultModel, models.model)
	assert.Equal(t, 1, models.calls)
}

func TestChat_EmptyResponse(t *testing.T) {
	for name, resp := range map[string]*genai.GenerateContentResponse{
		"nil":           nil,
		"no candidates": {},
		"nil content":   {Candidates: []*genai.Candidate{{}}},
		"blank text":    textResponse(&genai.Part{Text: "   "}),
	} {
		t.Run(name, func(t *testing.T) {
			models := &fakeModels{resp: resp}
			client := newGeminiClient(models, "gemini-test", 600, nil)

			_, err := client.Chat(context.Background(), "hi")

			var genErr *GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.ErrorIs(t, err, errEmptyResponse)
			assert.Equal(t, "gemini-test", genErr.Model)
		})
	}
}

func TestChat_TransportErrorIsNotRetried(t *testing.T) {
	models := &fakeModels{err: errors.New("429 resource exhausted")}
	client := newGeminiClient(models, "gemini-test", 600, nil)

	_, err := client.Chat(context.Background(), "hi")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, 1, models.calls)
}

func TestChat_CancelledWhileWaitingForLimiter(t *testing.T) {
	models := &fakeModels{resp: textResponse(&genai.Part{Text: "ok"})}
	client := newGeminiClient(models, "gemini-test", 1, nil)

	_, err := client.Chat(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Chat(ctx, "second")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 1, models.calls)
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := NewGeminiClient(context.Background(), "", "", 0, nil)
	require.Error(t, err)
}

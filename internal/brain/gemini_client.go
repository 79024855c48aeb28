package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.0-flash"
	// DefaultRPM keeps us inside the free-tier per-minute quota.
	DefaultRPM = 10
)

var errEmptyResponse = errors.New("empty response")

// GenerationError reports a failed or empty generation call.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with %s: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient is a blocking, single-attempt chat client for Gemini.
type GeminiClient struct {
	models  contentGenerator
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Ensure implementation
var _ domain.LanguageModel = (*GeminiClient)(nil)

// NewGeminiClient connects to the Gemini API. An empty apiKey falls back to
// GEMINI_API_KEY, an empty model to DefaultModel, rpm <= 0 to DefaultRPM.
func NewGeminiClient(ctx context.Context, apiKey, model string, rpm int, logger *slog.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGeminiClient(client.Models, model, rpm, logger), nil
}

func newGeminiClient(models contentGenerator, model string, rpm int, logger *slog.Logger) *GeminiClient {
	if model == "" {
		model = DefaultModel
	}
	if rpm <= 0 {
		rpm = DefaultRPM
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiClient{
		models:  models,
		model:   model,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:  logger.With("model", model),
	}
}

// Chat sends prompt and returns the reply text. It makes exactly one request;
// callers decide whether to try again.
func (c *GeminiClient) Chat(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &GenerationError{Model: c.model, Err: err}
	}

	c.logger.Info("Sending generation request", "prompt_chars", len(prompt))
	result, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		c.logger.Error("Generation request failed", "error", err)
		return "", &GenerationError{Model: c.model, Err: err}
	}

	text := replyText(result)
	if strings.TrimSpace(text) == "" {
		c.logger.Error("Empty response from Gemini")
		return "", &GenerationError{Model: c.model, Err: errEmptyResponse}
	}
	c.logger.Info("Received generation response", "reply_chars", len(text))
	return text, nil
}

// replyText joins the non-thought text parts of the first candidate.
func replyText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	content := result.Candidates[0].Content
	if content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

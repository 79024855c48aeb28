package digest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
)

// Stage names a step of digest generation, used in logs.
type Stage string

const (
	StageFetching   Stage = "fetching"
	StageNoPosts    Stage = "no_posts"
	StageFormatting Stage = "formatting"
	StagePrompting  Stage = "prompting"
	StageGenerating Stage = "generating"
	StageParsing    Stage = "parsing"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// MsgNoPosts is the failure message when the window holds no posts.
const MsgNoPosts = "no posts in window"

// Generator produces digests from stored posts and a language model.
type Generator struct {
	posts  domain.PostFinder
	model  domain.LanguageModel
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(posts domain.PostFinder, model domain.LanguageModel, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{posts: posts, model: model, logger: logger, now: time.Now}
}

// Generate builds the digest for keyword over the last windowHours. It makes
// at most one model call and never returns an error; failures are reported
// in the result.
func (g *Generator) Generate(ctx context.Context, keyword string, windowHours int) domain.DigestResult {
	log := g.logger.With("keyword", keyword, "window_hours", windowHours)
	enter := func(s Stage) { log.Debug("Digest stage", "stage", s) }

	enter(StageFetching)
	posts, err := g.posts.FindRecent(ctx, keyword, windowHours)
	if err != nil {
		log.Warn("Treating unreadable posts as empty", "error", err)
		posts = nil
	}
	if len(posts) == 0 {
		enter(StageNoPosts)
		log.Info("No posts in window")
		return g.failure(MsgNoPosts, 0)
	}

	enter(StageFormatting)
	postsText := Format(posts)

	enter(StagePrompting)
	prompt := BuildPrompt(keyword, windowHours, postsText)

	enter(StageGenerating)
	if g.model == nil {
		enter(StageFailed)
		return g.failure("generation failed: no language model configured", len(posts))
	}
	log.Info("Generating summary", "post_count", len(posts), "prompt_chars", len(prompt))
	start := time.Now()
	reply, err := g.model.Chat(ctx, prompt)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		enter(StageFailed)
		log.Error("Generation failed", "error", err, "elapsed", time.Since(start))
		return g.failure("generation failed: "+err.Error(), len(posts))
	}
	log.Info("Generation finished", "elapsed", time.Since(start), "reply_chars", len(reply))

	enter(StageParsing)
	parsed := ParseReply(reply)
	if parsed.Degraded() {
		log.Warn("Cover card not extracted, using whole reply as summary", "error", parsed.Degradation)
	}

	enter(StageDone)
	return domain.DigestResult{
		Success:     true,
		Summary:     parsed.Summary,
		CoverCard:   parsed.CoverCard,
		PostCount:   len(posts),
		TopPosts:    TopPosts(posts, TopPostCount),
		Degraded:    parsed.Degraded(),
		GeneratedAt: g.now(),
	}
}

func (g *Generator) failure(msg string, postCount int) domain.DigestResult {
	return domain.DigestResult{
		Success:        false,
		CoverCard:      map[string]any{},
		PostCount:      postCount,
		TopPosts:       []domain.TopPost{},
		FailureMessage: msg,
		GeneratedAt:    g.now(),
	}
}

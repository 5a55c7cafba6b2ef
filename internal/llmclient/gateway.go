// File: internal/llmclient/gateway.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
	"github.com/xkilldash9x/applypilot-cli/internal/config"
	"github.com/xkilldash9x/applypilot-cli/internal/profile"
)

// titleTerms marks questions that ask for a job title rather than a free-form
// answer; those get a constrained prompt and stricter response cleanup.
var titleTerms = []string{"title", "position", "role"}

// answerPrefixRe strips the model's throat-clearing lead-ins.
var answerPrefixRe = regexp.MustCompile(`^(I would say that |I can say that |I would like to say that )`)

// titlePrefixRe strips self-referential lead-ins from title answers.
var titlePrefixRe = regexp.MustCompile(`^(I am |I'm |Currently |Working as )`)

// Gateway wraps the completion client with rate-limit retries and a
// deterministic fallback, so callers always get a usable answer string.
type Gateway struct {
	client  schemas.LLMClient
	profile *profile.Profile
	logger  *zap.Logger
	limiter *rate.Limiter

	maxAttempts int
	baseDelay   time.Duration

	// sleep is indirect so tests can observe the backoff schedule without
	// waiting it out.
	sleep func(ctx context.Context, d time.Duration)
}

var _ schemas.AnswerGateway = (*Gateway)(nil)

// NewGateway builds the gateway. The profile supplies the resume text that
// seeds prompts and the keyword maps behind the deterministic fallback.
func NewGateway(client schemas.LLMClient, prof *profile.Profile, cfg config.LLMConfig, logger *zap.Logger) *Gateway {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Gateway{
		client:      client,
		profile:     prof,
		logger:      logger.Named("gateway"),
		limiter:     rate.NewLimiter(limit, 1),
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       sleepWithContext,
	}
}

// Ask produces an answer for the question. Rate-limit failures are retried
// with exponential backoff (base * 2^attempt before attempts two and three);
// any other failure, or exhausting the retries, yields the deterministic
// fallback answer. Ask never returns an empty string.
func (g *Gateway) Ask(ctx context.Context, question string) string {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := g.baseDelay * (1 << attempt)
			g.logger.Info("Rate limit hit, backing off before retry",
				zap.Int("attempt", attempt+1), zap.Duration("delay", delay))
			g.sleep(ctx, delay)
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return g.Fallback(question)
		}

		answer, err := g.client.Generate(ctx, g.buildRequest(question))
		if err == nil {
			return g.cleanAnswer(question, answer)
		}
		if errors.Is(err, ErrRateLimited) {
			continue
		}

		g.logger.Error("LLM generation failed, using fallback answer",
			zap.String("question", question), zap.Error(err))
		return g.Fallback(question)
	}

	g.logger.Error("Rate limit retries exhausted, using fallback answer",
		zap.String("question", question))
	return g.Fallback(question)
}

// Fallback is the deterministic answer used when the provider is
// unreachable. Identity keywords resolve from the profile, title questions
// get the generic configured title, and everything else defaults to "Yes" --
// the loop must keep moving even with the provider down.
func (g *Gateway) Fallback(question string) string {
	if answer, ok := g.profile.EssentialAnswer(question); ok {
		return answer
	}
	if answer, ok := g.profile.PredefinedAnswer(question); ok {
		return answer
	}
	if isTitleQuestion(question) {
		if g.profile.FallbackTitle != "" {
			return g.profile.FallbackTitle
		}
		return "Software Engineer"
	}
	return "Yes"
}

func (g *Gateway) buildRequest(question string) schemas.GenerationRequest {
	if isTitleQuestion(question) {
		return schemas.GenerationRequest{
			UserPrompt: fmt.Sprintf(
				"Based on my resume, provide only my current job title or the role I'm most qualified for.\n"+
					"Give a single, brief title (2-4 words maximum).\n\nResume:\n%s\n\nAnswer with just the title:",
				g.profile.ResumeText),
			Options: schemas.GenerationOptions{Temperature: 0.1},
		}
	}

	return schemas.GenerationRequest{
		SystemPrompt: "You are me answering a job application question. Provide a direct, first-person response.\n" +
			"Rules:\n" +
			"1. Answer in first person\n" +
			"2. Depending on question, give the response accordingly.\n" +
			"3. For yes/no: Answer only \"Yes\" or \"No\"\n" +
			"4. For numbers: Provide only the number\n" +
			"5. For titles/positions: Provide only the title\n" +
			"6. Always answer \"No\" to relocation",
		UserPrompt: fmt.Sprintf("My resume:\n%s\n\nQuestion: %s\n\nAnswer:", g.profile.ResumeText, question),
		Options:    schemas.GenerationOptions{Temperature: 0.1},
	}
}

// cleanAnswer normalizes a raw completion into something a form accepts.
func (g *Gateway) cleanAnswer(question, answer string) string {
	answer = strings.TrimSpace(answer)
	answer = answerPrefixRe.ReplaceAllString(answer, "")
	// Take only the first sentence.
	if idx := strings.Index(answer, "."); idx >= 0 {
		answer = answer[:idx]
	}

	if isTitleQuestion(question) {
		if idx := strings.Index(answer, "\n"); idx >= 0 {
			answer = answer[:idx]
		}
		answer = titlePrefixRe.ReplaceAllString(strings.TrimSpace(answer), "")
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return g.Fallback(question)
	}
	return answer
}

func isTitleQuestion(question string) bool {
	q := strings.ToLower(question)
	for _, term := range titleTerms {
		if strings.Contains(q, term) {
			return true
		}
	}
	return false
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

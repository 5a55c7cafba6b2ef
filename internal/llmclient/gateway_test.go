// File: internal/llmclient/gateway_test.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
	"github.com/xkilldash9x/applypilot-cli/internal/config"
	"github.com/xkilldash9x/applypilot-cli/internal/profile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubClient is a call-counting schemas.LLMClient with scripted responses.
type stubClient struct {
	calls     int
	responses []stubResponse
	lastReq   schemas.GenerationRequest
}

type stubResponse struct {
	answer string
	err    error
}

func (s *stubClient) Generate(_ context.Context, req schemas.GenerationRequest) (string, error) {
	s.lastReq = req
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	r := s.responses[idx]
	return r.answer, r.err
}

func testProfile() *profile.Profile {
	return &profile.Profile{
		ResumeText: "Jane Doe. Backend engineer, five years of Go.",
		Essential: map[string]string{
			"email": "jane@example.com",
			"phone": "+15551234567",
		},
		Predefined: map[string]string{
			"relocate": "No",
		},
		FallbackTitle: "Software Engineer",
	}
}

func newTestGateway(client schemas.LLMClient) (*Gateway, *[]time.Duration) {
	g := NewGateway(client, testProfile(), config.LLMConfig{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
	}, zap.NewNop())

	var delays []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) {
		delays = append(delays, d)
	}
	return g, &delays
}

func TestAskReturnsCleanedAnswer(t *testing.T) {
	stub := &stubClient{responses: []stubResponse{{answer: "I would say that I enjoy distributed systems. They are fun."}}}
	g, _ := newTestGateway(stub)

	answer := g.Ask(context.Background(), "What interests you about this job?")

	assert.Equal(t, "I enjoy distributed systems", answer)
	assert.Equal(t, 1, stub.calls)
}

func TestAskBackoffScheduleOnRateLimit(t *testing.T) {
	stub := &stubClient{responses: []stubResponse{
		{err: fmt.Errorf("call failed: %w", ErrRateLimited)},
		{err: fmt.Errorf("call failed: %w", ErrRateLimited)},
		{answer: "Yes"},
	}}
	g, delays := newTestGateway(stub)

	answer := g.Ask(context.Background(), "Do you have a work permit?")

	assert.Equal(t, "Yes", answer)
	assert.Equal(t, 3, stub.calls)
	// base * 2^attempt before attempts two and three.
	assert.Equal(t, []time.Duration{4 * time.Second, 8 * time.Second}, *delays)
}

func TestAskExhaustedRetriesFallsBack(t *testing.T) {
	stub := &stubClient{responses: []stubResponse{{err: ErrRateLimited}}}
	g, delays := newTestGateway(stub)

	answer := g.Ask(context.Background(), "Are you willing to relocate?")

	assert.Equal(t, "No", answer, "fallback must come from the predefined map")
	assert.Equal(t, 3, stub.calls)
	assert.Len(t, *delays, 2)
}

func TestAskNonRateLimitErrorFallsBackImmediately(t *testing.T) {
	stub := &stubClient{responses: []stubResponse{{err: errors.New("connection refused")}}}
	g, delays := newTestGateway(stub)

	answer := g.Ask(context.Background(), "What is your email address?")

	assert.Equal(t, "jane@example.com", answer)
	assert.Equal(t, 1, stub.calls, "generic failures must not be retried")
	assert.Empty(t, *delays)
}

func TestFallbackAnswers(t *testing.T) {
	g, _ := newTestGateway(&stubClient{responses: []stubResponse{{}}})

	assert.Equal(t, "+15551234567", g.Fallback("Phone number"))
	assert.Equal(t, "Software Engineer", g.Fallback("What is your current job title?"))
	assert.Equal(t, "Yes", g.Fallback("Do you have experience with Kubernetes?"))
}

func TestTitlePromptAndCleanup(t *testing.T) {
	stub := &stubClient{responses: []stubResponse{{answer: "I'm Backend Engineer\nwith five years of Go"}}}
	g, _ := newTestGateway(stub)

	answer := g.Ask(context.Background(), "What is your current position?")

	assert.Equal(t, "Backend Engineer", answer)
	// Title questions use the constrained prompt, seeded with the resume.
	assert.Contains(t, stub.lastReq.UserPrompt, "2-4 words maximum")
	assert.Contains(t, stub.lastReq.UserPrompt, "Jane Doe")
	assert.Empty(t, stub.lastReq.SystemPrompt)
}

func TestGeneralPromptCarriesRules(t *testing.T) {
	stub := &stubClient{responses: []stubResponse{{answer: "No"}}}
	g, _ := newTestGateway(stub)

	g.Ask(context.Background(), "Are you willing to relocate?")

	require.NotEmpty(t, stub.lastReq.SystemPrompt)
	assert.Contains(t, stub.lastReq.SystemPrompt, `Always answer "No" to relocation`)
	assert.Contains(t, stub.lastReq.UserPrompt, "Question: Are you willing to relocate?")
}

func TestEmptyCompletionFallsBack(t *testing.T) {
	stub := &stubClient{responses: []stubResponse{{answer: "   "}}}
	g, _ := newTestGateway(stub)

	assert.Equal(t, "Yes", g.Ask(context.Background(), "Anything else to add?"))
}

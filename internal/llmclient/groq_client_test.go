// File: internal/llmclient/groq_client_test.go
package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
	"github.com/xkilldash9x/applypilot-cli/internal/config"
)

func newTestClient(t *testing.T, endpoint string) *GroqClient {
	t.Helper()
	client, err := NewGroqClient(config.LLMConfig{
		APIKey:     "test-key",
		Endpoint:   endpoint,
		Model:      "mixtral-8x7b-32768",
		APITimeout: 5 * time.Second,
		MaxTokens:  50,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(client.httpClient.CloseIdleConnections)
	return client
}

func completionBody(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":"` + content + `"},"finish_reason":"stop"}],"usage":{"total_tokens":10}}`
}

func TestGenerateSuccess(t *testing.T) {
	var gotAuth string
	var gotPayload chatRequestPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("Yes")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	answer, err := client.Generate(context.Background(), schemas.GenerationRequest{
		SystemPrompt: "rules",
		UserPrompt:   "Willing to relocate?",
		Options:      schemas.GenerationOptions{Temperature: 0.1},
	})

	require.NoError(t, err)
	assert.Equal(t, "Yes", answer)
	assert.Equal(t, "Bearer test-key", gotAuth)
	require.Len(t, gotPayload.Messages, 2)
	assert.Equal(t, "system", gotPayload.Messages[0].Role)
	assert.Equal(t, "mixtral-8x7b-32768", gotPayload.Model)
	assert.Equal(t, 50, gotPayload.MaxTokens, "client default should fill in max_tokens")
}

func TestGenerateRateLimitIsNotRetriedLocally(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "q"})

	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, calls, "429 must be surfaced to the gateway, not retried here")
}

func TestGenerateRetriesTransientServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(completionBody("after retry")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	answer, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "q"})

	require.NoError(t, err)
	assert.Equal(t, "after retry", answer)
	assert.Equal(t, 2, calls)
}

func TestGenerateBadRequestIsPermanent(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "q"})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, calls)
}

func TestGenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestNewGroqClientValidation(t *testing.T) {
	_, err := NewGroqClient(config.LLMConfig{Endpoint: "http://x"}, zap.NewNop())
	assert.Error(t, err, "missing API key must be rejected")

	_, err = NewGroqClient(config.LLMConfig{APIKey: "k"}, zap.NewNop())
	assert.Error(t, err, "missing endpoint must be rejected")
}

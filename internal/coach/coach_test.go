package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/config"
	"trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/resilience"
	"trade-journal/pkg/utils"
)

type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	lastUser  string
}

func (f *fakeLLM) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.lastUser = userPrompt
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", nil
}

func fastRetry() Option {
	return WithRetry(utils.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1,
		ShouldRetry:   isTransient,
	})
}

func weeklySummary() *models.PeriodSummary {
	return &models.PeriodSummary{
		UserID:           "u1",
		PeriodType:       models.PeriodWeekly,
		WindowStart:      time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
		WindowEnd:        time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		TotalTrades:      3,
		WinCount:         1,
		LossCount:        2,
		WinRate:          33.33,
		TotalPnL:         50,
		Expectancy:       16.67,
		BestStrategy:     "Breakout",
		WorstStrategy:    "Reversal",
		RuleAdherence:    75,
		AvgDecisionScore: 62.5,
		EmotionalPatterns: map[string]models.EmotionalPattern{
			"calm":    {Count: 2, Wins: 1, TotalPnL: 100},
			"anxious": {Count: 1, Wins: 0, TotalPnL: -50},
		},
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(weeklySummary())

	assert.Contains(t, prompt, "Period: weekly, 2026-10-12 to 2026-10-18")
	assert.Contains(t, prompt, "Trades: 3 (wins 1, losses 2, breakeven 0)")
	assert.Contains(t, prompt, "Win rate: 33.3%")
	assert.Contains(t, prompt, "Best strategy: Breakout, worst strategy: Reversal")
	assert.NotContains(t, prompt, "entry model")
	// Emotions are listed alphabetically.
	assert.Less(t, strings.Index(prompt, "- anxious"), strings.Index(prompt, "- calm"))
}

func TestReviewPeriod(t *testing.T) {
	llm := &fakeLLM{responses: []string{"  Solid discipline this week.  "}}
	c := New(llm, "test-model", fastRetry())

	review, err := c.ReviewPeriod(context.Background(), weeklySummary())
	require.NoError(t, err)
	assert.Equal(t, "Solid discipline this week.", review.Narrative)
	assert.Equal(t, "test-model", review.Model)
	assert.Equal(t, "u1", review.UserID)
	assert.Equal(t, models.PeriodWeekly, review.PeriodType)
	assert.Contains(t, llm.lastUser, "Rule adherence: 75.0%")
}

func TestReviewPeriod_RetriesTransientErrors(t *testing.T) {
	llm := &fakeLLM{
		errs:      []error{&openai.APIError{HTTPStatusCode: 503, Message: "overloaded"}, fmt.Errorf("connection reset")},
		responses: []string{"", "", "Review"},
	}
	c := New(llm, "m", fastRetry())

	review, err := c.ReviewPeriod(context.Background(), weeklySummary())
	require.NoError(t, err)
	assert.Equal(t, "Review", review.Narrative)
	assert.Equal(t, 3, llm.calls)
}

func TestReviewPeriod_DoesNotRetryClientErrors(t *testing.T) {
	llm := &fakeLLM{errs: []error{fmt.Errorf("openai completion failed: %w", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"})}}
	c := New(llm, "m", fastRetry())

	_, err := c.ReviewPeriod(context.Background(), weeklySummary())
	require.Error(t, err)
	assert.Equal(t, 1, llm.calls)

	var coachErr *errors.CoachError
	require.True(t, errors.As(err, &coachErr))
	assert.Equal(t, "review_period", coachErr.Operation)
}

func TestReviewPeriod_InvalidInput(t *testing.T) {
	c := New(&fakeLLM{}, "m", fastRetry())

	_, err := c.ReviewPeriod(context.Background(), nil)
	assert.ErrorIs(t, err, errors.ErrInputValidation)

	_, err = c.ReviewPeriod(context.Background(), &models.PeriodSummary{UserID: "u1", PeriodType: models.PeriodDaily})
	assert.ErrorIs(t, err, errors.ErrInputValidation)
}

func TestReviewPeriod_EmptyResponse(t *testing.T) {
	c := New(&fakeLLM{responses: []string{"   "}}, "m", fastRetry())

	_, err := c.ReviewPeriod(context.Background(), weeklySummary())
	var coachErr *errors.CoachError
	assert.True(t, errors.As(err, &coachErr))
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()

	_, err := NewFromConfig(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, errors.ErrCoachUnavailable)

	cfg.Coach.Enabled = true
	_, err = NewFromConfig(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, errors.ErrCoachUnavailable)

	cfg.Coach.APIKey = "sk-test"
	c, err := NewFromConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, cfg.Coach.Model, c.model)
}

func TestOpenAIClient_AgainstStubServer(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Keep journaling."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini", MaxTokens: 100, Temperature: 0.2})
	out, err := client.CompleteWithSystem(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "Keep journaling.", out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)

	bad := NewOpenAIClient(OpenAIConfig{APIKey: "wrong", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})
	_, err = bad.CompleteWithSystem(context.Background(), "system", "user")
	require.Error(t, err)
	assert.False(t, isTransient(err))
}

func TestReviewPeriod_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	clientErr := &openai.APIError{HTTPStatusCode: http.StatusBadRequest, Message: "bad request"}
	llm := &fakeLLM{errs: []error{clientErr, clientErr, clientErr}}
	cb := resilience.NewCircuitBreaker("coach", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		Cooldown:         time.Hour,
	})
	c := New(llm, "test-model", fastRetry(), WithCircuitBreaker(cb))

	for i := 0; i < 2; i++ {
		_, err := c.ReviewPeriod(context.Background(), weeklySummary())
		require.Error(t, err)
		assert.False(t, errors.Is(err, errors.ErrCoachUnavailable))
	}
	assert.Equal(t, resilience.CircuitOpen, c.Breaker().State())

	_, err := c.ReviewPeriod(context.Background(), weeklySummary())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCoachUnavailable))
	assert.Equal(t, 2, llm.calls, "an open circuit must not reach the LLM")
}

package coach

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"trade-journal/internal/config"
	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/resilience"
	"trade-journal/pkg/utils"
)

const systemPrompt = `You are a trading performance coach reviewing a trader's journal.
You receive aggregate statistics for one period. Write a short review with:
1. What went well, backed by the numbers.
2. The most costly behavioral pattern, backed by the numbers.
3. Two or three concrete actions for the next period.
Focus on process and discipline over P&L. Do not invent figures that are not given.
Keep it under 250 words. Plain text, no markdown headers.`

// Review is a narrative review of one period summary.
type Review struct {
	UserID      string            `json:"userId"`
	PeriodType  models.PeriodType `json:"periodType"`
	WindowStart time.Time         `json:"windowStart"`
	WindowEnd   time.Time         `json:"windowEnd"`
	Model       string            `json:"model"`
	Narrative   string            `json:"narrative"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// Coach produces period reviews.
type Coach struct {
	client  LLMClient
	model   string
	retry   utils.RetryConfig
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
	breaker *resilience.CircuitBreaker
}

// Option configures a Coach.
type Option func(*Coach)

// WithLogger sets the coach logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coach) {
		c.logger = logger.With().Str("component", "coach").Logger()
	}
}

// WithRetry overrides the retry policy for LLM calls.
func WithRetry(cfg utils.RetryConfig) Option {
	return func(c *Coach) {
		c.retry = cfg
	}
}

// WithTimeout bounds a review, retries included.
func WithTimeout(d time.Duration) Option {
	return func(c *Coach) {
		c.timeout = d
	}
}

// WithCircuitBreaker replaces the breaker that guards LLM calls.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Coach) {
		c.breaker = cb
	}
}

// New creates a coach over client. model is only reported on reviews.
func New(client LLMClient, model string, opts ...Option) *Coach {
	retry := utils.DefaultRetryConfig()
	retry.InitialDelay = time.Second
	retry.ShouldRetry = isTransient

	c := &Coach{
		client:  client,
		model:   model,
		retry:   retry,
		timeout: time.Minute,
		logger:  zerolog.Nop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		cfg := resilience.DefaultCircuitBreakerConfig()
		cfg.OnStateChange = func(name string, from, to resilience.CircuitState) {
			c.logger.Warn().Str("breaker", name).Str("from", string(from)).Str("to", string(to)).Msg("Coach circuit changed state")
		}
		c.breaker = resilience.NewCircuitBreaker("coach", cfg)
	}
	return c
}

// Breaker returns the circuit breaker guarding LLM calls.
func (c *Coach) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

// NewFromConfig creates an OpenAI-backed coach. It fails with
// ErrCoachUnavailable when the coach is disabled or has no API key.
func NewFromConfig(cfg *config.Config, logger zerolog.Logger) (*Coach, error) {
	if !cfg.Coach.Enabled {
		return nil, errors.Wrap(errors.ErrCoachUnavailable, "coach is disabled in config")
	}
	if !cfg.CoachAvailable() {
		return nil, errors.Wrap(errors.ErrCoachUnavailable, "OPENAI_API_KEY is not set")
	}

	client := NewOpenAIClient(OpenAIConfig{
		APIKey:      cfg.Coach.APIKey,
		BaseURL:     cfg.Coach.BaseURL,
		Model:       cfg.Coach.Model,
		MaxTokens:   cfg.Coach.MaxTokens,
		Temperature: cfg.Coach.Temperature,
	})

	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Coach.MaxRetries
	retry.InitialDelay = time.Second
	retry.ShouldRetry = isTransient

	return New(client, cfg.Coach.Model,
		WithLogger(logger),
		WithRetry(retry),
		WithTimeout(cfg.Coach.Timeout),
	), nil
}

// ReviewPeriod asks the LLM for a narrative review of summary.
func (c *Coach) ReviewPeriod(ctx context.Context, summary *models.PeriodSummary) (*Review, error) {
	if summary == nil {
		return nil, errors.NewValidationError("summary", nil, "is required")
	}
	if summary.TotalTrades == 0 {
		return nil, errors.NewValidationError("summary", summary.PeriodType, "has no trades to review")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(summary)
	logger := logging.WithUserID(c.logger, summary.UserID)

	retry := c.retry
	retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn().Int("attempt", attempt).Dur("retry_in", delay).Err(err).Msg("Coach call failed, retrying")
	}

	start := time.Now()
	narrative, err := resilience.ExecuteWithResult(ctx, c.breaker, func(ctx context.Context) (string, error) {
		return utils.RetryWithResult(ctx, retry, func() (string, error) {
			return c.client.CompleteWithSystem(ctx, systemPrompt, prompt)
		})
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, errors.Wrap(errors.ErrCoachUnavailable, "coach circuit is open after repeated failures")
	}
	logging.LogAPICall(logger, "POST", "chat/completions", time.Since(start), err)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = errors.Wrap(errors.ErrTimeout, err.Error())
		}
		return nil, errors.NewCoachError(c.model, "review_period", err)
	}

	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return nil, errors.NewCoachError(c.model, "review_period", fmt.Errorf("empty review"))
	}

	return &Review{
		UserID:      summary.UserID,
		PeriodType:  summary.PeriodType,
		WindowStart: summary.WindowStart,
		WindowEnd:   summary.WindowEnd,
		Model:       c.model,
		Narrative:   narrative,
		GeneratedAt: c.now(),
	}, nil
}

// BuildPrompt renders a period summary as the user prompt of a review.
func BuildPrompt(s *models.PeriodSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Period: %s, %s to %s\n", s.PeriodType,
		s.WindowStart.Format("2006-01-02"), s.WindowEnd.Add(-time.Nanosecond).Format("2006-01-02"))
	fmt.Fprintf(&b, "Trades: %d (wins %d, losses %d, breakeven %d)\n",
		s.TotalTrades, s.WinCount, s.LossCount, s.BreakevenCount)
	fmt.Fprintf(&b, "Win rate: %.1f%%\n", s.WinRate)
	fmt.Fprintf(&b, "Total P&L: %.2f, expectancy per trade: %.2f\n", s.TotalPnL, s.Expectancy)
	fmt.Fprintf(&b, "Rule adherence: %.1f%%\n", s.RuleAdherence)
	if s.AvgDecisionScore > 0 {
		fmt.Fprintf(&b, "Average decision score: %.1f/100\n", s.AvgDecisionScore)
	}
	if s.BestStrategy != "" {
		fmt.Fprintf(&b, "Best strategy: %s, worst strategy: %s\n", s.BestStrategy, s.WorstStrategy)
	}
	if s.BestEntryModel != "" {
		fmt.Fprintf(&b, "Best entry model: %s, worst entry model: %s\n", s.BestEntryModel, s.WorstEntryModel)
	}

	if len(s.EmotionalPatterns) > 0 {
		emotions := make([]string, 0, len(s.EmotionalPatterns))
		for e := range s.EmotionalPatterns {
			emotions = append(emotions, e)
		}
		sort.Strings(emotions)

		b.WriteString("Results by pre-trade emotion:\n")
		for _, e := range emotions {
			p := s.EmotionalPatterns[e]
			fmt.Fprintf(&b, "- %s: %d trades, %d wins, P&L %.2f\n", e, p.Count, p.Wins, p.TotalPnL)
		}
	}

	return b.String()
}

// isTransient reports whether an LLM error is worth retrying. Client errors
// other than rate limiting are not.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500 || code == 0
}

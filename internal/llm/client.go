// Package llm wraps the Anthropic SDK with the rate limiting, retry,
// and circuit breaking the gateway applies around every model call.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dbquery-gateway/gateway/internal/errs"
)

// Config is the subset of config.LLMConfig/ResilienceConfig the client
// needs, kept separate so the package has no dependency on internal/config.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	MaxRetries       int
	BaseDelay        time.Duration
	BackoffFactor    float64
	BreakerThreshold int
	BreakerCooldown  time.Duration
	RateLimitRPS     float64
	RateLimitBurst   int
}

// Client is the single-shot LLM client: GenerateSQL and JudgeResult
// are its only two operations, a deliberate reduction from the
// teacher's open-ended multi-turn tool-calling agent loop, since the
// gateway's orchestrator drives retries itself rather than delegating
// control flow to the model.
type Client struct {
	sdk     *anthropic.Client
	cfg     Config
	limiter *rate.Limiter
	breaker *CircuitBreaker
}

func New(apiKey, baseURL string, cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	sdk := anthropic.NewClient(opts...)
	return &Client{
		sdk:     sdk,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		breaker: NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
	}
}

// GenerateSQL runs a single completion turn asking the model to
// produce SQL text (still unvalidated — the caller must run it
// through sqlsafety before execution).
func (c *Client) GenerateSQL(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, "generate_sql", systemPrompt, userPrompt)
}

// JudgeResult runs a single completion turn asking the model to score
// confidence in a result set, returning the raw JSON text for the
// caller to parse. Call failures are retried with the same backoff as
// GenerateSQL; the client never parses the reply. When the last attempt
// fails or the reply does not parse, the judge component degrades to an
// "unjudged" confidence.
func (c *Client) JudgeResult(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, "judge_result", systemPrompt, userPrompt)
}

func (c *Client) complete(ctx context.Context, op, systemPrompt, userPrompt string) (string, error) {
	if !c.breaker.AllowRequest() {
		return "", errs.New(errs.KindCircuitOpen, fmt.Sprintf("llm circuit open for %s", op))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", errs.Wrap(errs.KindRateLimited, err, "rate limit wait cancelled")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var lastErr error
	delay := c.cfg.BaseDelay
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		text, err := c.callOnce(callCtx, systemPrompt, userPrompt)
		if err == nil {
			c.breaker.RecordSuccess()
			return text, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("llm call failed")

		if attempt == c.cfg.MaxRetries {
			break
		}
		jitter := time.Duration(rand.Int63n(int64(delay) / 2))
		select {
		case <-callCtx.Done():
			c.breaker.RecordFailure()
			return "", errs.Wrap(errs.KindLLMUnavailable, callCtx.Err(), "llm call timed out")
		case <-time.After(delay + jitter):
		}
		delay = time.Duration(math.Min(float64(delay)*c.cfg.BackoffFactor, float64(c.cfg.Timeout)))
	}

	c.breaker.RecordFailure()
	return "", errs.Wrap(errs.KindLLMUnavailable, lastErr, fmt.Sprintf("llm call failed after %d attempts", c.cfg.MaxRetries+1))
}

func (c *Client) callOnce(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.F(anthropic.Model(c.cfg.Model)),
		MaxTokens:   anthropic.F(int64(c.cfg.MaxTokens)),
		Temperature: anthropic.F(c.cfg.Temperature),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		}),
	}
	if systemPrompt != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(systemPrompt),
		})
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var text string
	for _, block := range resp.Content {
		if b, ok := block.AsUnion().(anthropic.TextBlock); ok {
			text += b.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("llm response contained no text content")
	}
	return text, nil
}

// JudgeVerdict is the parsed shape of a judge_result response.
type JudgeVerdict struct {
	Confidence int    `json:"confidence"`
	Rationale  string `json:"explanation"`
	Suggestion string `json:"suggestion"`
}

func ParseJudgeVerdict(raw string) (JudgeVerdict, error) {
	var v JudgeVerdict
	if err := json.Unmarshal([]byte(extractJSON(raw)), &v); err != nil {
		return JudgeVerdict{}, fmt.Errorf("parse judge verdict: %w", err)
	}
	return v, nil
}

func extractJSON(s string) string {
	start := -1
	for i, r := range s {
		if r == '{' {
			start = i
			break
		}
	}
	if start == -1 {
		return s
	}
	end := -1
	for i := len(s) - 1; i >= start; i-- {
		if s[i] == '}' {
			end = i
			break
		}
	}
	if end == -1 {
		return s[start:]
	}
	return s[start : end+1]
}

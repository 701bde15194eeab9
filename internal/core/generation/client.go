// Package generation talks to an OpenAI-compatible chat completion backend
// and turns its JSON answers into typed payloads.
package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client generation backend client with bounded retry
type Client struct {
	http      *resty.Client
	model     string
	maxTokens int
	temps     config.TemperatureConfig
	retry     config.RetryConfig
	limiter   *rate.Limiter
	sleep     Sleeper
}

// Option configures a Client
type Option func(*Client)

// WithSleeper replaces the backoff sleeper
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleep = s
	}
}

// WithLimiter throttles outbound calls
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient creates a generation client from config
func NewClient(cfg *config.Config, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(cfg.Generation.BaseURL).
		SetTimeout(cfg.Generation.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.Generation.APIKey != "" {
		rc.SetAuthToken(cfg.Generation.APIKey)
	}

	c := &Client{
		http:      rc,
		model:     cfg.Generation.Model,
		maxTokens: cfg.Generation.MaxTokens,
		temps:     cfg.Generation.Temperature,
		retry:     cfg.Retry,
		sleep:     sleepContext,
	}
	if cfg.Generation.RequestsPerSecond > 0 {
		burst := cfg.Generation.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.Generation.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// GenerateIngredientProfile synthesizes nutrition, units and ratios for an ingredient name.
func (c *Client) GenerateIngredientProfile(ctx context.Context, name string) (*IngredientProfile, error) {
	var out IngredientProfile
	if err := c.complete(ctx, ingredientProfilePrompt(name, c.temps.Ingredient), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateUnitRatios asks for grams-per-unit of common units of an ingredient.
func (c *Client) GenerateUnitRatios(ctx context.Context, ingredient string) (*UnitRatioList, error) {
	var out UnitRatioList
	if err := c.complete(ctx, unitRatioPrompt(ingredient, c.temps.UnitRatios), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateRecipe creates a recipe skeleton from a free-text request.
func (c *Client) GenerateRecipe(ctx context.Context, request string) (*RecipeSkeleton, error) {
	var out RecipeSkeleton
	if err := c.complete(ctx, recipePrompt(request, c.temps.Recipe), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateMealPlan creates a meal plan skeleton for a date range.
func (c *Client) GenerateMealPlan(ctx context.Context, req MealPlanRequest) (*MealPlanSkeleton, error) {
	var out MealPlanSkeleton
	if err := c.complete(ctx, mealPlanPrompt(req, c.temps.MealPlan), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// backoff returns the delay before retry number n (0-based).
func (c *Client) backoff(n int) time.Duration {
	d := c.retry.BaseDelay
	for i := 0; i < n; i++ {
		d *= 2
		if d >= c.retry.MaxDelay {
			return c.retry.MaxDelay
		}
	}
	if d > c.retry.MaxDelay {
		return c.retry.MaxDelay
	}
	return d
}

// complete runs the retry loop and decodes the answer into out.
func (c *Client) complete(ctx context.Context, p Prompt, out Payload) error {
	callID := common.GenerateUUID()
	maxAttempts := c.retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.backoff(attempt-2)); err != nil {
				return fmt.Errorf("generation interrupted: %w", err)
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("generation interrupted: %w", err)
			}
		}

		start := time.Now()
		content, err := c.call(ctx, p, attempt)
		common.LogGenerationCall(out.Shape(), attempt, time.Since(start), err, callID)
		if err == nil {
			return decode(content, out)
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err
	}

	common.LogError("generation retries exhausted",
		zap.String("shape", out.Shape()),
		zap.Int("attempts", maxAttempts),
		zap.String("request_id", callID),
	)
	return exhausted(maxAttempts, lastErr)
}

// call performs one request and returns the first choice's content.
func (c *Client) call(ctx context.Context, p Prompt, attempt int) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Temperature: p.Temperature,
		MaxTokens:   c.maxTokens,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("generation interrupted: %w", errors.Join(ctxErr, err))
		}
		return "", fatal(0, attempt, fmt.Errorf("failed to send request: %w", err))
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return "", transient(status, attempt, resp.String())
	case status < 200 || status >= 300:
		return "", fatal(status, attempt, fmt.Errorf("backend responded: %s", truncate(resp.String(), 200)))
	}

	var result chatResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return "", &Error{Kind: common.ErrMalformedGeneration, StatusCode: status, Attempts: attempt, Err: err}
	}
	if len(result.Choices) == 0 {
		return "", &Error{Kind: common.ErrMalformedGeneration, StatusCode: status, Attempts: attempt, Err: fmt.Errorf("no choices in response")}
	}
	return result.Choices[0].Message.Content, nil
}

// decode parses content against the declared payload shape.
func decode(content string, out Payload) error {
	raw, err := common.ExtractJSONObject(content)
	if err != nil {
		return malformed(out.Shape(), err)
	}
	if err := common.ParseJSON(raw, out); err != nil {
		repaired := common.StripTrailingCommas(common.QuoteJSONKeys(raw))
		if repairErr := common.ParseJSON(repaired, out); repairErr != nil {
			common.LogDebug("unparseable generation content",
				zap.String("shape", out.Shape()),
				zap.String("content", truncate(content, 500)),
			)
			return malformed(out.Shape(), err)
		}
	}
	if err := out.Validate(); err != nil {
		return malformed(out.Shape(), err)
	}
	return nil
}

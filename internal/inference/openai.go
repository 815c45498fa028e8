package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second

	// MaxRetries applies to rate-limit responses only.
	MaxRetries  = 3
	BaseBackoff = 2 * time.Second
	MaxBackoff  = 32 * time.Second
)

var ErrAPIKeyNotSet = errors.New("OpenAI API key not set")

// CompleteFunc sends one system+user exchange and returns the JSON reply.
type CompleteFunc func(ctx context.Context, system, prompt string) (string, error)

// OpenAIChat completes prompts with the chat completions API in JSON mode.
type OpenAIChat struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIChat(apiKey, model string) (*OpenAIChat, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIChat{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

func (c *OpenAIChat) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
			if backoff > MaxBackoff {
				backoff = MaxBackoff
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: shared.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(0.2),
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
			},
		})
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return "", fmt.Errorf("openai chat completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", errors.New("openai returned no choices")
		}
		return completion.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("openai rate limited after %d retries: %w", MaxRetries, lastErr)
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

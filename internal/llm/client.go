// Package llm is a small chat completions client plus the prompts validators
// use to rewrite articles and miners use to score them.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/config"
)

var (
	ErrMissingAPIKey = errors.New("openai api key is required")
	// ErrUpstreamUnavailable means the provider failed on its side (5xx).
	ErrUpstreamUnavailable = errors.New("llm provider is unavailable")
	// ErrClient means the request was rejected, usually key, balance or permissions.
	ErrClient     = errors.New("llm request rejected")
	ErrNoChoices  = errors.New("completion returned no choices")
	ErrNoResponse = errors.New("completion returned empty content")
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Prompt builds the messages for one completion and parses its answer.
type Prompt[T any] interface {
	Version() string
	TargetModel() string
	Messages() []Message
	Normalize(response string) (T, error)
}

type Client struct {
	client *resty.Client
}

func NewClient(cfg *config.OpenAIEnvConfig, timeout time.Duration) (*Client, error) {
	if cfg == nil || cfg.OpenAIAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := resty.New().
		SetBaseURL(cfg.OpenAIBaseURL).
		SetAuthToken(cfg.OpenAIAPIKey).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTimeout(timeout)

	return &Client{client: client}, nil
}

// Complete sends messages to model and returns the first choice.
func (c *Client) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	log.Trace().Str("model", model).Interface("messages", messages).Msg("Prompt")

	var result chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(chatRequest{Model: model, Messages: messages}).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		log.Error().Err(err).Msg("Failed to get completions")
		return "", fmt.Errorf("chat completions: %w", err)
	}

	switch {
	case resp.StatusCode() >= 500:
		log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).Msg("LLM provider is unavailable")
		return "", fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode())
	case resp.IsError():
		log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).
			Msg("Failed to access LLM API, check the API key balance or permissions")
		return "", fmt.Errorf("%w: status %d", ErrClient, resp.StatusCode())
	}

	if len(result.Choices) == 0 {
		return "", ErrNoChoices
	}
	content := result.Choices[0].Message.Content
	if content == "" {
		return "", ErrNoResponse
	}

	log.Trace().Str("model", model).Str("response", content).Msg("Completion")
	return content, nil
}

// Run completes prompt and normalizes the answer.
func Run[T any](ctx context.Context, c *Client, prompt Prompt[T]) (T, error) {
	var zero T
	response, err := c.Complete(ctx, prompt.TargetModel(), prompt.Messages())
	if err != nil {
		return zero, err
	}
	return prompt.Normalize(response)
}

// Package agent sends chat prompts to OpenAI-compatible and Anthropic
// language-model APIs through their official SDKs.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go/v3"
	openaiopt "github.com/openai/openai-go/v3/option"
)

// Agent errors.
var (
	ErrDisabled      = errors.New("language model provider disabled")
	ErrUpstream      = errors.New("language model request failed")
	ErrEmptyResponse = errors.New("language model returned no content")
)

// Client sends one system and user prompt pair and returns the reply text.
type Client interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// New creates the Client for cfg.Provider. It returns ErrDisabled when the
// provider is "none".
func New(cfg *Config) (Client, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAI(cfg), nil
	case ProviderAnthropic:
		return newAnthropic(cfg), nil
	case ProviderNone, "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

type openAIClient struct {
	cfg    *Config
	client openai.Client
}

func newOpenAI(cfg *Config) *openAIClient {
	return &openAIClient{
		cfg: cfg,
		client: openai.NewClient(
			openaiopt.WithAPIKey(cfg.Token),
			openaiopt.WithBaseURL(cfg.BaseURL),
			openaiopt.WithRequestTimeout(cfg.TimeoutDuration()),
			openaiopt.WithMaxRetries(*cfg.Retries),
		),
	}
}

func (c *openAIClient) Chat(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxCompletionTokens: openai.Int(int64(c.cfg.MaxTokens)),
		Temperature:         openai.Float(*c.cfg.Temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", upstream(apiErr.StatusCode, err)
		}
		return "", upstream(0, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

type anthropicClient struct {
	cfg    *Config
	client anthropic.Client
}

func newAnthropic(cfg *Config) *anthropicClient {
	return &anthropicClient{
		cfg: cfg,
		client: anthropic.NewClient(
			anthropicopt.WithAPIKey(cfg.Token),
			anthropicopt.WithBaseURL(cfg.BaseURL),
			anthropicopt.WithRequestTimeout(cfg.TimeoutDuration()),
			anthropicopt.WithMaxRetries(*cfg.Retries),
		),
	}
}

func (c *anthropicClient) Chat(ctx context.Context, system, user string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.Model),
		MaxTokens:   int64(c.cfg.MaxTokens),
		Temperature: anthropic.Float(*c.cfg.Temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", upstream(apiErr.StatusCode, err)
		}
		return "", upstream(0, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func upstream(status int, err error) error {
	if status == 0 {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return fmt.Errorf("%w: status %d: %w", ErrUpstream, status, err)
}

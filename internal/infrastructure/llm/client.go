package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
	"FeedDigest/internal/ports"
)

// ServiceError marks a completion-service failure (network, auth, rate
// limit). Callers decide whether it is recoverable for their stage.
type ServiceError struct {
	Model string
	Err   error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("completion service (%s): %v", e.Model, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Client implements ports.CompletionClient over an OpenAI-compatible chat API.
type Client struct {
	client *openai.Client
	apiKey string
}

var _ ports.CompletionClient = (*Client)(nil)

// NewClient builds a completion client from configuration. A custom base URL
// points the client at any OpenAI-compatible endpoint.
func NewClient(cfg config.ModelsConfig) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		apiKey: cfg.APIKey,
	}
}

// Complete issues one completion request and returns the text plus reported
// token usage.
func (c *Client) Complete(ctx context.Context, model, prompt string, maxTokens int) (domain.Completion, error) {
	if c.apiKey == "" {
		return domain.Completion{}, &ServiceError{Model: model, Err: fmt.Errorf("api key not configured")}
	}

	request := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens: maxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return domain.Completion{}, &ServiceError{Model: model, Err: err}
	}

	if len(resp.Choices) == 0 {
		return domain.Completion{}, &ServiceError{Model: model, Err: fmt.Errorf("empty choice list")}
	}

	return domain.Completion{
		Text: strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: domain.TokenUsage{
			Input:  resp.Usage.PromptTokens,
			Output: resp.Usage.CompletionTokens,
		},
	}, nil
}

// ExtractJSON recovers a JSON object from model output that may wrap it in
// code fences or explanatory prose. It returns the best candidate substring;
// the caller still has to unmarshal it.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+len("```"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}

	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") {
		return text
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}

	return text
}

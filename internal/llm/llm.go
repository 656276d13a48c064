// Package llm builds the chat completion client behind the OpenAI reply
// service.
package llm

import (
	"context"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/leo-go/internal/config"
)

// Client is the one call the reply service makes. *openai.Client satisfies
// it; tests substitute a function-field mock.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var _ Client = (*openai.Client)(nil)

// NewClient configures an OpenAI-compatible client from cfg. An empty
// BaseURL keeps the library default; a positive Timeout bounds every request.
func NewClient(cfg config.LLMConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return openai.NewClientWithConfig(clientCfg)
}

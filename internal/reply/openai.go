package reply

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/leo-go/internal/llm"
	"github.com/comigor/leo-go/internal/logger"
)

// OpenAI asks a chat completion model for the next assistant turn.
type OpenAI struct {
	client       llm.Client
	model        string
	systemPrompt string
}

func NewOpenAI(client llm.Client, model, systemPrompt string) *OpenAI {
	return &OpenAI{client: client, model: model, systemPrompt: systemPrompt}
}

func (o *OpenAI) Ask(ctx context.Context, prompts []Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(prompts)+1)
	if o.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: o.systemPrompt,
		})
	}
	for _, p := range prompts {
		messages = append(messages, openai.ChatCompletionMessage{Role: p.Role, Content: p.Content})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	logger.L.Debug("LLM response received", "model", o.model, "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

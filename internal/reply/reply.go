// Package reply produces the assistant's answer for a transcript.
//
// Callers always go through Service. Whether the answer comes from a live
// model, the HTTP endpoint, or the fixed maintenance text is decided by
// which implementation is wired in, and Switch can change that at runtime.
package reply

import (
	"context"
	"errors"

	"github.com/comigor/leo-go/internal/chat"
)

// DegradedText is the reply given while the assistant is unavailable.
const DegradedText = "We are down for maintainence, please check back later."

// ErrEmptyReply is returned when the backend answered without any text choice.
var ErrEmptyReply = errors.New("reply: backend returned no choices")

// Prompt is one normalized turn as sent to the assistant.
type Prompt struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service answers a normalized transcript with a single reply text.
type Service interface {
	Ask(ctx context.Context, prompts []Prompt) (string, error)
}

// Normalize maps every durable turn to a prompt, preserving order.
func Normalize(turns []chat.Turn) []Prompt {
	out := make([]Prompt, 0, len(turns))
	for _, t := range turns {
		out = append(out, Prompt{Role: string(t.Sender), Content: t.Text})
	}
	return out
}

// Degraded always answers with DegradedText.
type Degraded struct{}

func (Degraded) Ask(context.Context, []Prompt) (string, error) {
	return DegradedText, nil
}

// Package chat holds the conversation types shared by storage, the reply
// service and the session manager.
//
// A Turn is durable: it is what gets persisted and sent to the assistant.
// The typing placeholder is not a Turn at all; it lives as a flag on the
// Transcript and only shows up in the render projection, so it can never
// be stored by accident.
package chat

import "fmt"

// Sender identifies who authored a turn.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// ParseSender converts a wire value into a Sender.
func ParseSender(v string) (Sender, error) {
	s := Sender(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown sender %q", v)
	}
	return s, nil
}

// TypingText is shown while the assistant reply is pending.
const TypingText = "typing..."

// Turn is one durable message of the conversation.
type Turn struct {
	Sender Sender
	Text   string
	Time   string
}

// Entry is the render projection of a transcript row.
type Entry struct {
	Sender   Sender `json:"sender"`
	Text     string `json:"text"`
	Time     string `json:"time,omitempty"`
	IsTyping bool   `json:"isTyping,omitempty"`
}

// ShowTime reports whether the view should print a timestamp for e.
func (e Entry) ShowTime() bool {
	return !e.IsTyping && e.Time != ""
}

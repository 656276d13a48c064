package history

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/comigor/leo-go/internal/chat"
	"github.com/comigor/leo-go/internal/logger"
)

// storedMessage is one element of the persisted JSON array.
type storedMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time,omitempty"`
}

// loadedMessage additionally recognises the transient marker so malformed
// blobs can be cleaned on the way in.
type loadedMessage struct {
	storedMessage
	IsTyping bool `json:"isTyping"`
}

// Encode serialises turns as a JSON array. A nil slice encodes as [].
func Encode(turns []chat.Turn) ([]byte, error) {
	out := make([]storedMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, storedMessage{Sender: string(t.Sender), Text: t.Text, Time: t.Time})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	return data, nil
}

// Decode parses a stored blob. Empty bodies and JSON null decode to no turns.
// Typing placeholders, entries with an unknown sender and entries without a
// time are dropped, so nothing malformed is written back on the next save.
func Decode(data []byte) ([]chat.Turn, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var raw []loadedMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	turns := make([]chat.Turn, 0, len(raw))
	for i, m := range raw {
		if m.IsTyping {
			logger.L.Warn("dropping typing entry from stored transcript", "index", i)
			continue
		}
		sender, err := chat.ParseSender(m.Sender)
		if err != nil {
			logger.L.Warn("dropping stored entry", "index", i, "error", err)
			continue
		}
		if m.Time == "" {
			logger.L.Warn("dropping stored entry without time", "index", i)
			continue
		}
		turns = append(turns, chat.Turn{Sender: sender, Text: m.Text, Time: m.Time})
	}
	return turns, nil
}

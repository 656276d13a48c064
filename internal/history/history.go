// Package history persists one transcript blob per user.
//
// Every backend addresses the blob by Key(userID) and overwrites it whole on
// Save. There is no merge and no versioning: the last writer wins. Nothing
// here retries; callers decide what a failure means.
package history

import (
	"context"
	"errors"
	"strings"

	"github.com/comigor/leo-go/internal/chat"
)

// ErrNotFound is returned by Load when the user has no stored transcript.
var ErrNotFound = errors.New("history: transcript not found")

// KeyPrefix is the folder every transcript blob lives under.
const KeyPrefix = "full-conversation/"

// Key returns the blob key for userID.
func Key(userID string) string {
	return KeyPrefix + userID + ".json"
}

// Store reads and writes the per-user transcript.
type Store interface {
	Load(ctx context.Context, userID string) ([]chat.Turn, error)
	Save(ctx context.Context, userID string, turns []chat.Turn) error
}

func joinKey(prefix, userID string) string {
	if prefix == "" {
		return Key(userID)
	}
	return strings.TrimSuffix(prefix, "/") + "/" + Key(userID)
}

// Package auth gates the chat behind a sign-in and hands out the opaque
// user identifier the session works with. Credentials never leave this
// package.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/comigor/leo-go/internal/config"
	"github.com/comigor/leo-go/internal/logger"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid username or password")
	ErrUnknownSession     = errors.New("auth: unknown or expired session")
)

// tokenAlphabet is URL and cookie safe.
const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const tokenLength = 32

// Identity is an established sign-in.
type Identity struct {
	Token    string
	Username string
	UserID   string
	Expires  time.Time
}

// Gate checks credentials and tracks signed-in tokens.
type Gate struct {
	users map[string]config.UserConfig
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]Identity
}

func New(users []config.UserConfig, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	byName := make(map[string]config.UserConfig, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}
	return &Gate{
		users:    byName,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Identity),
	}
}

// SignIn verifies the credentials and opens a new token.
func (g *Gate) SignIn(username, password string) (Identity, error) {
	user, known := g.users[username]
	// Compare against something even for unknown users so timing does not
	// reveal which usernames exist.
	expected := user.Password
	if !known {
		expected = "\x00"
	}
	passwordMatch := subtle.ConstantTimeCompare([]byte(password), []byte(expected)) == 1
	if !known || !passwordMatch {
		logger.L.Warn("sign-in failed", "username", username)
		return Identity{}, ErrInvalidCredentials
	}

	token, err := nanoid.Generate(tokenAlphabet, tokenLength)
	if err != nil {
		return Identity{}, fmt.Errorf("auth: generate token: %w", err)
	}
	id := Identity{
		Token:    token,
		Username: user.Username,
		UserID:   user.UserID,
		Expires:  g.now().Add(g.ttl),
	}

	g.mu.Lock()
	g.sessions[token] = id
	g.mu.Unlock()

	logger.L.Info("signed in", "user", id.UserID)
	return id, nil
}

// Lookup returns the identity behind token if it is still valid.
func (g *Gate) Lookup(token string) (Identity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.sessions[token]
	if !ok {
		return Identity{}, false
	}
	if !g.now().Before(id.Expires) {
		delete(g.sessions, token)
		return Identity{}, false
	}
	return id, true
}

// SignOut invalidates token.
func (g *Gate) SignOut(token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.sessions[token]
	if !ok {
		return ErrUnknownSession
	}
	delete(g.sessions, token)
	logger.L.Info("signed out", "user", id.UserID)
	return nil
}

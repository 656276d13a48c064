package reply

import (
	"context"
	"errors"
	"net"
	"sync/atomic"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/leo-go/internal/logger"
)

// Switch routes to a live service or to Degraded. The mode can be flipped
// while the server runs; sessions keep calling the same Switch.
type Switch struct {
	live            Service
	degraded        atomic.Bool
	fallbackOnError bool
}

// NewSwitch wraps live. With fallbackOnError, an unreachable live backend
// answers DegradedText instead of failing.
func NewSwitch(live Service, degraded, fallbackOnError bool) *Switch {
	s := &Switch{live: live, fallbackOnError: fallbackOnError}
	s.degraded.Store(degraded || live == nil)
	return s
}

// SetDegraded toggles maintenance mode. It has no effect without a live service.
func (s *Switch) SetDegraded(on bool) {
	if s.live == nil {
		on = true
	}
	s.degraded.Store(on)
	logger.L.Info("reply mode changed", "degraded", on)
}

// Degraded reports whether maintenance mode is on.
func (s *Switch) Degraded() bool {
	return s.degraded.Load()
}

func (s *Switch) Ask(ctx context.Context, prompts []Prompt) (string, error) {
	if s.degraded.Load() {
		return Degraded{}.Ask(ctx, prompts)
	}
	text, err := s.live.Ask(ctx, prompts)
	if err != nil && s.fallbackOnError && ctx.Err() == nil && Unreachable(err) {
		logger.L.Warn("live reply unavailable; answering with maintenance text", "error", err)
		return DegradedText, nil
	}
	return text, err
}

// Unreachable reports whether err means the backend could not be reached or
// is failing on its side, as opposed to rejecting the request.
func Unreachable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= 500
	}
	return false
}

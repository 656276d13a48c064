// Package clock supplies display timestamps for transcript turns.
// Timestamps are never parsed back; they only need to read well.
package clock

import (
	"strings"
	"sync"
	"time"
)

// DisplayLayout renders as e.g. "oct 14, 2026, 03:04 pm" once lowercased.
const DisplayLayout = "Jan 02, 2006, 03:04 PM"

// Clock returns the current time formatted for display.
type Clock interface {
	Now() string
}

// System formats the wall clock in Location (local time when nil).
type System struct {
	Location *time.Location
}

func (s System) Now() string {
	t := time.Now()
	if s.Location != nil {
		t = t.In(s.Location)
	}
	return Format(t)
}

// Format renders t with DisplayLayout, lowercased.
func Format(t time.Time) string {
	return strings.ToLower(t.Format(DisplayLayout))
}

// Fixed always returns the same string.
type Fixed string

func (f Fixed) Now() string { return string(f) }

// Sequence hands out its values in order and repeats the last one when exhausted.
type Sequence struct {
	mu     sync.Mutex
	values []string
	next   int
}

func NewSequence(values ...string) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Now() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return ""
	}
	if s.next >= len(s.values) {
		return s.values[len(s.values)-1]
	}
	v := s.values[s.next]
	s.next++
	return v
}

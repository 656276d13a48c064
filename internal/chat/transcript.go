package chat

// Transcript is the ordered conversation plus an optional pending typing
// indicator. The indicator always renders last and always as the assistant.
// The zero value is an empty transcript.
type Transcript struct {
	turns  []Turn
	typing bool
}

// NewTranscript returns a transcript holding a copy of turns.
func NewTranscript(turns ...Turn) Transcript {
	t := Transcript{}
	if len(turns) > 0 {
		t.turns = append(make([]Turn, 0, len(turns)+2), turns...)
	}
	return t
}

// Append adds a durable turn after all existing turns.
func (t *Transcript) Append(turn Turn) {
	t.turns = append(t.turns, turn)
}

// Replace discards all turns and the indicator and installs turns.
func (t *Transcript) Replace(turns []Turn) {
	t.turns = append(make([]Turn, 0, len(turns)+2), turns...)
	t.typing = false
}

// StartTyping shows the typing indicator. Calling it twice keeps one indicator.
func (t *Transcript) StartTyping() { t.typing = true }

// StopTyping removes the typing indicator if present.
func (t *Transcript) StopTyping() { t.typing = false }

// Typing reports whether the indicator is showing.
func (t *Transcript) Typing() bool { return t.typing }

// Len is the number of durable turns.
func (t *Transcript) Len() int { return len(t.turns) }

// Turns returns a copy of the durable turns, in order.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Last returns the last durable turn.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Entries projects the transcript for rendering.
func (t *Transcript) Entries() []Entry {
	out := make([]Entry, 0, len(t.turns)+1)
	for _, turn := range t.turns {
		out = append(out, Entry{Sender: turn.Sender, Text: turn.Text, Time: turn.Time})
	}
	if t.typing {
		out = append(out, Entry{Sender: SenderAssistant, Text: TypingText, IsTyping: true})
	}
	return out
}

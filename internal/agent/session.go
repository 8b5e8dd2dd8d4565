package agent

import (
	"sync"

	"github.com/TreasureProject/voxagent/internal/gateway"
)

// DefaultMaxTurns bounds the session history when no explicit cap is given.
const DefaultMaxTurns = 200

// Session holds the conversation history of one agent run. The history is
// bounded: once maxTurns is reached the oldest turns are evicted so memory
// stays flat over arbitrarily long sessions.
//
// Safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	turns    []gateway.Turn
	maxTurns int
}

// NewSession creates a Session holding at most maxTurns turns. Values below
// one select [DefaultMaxTurns].
func NewSession(maxTurns int) *Session {
	if maxTurns < 1 {
		maxTurns = DefaultMaxTurns
	}
	return &Session{maxTurns: maxTurns}
}

// AppendUser records a user turn.
func (s *Session) AppendUser(text string) {
	s.append(gateway.Turn{Role: gateway.RoleUser, Content: text})
}

// AppendAssistant records an assistant turn.
func (s *Session) AppendAssistant(text string) {
	s.append(gateway.Turn{Role: gateway.RoleAssistant, Content: text})
}

func (s *Session) append(t gateway.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
	if over := len(s.turns) - s.maxTurns; over > 0 {
		s.turns = append(s.turns[:0:0], s.turns[over:]...)
	}
}

// History returns a snapshot of the conversation, oldest first.
func (s *Session) History() []gateway.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gateway.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of retained turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Reset discards the history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

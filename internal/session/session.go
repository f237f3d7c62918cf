// Package session keeps per-conversation history in memory.
//
// Each session holds a bounded sliding window of turns: when the window
// overflows, the oldest user/assistant pair is evicted so the retained
// exchanges stay whole. Sessions are fully isolated from one another.
package session

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Memory stores conversation histories keyed by session ID.
// Safe for concurrent use; operations on distinct sessions do not
// contend beyond the map lookup.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*state
	maxTurns int
	logger   *slog.Logger
}

// state is one session's history with its own lock, so long appends on
// one session never block reads on another.
type state struct {
	mu    sync.Mutex
	turns []Turn
}

// NewMemory creates a Memory retaining at most maxTurns exchanges
// (user/assistant pairs) per session.
func NewMemory(maxTurns int, logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		sessions: make(map[string]*state),
		maxTurns: maxTurns,
		logger:   logger,
	}
}

// NewSessionID mints a fresh session identifier. The session itself is
// created lazily on first Append.
func (m *Memory) NewSessionID() string {
	return uuid.NewString()
}

// History returns a copy of the session's turns, oldest first. Unknown
// sessions yield an empty history.
func (m *Memory) History(sessionID string) []Turn {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Append records turns at the end of the session's history, creating the
// session if needed, then evicts the oldest pairs until the window fits
// again.
func (m *Memory) Append(sessionID string, turns ...Turn) {
	if len(turns) == 0 {
		return
	}

	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &state{}
		m.sessions[sessionID] = s
	}
	m.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)

	limit := 2 * m.maxTurns
	if len(s.turns) > limit {
		// Drop the oldest pairs so retained exchanges stay whole.
		drop := len(s.turns) - limit
		if drop%2 != 0 {
			drop++
		}
		if drop > len(s.turns) {
			drop = len(s.turns)
		}
		s.turns = append(s.turns[:0:0], s.turns[drop:]...)
	}
}

// Clear forgets a session entirely. Clearing an unknown session is a no-op.
func (m *Memory) Clear(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Len reports the number of live sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

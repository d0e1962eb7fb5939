package client

import (
	"sync"
	"time"
)

const (
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)

// ConversationTurn is one exchange in the AI tutor chat. Turns live in
// memory only and are rebuilt each session.
type ConversationTurn struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	ProviderID string    `json:"provider_id,omitempty"`
	ModelID    string    `json:"model_id,omitempty"`
	ErrorFlag  bool      `json:"error_flag,omitempty"`
}

// ConversationLog is an append-only, in-memory transcript.
type ConversationLog struct {
	mu    sync.Mutex
	turns []ConversationTurn
}

func NewConversationLog() *ConversationLog {
	return &ConversationLog{}
}

func (l *ConversationLog) Append(turn ConversationTurn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	l.mu.Lock()
	l.turns = append(l.turns, turn)
	l.mu.Unlock()
}

func (l *ConversationLog) Turns() []ConversationTurn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ConversationTurn(nil), l.turns...)
}

func (l *ConversationLog) Reset() {
	l.mu.Lock()
	l.turns = nil
	l.mu.Unlock()
}

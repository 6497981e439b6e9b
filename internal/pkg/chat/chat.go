package chat

import (
	"context"
	"errors"
	"time"
)

const (
	// RoleSystem message role
	RoleSystem = "system"
	// RoleUser message role
	RoleUser = "user"
	// RoleAssistant message role
	RoleAssistant = "assistant"
)

// ErrNoSession is returned when the user has no active chat
var ErrNoSession = errors.New("chat session does not exist or has expired")

// Message is one chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session keeps the conversation of one user
type Session struct {
	UserID   string    `json:"userID"`
	Messages []Message `json:"messages"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}

// Store keeps active sessions by user ID
type Store interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID string) error
}

// LLM completes a conversation
type LLM interface {
	Complete(ctx context.Context, msgs []Message) (string, error)
}

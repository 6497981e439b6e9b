package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/api"
)

const (
	systemPrompt = "You are a warm, empathetic, and insightful mental health companion. " +
		"Your task is to engage in conversation with users."
	diaryPrefix = "This is my diary content:"
	// FallbackReply is returned when the model does not answer
	FallbackReply = "Sorry, I can't respond right now, please try again later."
)

// Service is a companion chat about a diary
type Service struct {
	llm   LLM
	store Store
	locks *keyedMutex
	now   func() time.Time
}

// NewService creates chat service
func NewService(llm LLM, store Store) (*Service, error) {
	if llm == nil {
		return nil, fmt.Errorf("no llm")
	}
	if store == nil {
		return nil, fmt.Errorf("no store")
	}
	return &Service{llm: llm, store: store, locks: newKeyedMutex(), now: time.Now}, nil
}

// Start begins a new conversation about the diary, replaces an old one
func (s *Service) Start(ctx context.Context, userID, diary string) (string, error) {
	if err := validateUser(userID); err != nil {
		return "", err
	}
	if strings.TrimSpace(diary) == "" {
		return "", api.NewValidationError("Diary content cannot be empty")
	}
	defer s.locks.lock(userID)()

	now := s.now()
	ses := &Session{UserID: userID, Created: now,
		Messages: []Message{{Role: RoleSystem, Content: systemPrompt}}}
	return s.ask(ctx, ses, diaryPrefix+diary)
}

// Send adds the user message and returns the reply
func (s *Service) Send(ctx context.Context, userID, msg string) (string, error) {
	if err := validateUser(userID); err != nil {
		return "", err
	}
	if strings.TrimSpace(msg) == "" {
		return "", api.NewValidationError("Message content cannot be empty")
	}
	defer s.locks.lock(userID)()

	ses, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.ask(ctx, ses, msg)
}

// End drops the conversation, ending a missing one is not an error
func (s *Service) End(ctx context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	defer s.locks.lock(userID)()
	return s.store.Delete(ctx, userID)
}

func (s *Service) ask(ctx context.Context, ses *Session, msg string) (string, error) {
	ses.Messages = append(ses.Messages, Message{Role: RoleUser, Content: msg})
	res, err := s.llm.Complete(ctx, ses.Messages)
	if err != nil || res == "" {
		goapp.Log.Error().Err(err).Str("user", goapp.Sanitize(ses.UserID)).Msg("llm failed")
		res = FallbackReply
	} else {
		ses.Messages = append(ses.Messages, Message{Role: RoleAssistant, Content: res})
	}
	ses.Updated = s.now()
	if err := s.store.Put(ctx, ses); err != nil {
		return "", fmt.Errorf("can't save session: %w", err)
	}
	return res, nil
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return api.NewValidationError("no user")
	}
	return nil
}

// keyedMutex serializes work per key
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*keyLock{}}
}

// lock locks the key and returns the unlock func
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

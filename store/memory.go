package store

import (
	"context"
	"sync"

	"github.com/stormwatch/agentic/chatmodel"
	"github.com/stormwatch/agentic/pkg/llms"
)

// MemoryStore is an in-process MessageStore, suitable for tests and
// single-process CLI use.
type MemoryStore struct {
	mu    sync.RWMutex
	chats map[string][]llms.Message
}

var _ MessageStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats: map[string][]llms.Message{},
	}
}

func (s *MemoryStore) Messages(ctx context.Context) ([]llms.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.chats[chatmodel.GetChatID(ctx)]
	res := make([]llms.Message, len(stored))
	copy(res, stored)
	return res, nil
}

func (s *MemoryStore) Add(ctx context.Context, msgs ...llms.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	chatID := chatmodel.GetChatID(ctx)
	s.chats[chatID] = append(s.chats[chatID], msgs...)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, chatmodel.GetChatID(ctx))
	return nil
}

package store

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
	"github.com/stormwatch/agentic/chatmodel"
	"github.com/stormwatch/agentic/pkg/llms"
)

// DefaultMaxHistory is how many turns a chat keeps in Redis before the
// oldest are trimmed.
const DefaultMaxHistory = 50

const redisKeyPrefix = "chat:history:"

// storedMessage is the flat wire form persisted in Redis. Tool-call turns
// are flattened to their textual content, so reloaded history is plain
// text regardless of how it was produced.
type storedMessage struct {
	Role    llms.Role `json:"role"`
	Content string    `json:"content"`
}

// commands is the subset of redis commands the store issues, narrowed so
// tests can substitute an in-memory fake.
type commands interface {
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	RPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore is a MessageStore backed by a Redis list per chat.
type RedisStore struct {
	client     commands
	maxHistory int64
}

var _ MessageStore = (*RedisStore)(nil)

// NewRedisStore returns a store backed by the given Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client:     client,
		maxHistory: DefaultMaxHistory,
	}
}

// WithMaxHistory overrides the per-chat retained turn count.
func (s *RedisStore) WithMaxHistory(limit int64) *RedisStore {
	s.maxHistory = limit
	return s
}

func (s *RedisStore) key(ctx context.Context) string {
	return redisKeyPrefix + chatmodel.GetChatID(ctx)
}

func (s *RedisStore) Messages(ctx context.Context) ([]llms.Message, error) {
	items, err := s.client.LRange(ctx, s.key(ctx), 0, -1).Result()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read chat history")
	}
	res := make([]llms.Message, 0, len(items))
	for _, item := range items {
		var sm storedMessage
		if err := json.Unmarshal([]byte(item), &sm); err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "corrupt_history_entry_dropped",
				"err", err.Error(),
			)
			continue
		}
		res = append(res, llms.MessageFromTextParts(sm.Role, sm.Content))
	}
	return res, nil
}

func (s *RedisStore) Add(ctx context.Context, msgs ...llms.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	entries := make([]any, 0, len(msgs))
	for _, m := range msgs {
		bs, err := json.Marshal(storedMessage{
			Role:    m.Role,
			Content: m.GetContent(),
		})
		if err != nil {
			return errors.WithMessage(err, "failed to encode chat turn")
		}
		entries = append(entries, string(bs))
	}

	key := s.key(ctx)
	if err := s.client.RPush(ctx, key, entries...).Err(); err != nil {
		return errors.WithMessage(err, "failed to append chat history")
	}
	if err := s.client.LTrim(ctx, key, -s.maxHistory, -1).Err(); err != nil {
		return errors.WithMessage(err, "failed to trim chat history")
	}
	return nil
}

func (s *RedisStore) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(ctx)).Err(); err != nil {
		return errors.WithMessage(err, "failed to reset chat history")
	}
	return nil
}

package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps edit sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// NewSessionStore creates a store by type name: "memory" or "redis".
func NewSessionStore(storeType, address string, ttl time.Duration) (SessionStore, error) {
	switch storeType {
	case "", "memory":
		return NewMemoryStore(ttl), nil
	case "redis":
		if address == "" {
			return nil, fmt.Errorf("redis session store requires an address")
		}
		return NewRedisStore(redis.NewClient(&redis.Options{Addr: address}), ttl), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", storeType)
	}
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore is a process-local store. Entries expire after ttl; expired
// entries are dropped on read and swept on every write.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.ttl > 0 && m.now().After(e.expires) {
		delete(m.entries, id)
		return nil, ErrSessionNotFound
	}
	return decodeSession(e.data)
}

// Put stores a copy of s, so later mutation of s does not leak into the store.
func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	m.entries[s.ID] = memoryEntry{data: data, expires: now.Add(m.ttl)}
	return nil
}

// sweep removes expired entries. Callers hold m.mu.
func (m *MemoryStore) sweep(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	for id, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, id)
		}
	}
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

const redisKeyPrefix = "retroframe:edit:"

// RedisStore keeps sessions in redis as JSON with a TTL refreshed on write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	return decodeSession(data)
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+s.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func decodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrAccountNotFound indicates an identity key with no matching account. It
// is an expected, user-facing condition.
var ErrAccountNotFound = errors.New("account not found")

// PrincipalStore holds resolved principals keyed by normalized email.
// Implementations must be safe under arbitrary interleaving from concurrent
// requests. Entries have no TTL; stale-read prevention is the caller's
// responsibility via explicit invalidation.
type PrincipalStore interface {
	Get(ctx context.Context, key string) (Principal, bool, error)
	Set(ctx context.Context, key string, p Principal) error
	Delete(ctx context.Context, key string) error
}

// MemoryPrincipalStore is an in-process PrincipalStore.
type MemoryPrincipalStore struct {
	mu      sync.RWMutex
	entries map[string]Principal
}

func NewMemoryPrincipalStore() *MemoryPrincipalStore {
	return &MemoryPrincipalStore{entries: make(map[string]Principal)}
}

func (s *MemoryPrincipalStore) Get(_ context.Context, key string) (Principal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.entries[key]
	return p, ok, nil
}

func (s *MemoryPrincipalStore) Set(_ context.Context, key string, p Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = p
	return nil
}

func (s *MemoryPrincipalStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

const principalKeyPrefix = "principal:"

// RedisPrincipalStore is a PrincipalStore backed by redis, for deployments
// where several API processes must observe invalidations together.
type RedisPrincipalStore struct {
	client *redis.Client
}

func NewRedisPrincipalStore(client *redis.Client) *RedisPrincipalStore {
	return &RedisPrincipalStore{client: client}
}

func (s *RedisPrincipalStore) Get(ctx context.Context, key string) (Principal, bool, error) {
	data, err := s.client.Get(ctx, principalKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Principal{}, false, nil
		}
		return Principal{}, false, fmt.Errorf("principal cache get: %w", err)
	}
	var p Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return Principal{}, false, fmt.Errorf("principal cache decode: %w", err)
	}
	return p, true, nil
}

func (s *RedisPrincipalStore) Set(ctx context.Context, key string, p Principal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("principal cache encode: %w", err)
	}
	if err := s.client.Set(ctx, principalKeyPrefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("principal cache set: %w", err)
	}
	return nil
}

func (s *RedisPrincipalStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, principalKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("principal cache delete: %w", err)
	}
	return nil
}

// PrincipalCache resolves principals cache-aside over the user store. It is
// the only cross-request shared state in the authentication core.
type PrincipalCache struct {
	users UserRepository
	store PrincipalStore
}

func NewPrincipalCache(users UserRepository, store PrincipalStore) *PrincipalCache {
	return &PrincipalCache{users: users, store: store}
}

// Get returns the principal for a normalized email. On a cache miss it loads
// from the user store and caches the result. Returns ErrAccountNotFound when
// no account matches.
func (c *PrincipalCache) Get(ctx context.Context, email string) (Principal, error) {
	key := NormalizeEmail(email)

	if p, ok, err := c.store.Get(ctx, key); err != nil {
		return Principal{}, err
	} else if ok {
		return p, nil
	}

	u, err := c.users.FindByNormalizedEmail(ctx, key)
	if err != nil {
		return Principal{}, err
	}
	if u == nil {
		return Principal{}, ErrAccountNotFound
	}

	p := BuildPrincipal(u)
	if err := c.store.Set(ctx, key, p); err != nil {
		return Principal{}, err
	}
	return p, nil
}

// Invalidate removes any cached entry for the email. It must be called by
// every mutation path that changes auth-relevant account state.
func (c *PrincipalCache) Invalidate(ctx context.Context, email string) error {
	return c.store.Delete(ctx, NormalizeEmail(email))
}

package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	tokenRefreshLeeway = 30 * time.Second
	defaultTokenTTL    = 5 * time.Minute
	tokenFetchTimeout  = 20 * time.Second
)

// TokenStore keeps bearer tokens until they expire.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type memoryToken struct {
	value     string
	expiresAt time.Time
}

// MemoryTokenStore is a process-local TokenStore.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	entries map[string]memoryToken
	now     func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{entries: make(map[string]memoryToken), now: time.Now}
}

func (s *MemoryTokenStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryTokenStore) Set(_ context.Context, key, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryToken{value: token, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// TokenFetcher obtains a fresh token and its lifetime as reported by the
// issuer. A zero lifetime means unknown.
type TokenFetcher func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// TokenSource serves cached tokens and refreshes them on expiry. Concurrent
// misses share one fetch.
type TokenSource struct {
	key    string
	store  TokenStore
	fetch  TokenFetcher
	group  singleflight.Group
	logger *zap.Logger
}

func NewTokenSource(key string, store TokenStore, fetch TokenFetcher, logger *zap.Logger) *TokenSource {
	return &TokenSource{key: key, store: store, fetch: fetch, logger: logger}
}

// Token returns a valid token, fetching one when the cache is empty or stale.
// Store failures fall back to fetching. The shared fetch outlives any single
// caller; each caller stops waiting when its own ctx is done.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if token, ok := s.cached(ctx); ok {
		return token, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(s.key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(detached, tokenFetchTimeout)
		defer cancel()
		return s.refresh(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *TokenSource) refresh(ctx context.Context) (string, error) {
	if token, ok := s.cached(ctx); ok {
		return token, nil
	}

	token, expiresIn, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}

	ttl := defaultTokenTTL
	if expiresIn > 0 {
		ttl = expiresIn - tokenRefreshLeeway
	}
	if ttl > 0 {
		if err := s.store.Set(ctx, s.key, token, ttl); err != nil {
			s.logger.Warn("failed to cache token", zap.String("key", s.key), zap.Error(err))
		}
	}
	return token, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (s *TokenSource) Invalidate(ctx context.Context) {
	if err := s.store.Delete(ctx, s.key); err != nil {
		s.logger.Warn("failed to drop cached token", zap.String("key", s.key), zap.Error(err))
	}
}

func (s *TokenSource) cached(ctx context.Context) (string, bool) {
	token, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("token cache read failed", zap.String("key", s.key), zap.Error(err))
		return "", false
	}
	return token, ok
}

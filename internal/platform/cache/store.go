package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kickboard/matchsync/internal/platform/resilience"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is an in-process cache with a default TTL and optional per-entry
// TTLs. Get and Set return errors so the Store satisfies cache ports whose
// remote implementations can fail; the in-process form never does.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	flight     resilience.SingleFlight
	now        func() time.Time
}

func NewStore(defaultTTL time.Duration) *Store {
	return &Store{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (s *Store) Get(_ context.Context, key string) (any, bool, error) {
	if key == "" {
		return nil, false, nil
	}

	now := s.now()
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}

	return e.value, true, nil
}

// Set stores value under key. A ttl of zero falls back to the store default;
// a negative default disables expiry.
func (s *Store) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	expiresAt := time.Time{}
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry{
		value:     value,
		expiresAt: expiresAt,
	}
	s.mu.Unlock()

	return nil
}

// DeletePrefix invalidates every entry whose key starts with prefix. The
// sync path uses it to drop cached range queries after a store refresh.
func (s *Store) DeletePrefix(_ context.Context, prefix string) {
	if prefix == "" {
		return
	}

	s.mu.Lock()
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}

// GetOrLoad returns the cached value for key, loading it at most once across
// concurrent callers on a miss.
func (s *Store) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok, _ := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		if cached, ok, _ := s.Get(ctx, key); ok {
			return cached, nil
		}

		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := s.Set(ctx, key, loaded, ttl); setErr != nil {
			return nil, setErr
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

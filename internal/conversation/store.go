package conversation

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultMaxContexts bounds how many user contexts are kept in memory.
const DefaultMaxContexts = 1024

// Store owns the user-id to Context mapping. Contexts are short-term memory
// by design, so the store is a bounded LRU: the least recently used context
// is evicted when the bound is hit, and a caller asking for an evicted user
// simply gets a fresh context back.
type Store struct {
	cache  *lru.Cache[string, *Context]
	now    func() time.Time
	logger *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreClock overrides the wall clock handed to new contexts.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithStoreLogger sets the logger. Defaults to a no-op logger.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store bounded to maxContexts users. A maxContexts of
// zero or less falls back to DefaultMaxContexts.
func NewStore(maxContexts int, opts ...StoreOption) *Store {
	if maxContexts <= 0 {
		maxContexts = DefaultMaxContexts
	}
	s := &Store{
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	cache, err := lru.New[string, *Context](maxContexts)
	if err != nil {
		// lru.New only fails on a non-positive size, which is guarded above.
		panic(err)
	}
	s.cache = cache
	return s
}

// GetOrCreate returns the context for a user, creating one on first contact
// or after eviction.
func (s *Store) GetOrCreate(userID string) *Context {
	if ctx, ok := s.cache.Get(userID); ok {
		return ctx
	}
	ctx := newContext(userID, s.now)
	if evicted := s.cache.Add(userID, ctx); evicted {
		s.logger.Debug("evicted least recently used conversation context")
	}
	return ctx
}

// Len returns the number of live contexts.
func (s *Store) Len() int {
	return s.cache.Len()
}

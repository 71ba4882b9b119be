package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/couchcryptid/realty-search-service/internal/cache"
	"github.com/couchcryptid/realty-search-service/internal/domain"
)

// ErrClosed is returned for searches started after Close.
var ErrClosed = errors.New("search service is shutting down")

// Sessions gives every client its own Orchestrator, so cancel-and-replace
// only applies between searches of the same client. At most limit sessions
// are kept; the least recently used one is dropped first.
type Sessions struct {
	newSession func() *Orchestrator

	mu     sync.Mutex
	active *cache.LRU[*Orchestrator]
	closed bool
}

// NewSessions creates a session set. newSession builds the Orchestrator for
// a client seen for the first time. A non-positive limit keeps every session.
func NewSessions(limit int, newSession func() *Orchestrator) *Sessions {
	return &Sessions{
		newSession: newSession,
		active:     cache.New[*Orchestrator](limit),
	}
}

func (s *Sessions) session(key string) (*Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if o, ok := s.active.Get(key); ok {
		return o, nil
	}
	o := s.newSession()
	s.active.Put(key, o)
	return o, nil
}

func (s *Sessions) lookup(key string) (*Orchestrator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.Get(key)
}

// RunQuery runs q in the session for key, superseding only that session's
// in-flight search.
func (s *Sessions) RunQuery(ctx context.Context, key string, q Query) (domain.SearchResult, error) {
	o, err := s.session(key)
	if err != nil {
		return domain.SearchResult{}, err
	}
	return o.RunQuery(ctx, q)
}

// Properties returns the last list published for key.
func (s *Sessions) Properties(key string) []domain.Property {
	if o, ok := s.lookup(key); ok {
		return o.Properties()
	}
	return []domain.Property{}
}

// Published returns the query behind the last list published for key.
func (s *Sessions) Published(key string) Query {
	if o, ok := s.lookup(key); ok {
		return o.Published()
	}
	return Query{}
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.active.Len()
}

// CheckReadiness returns an error once the session set has been closed.
func (s *Sessions) CheckReadiness(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close rejects new searches and cancels every in-flight one.
func (s *Sessions) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	for _, o := range s.active.Values() {
		o.Close()
	}
}

// Package memory is an in-process implementation of cache storage.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	content   []byte
	expiresAt time.Time
}

type storage struct {
	mu sync.Mutex
	m  map[string]entry
}

// NewStorage creates new instance of storage.
func NewStorage() *storage { // nolint:golint
	return &storage{
		m: make(map[string]entry),
	}
}

func (s *storage) Get(_ context.Context, key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok {
		return nil
	}

	if time.Now().After(e.expiresAt) {
		delete(s.m, key)
		return nil
	}

	return e.content
}

func (s *storage) Set(_ context.Context, key string, content []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[key] = entry{
		content:   content,
		expiresAt: time.Now().Add(ttl),
	}
}

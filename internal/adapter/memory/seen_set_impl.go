package memory

import (
	"context"
	"sync"

	"github.com/user/article-crawler/internal/repository"
)

// SeenSetImpl is a run-scoped set of keys held in memory.
type SeenSetImpl struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewSeenSet() *SeenSetImpl {
	return &SeenSetImpl{keys: make(map[string]struct{})}
}

var _ repository.SeenSet = (*SeenSetImpl)(nil)

func (s *SeenSetImpl) Add(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = struct{}{}
	return true, nil
}

func (s *SeenSetImpl) Contains(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

func (s *SeenSetImpl) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[string]struct{})
	return nil
}

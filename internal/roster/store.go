// Package roster caches the latest polled list of tables or tabs. The poll is
// the source of truth; local patches are optimistic echoes until the next
// refresh replaces them.
package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/pdv-terminal/pkg/localstore"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
)

// Store is a concurrent cache of entities keyed by id.
type Store[T any] struct {
	mu          sync.RWMutex
	items       []T
	index       map[string]int
	idOf        func(T) string
	err         error
	refreshedAt time.Time
	persist     *localstore.Store[[]T]
	logg        *logger.Logger
	now         func() time.Time
}

func NewStore[T any](idOf func(T) string, persist *localstore.Store[[]T], logg *logger.Logger) *Store[T] {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store[T]{
		idOf:    idOf,
		index:   map[string]int{},
		persist: persist,
		logg:    logg,
		now:     time.Now,
	}
}

// Load restores the last persisted list so the grid is not blank on start.
func (s *Store[T]) Load(ctx context.Context) error {
	items, ok, err := s.persist.Load(ctx)
	if err != nil {
		if errors.Is(err, localstore.ErrIncompatible) {
			s.logg.Warn(ctx, fmt.Sprintf("discarding persisted %s cache: %v", s.persist.Name(), err))
			return s.persist.Clear(ctx)
		}
		return err
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.setLocked(items)
	s.mu.Unlock()
	return nil
}

// Replace swaps in a freshly polled list and clears any recorded error.
func (s *Store[T]) Replace(ctx context.Context, items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(items)
	s.err = nil
	s.refreshedAt = s.now()
	s.saveLocked(ctx)
}

// Fail records a refresh failure. The cached list is kept as is.
func (s *Store[T]) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero T
	i, ok := s.index[id]
	if !ok {
		return zero, false
	}
	return s.items[i], true
}

func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.items...)
}

// Patch applies fn to the cached entity with id. Reports whether it existed.
func (s *Store[T]) Patch(ctx context.Context, id string, fn func(*T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	fn(&s.items[i])
	s.saveLocked(ctx)
	return true
}

// Upsert inserts or replaces one entity, e.g. right after creating it.
func (s *Store[T]) Upsert(ctx context.Context, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.idOf(item)
	if i, ok := s.index[id]; ok {
		s.items[i] = item
	} else {
		s.index[id] = len(s.items)
		s.items = append(s.items, item)
	}
	s.saveLocked(ctx)
}

// Err is the last refresh error, nil after a successful refresh.
func (s *Store[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store[T]) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

func (s *Store[T]) setLocked(items []T) {
	s.items = append([]T(nil), items...)
	s.index = make(map[string]int, len(items))
	for i, item := range s.items {
		s.index[s.idOf(item)] = i
	}
}

func (s *Store[T]) saveLocked(ctx context.Context) {
	if err := s.persist.Save(ctx, s.items); err != nil {
		s.logg.Error(ctx, "failed to persist roster cache", err)
	}
}

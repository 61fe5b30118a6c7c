package roster

import (
	"context"

	"github.com/angelmondragon/pdv-terminal/internal/poll"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"github.com/angelmondragon/pdv-terminal/pkg/pagination"
)

// Lister fetches one page of entities from the backend.
type Lister[T any] interface {
	List(ctx context.Context, pageSize int) ([]T, error)
}

// Grid keeps a Store in sync with the backend list.
type Grid[T any] struct {
	name     string
	store    *Store[T]
	lister   Lister[T]
	pageSize int
	logg     *logger.Logger
}

func NewGrid[T any](name string, store *Store[T], lister Lister[T], pageSize int, logg *logger.Logger) *Grid[T] {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Grid[T]{
		name:     name,
		store:    store,
		lister:   lister,
		pageSize: pagination.NormalizePageSize(pageSize),
		logg:     logg,
	}
}

// Refresh fetches the list. On failure the previous list stays visible and
// the error is recorded for the retry affordance.
func (g *Grid[T]) Refresh(ctx context.Context) error {
	items, err := g.lister.List(ctx, g.pageSize)
	if err != nil {
		g.store.Fail(err)
		return err
	}
	g.store.Replace(ctx, items)
	return nil
}

// Retry is the manual refresh behind the retry button.
func (g *Grid[T]) Retry(ctx context.Context) error {
	g.logg.Info(g.logg.WithField(ctx, "grid", g.name), "grid refresh retried")
	return g.Refresh(ctx)
}

func (g *Grid[T]) Store() *Store[T] {
	return g.store
}

func (g *Grid[T]) Name() string {
	return g.name
}

// Job exposes Refresh as a poll job.
func (g *Grid[T]) Job() poll.Job {
	return poll.Func(g.name+"-grid", g.Refresh)
}

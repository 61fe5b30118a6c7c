package controllers

import (
	"time"

	"github.com/angelmondragon/pdv-terminal/internal/roster"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
)

// rosterResponse is a cached grid with the last refresh failure, if any.
// Results stay populated when the latest poll failed.
type rosterResponse[T any] struct {
	Results     []T        `json:"results"`
	Error       string     `json:"error,omitempty"`
	RefreshedAt *time.Time `json:"refreshed_at,omitempty"`
}

func newRosterResponse[T any](store *roster.Store[T], keep func(T) bool) rosterResponse[T] {
	items := store.List()
	results := make([]T, 0, len(items))
	for _, item := range items {
		if keep == nil || keep(item) {
			results = append(results, item)
		}
	}
	resp := rosterResponse[T]{Results: results}
	if err := store.Err(); err != nil {
		resp.Error = pkgerrors.UserMessage(err)
	}
	if at := store.RefreshedAt(); !at.IsZero() {
		resp.RefreshedAt = &at
	}
	return resp
}

// Package cart holds the lines of the order being composed for the active
// table, tab or counter sale. It makes no network calls; every change is
// written through to the local state store so a restart keeps the draft.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	"github.com/angelmondragon/pdv-terminal/pkg/localstore"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"github.com/shopspring/decimal"
)

// Store is the process-wide cart. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	state   State
	persist *localstore.Store[State]
	logg    *logger.Logger
}

// NewStore builds an empty cart. persist may be nil for a memory-only cart.
func NewStore(persist *localstore.Store[State], logg *logger.Logger) *Store {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{persist: persist, logg: logg}
}

// Load restores the persisted cart. Unreadable or inconsistent state is
// discarded and the cart starts empty.
func (s *Store) Load(ctx context.Context) error {
	state, ok, err := s.persist.Load(ctx)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("discarding persisted cart: %v", err))
		if errors.Is(err, localstore.ErrIncompatible) {
			_ = s.persist.Clear(ctx)
			return nil
		}
		return err
	}
	if !ok {
		return nil
	}
	if state.TableID != "" && state.TabID != "" {
		s.logg.Warn(ctx, "persisted cart had both table and tab set, discarding")
		return s.persist.Clear(ctx)
	}

	lines := make([]Line, 0, len(state.Lines))
	seen := make(map[string]struct{}, len(state.Lines))
	for _, line := range state.Lines {
		if line.ProductID == "" || line.Quantity <= 0 {
			continue
		}
		if _, dup := seen[line.ProductID]; dup {
			continue
		}
		seen[line.ProductID] = struct{}{}
		lines = append(lines, line)
	}
	state.Lines = lines

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

// AddItem merges product into the cart: an existing line gains one unit,
// otherwise a new line with quantity 1 is appended.
func (s *Store) AddItem(ctx context.Context, product ProductSnapshot) {
	s.mutate(ctx, func(state *State) {
		if i := indexOf(state.Lines, product.ID); i >= 0 {
			state.Lines[i].Quantity++
			return
		}
		state.Lines = append(state.Lines, Line{
			ProductID: product.ID,
			Quantity:  1,
			Product:   product,
		})
	})
}

// RemoveItem deletes the line for productID if present.
func (s *Store) RemoveItem(ctx context.Context, productID string) {
	s.mutate(ctx, func(state *State) {
		if i := indexOf(state.Lines, productID); i >= 0 {
			state.Lines = append(state.Lines[:i], state.Lines[i+1:]...)
		}
	})
}

func (s *Store) Increment(ctx context.Context, productID string) {
	s.mutate(ctx, func(state *State) {
		if i := indexOf(state.Lines, productID); i >= 0 {
			state.Lines[i].Quantity++
		}
	})
}

// Decrement removes one unit; the line is dropped when it reaches zero.
func (s *Store) Decrement(ctx context.Context, productID string) {
	s.mutate(ctx, func(state *State) {
		i := indexOf(state.Lines, productID)
		if i < 0 {
			return
		}
		state.Lines[i].Quantity--
		if state.Lines[i].Quantity <= 0 {
			state.Lines = append(state.Lines[:i], state.Lines[i+1:]...)
		}
	})
}

// Commit takes quantity units of productID off the cart after the backend
// accepted them. Units added while the submission was in flight stay.
func (s *Store) Commit(ctx context.Context, productID string, quantity int) {
	s.mutate(ctx, func(state *State) {
		i := indexOf(state.Lines, productID)
		if i < 0 {
			return
		}
		state.Lines[i].Quantity -= quantity
		if state.Lines[i].Quantity <= 0 {
			state.Lines = append(state.Lines[:i], state.Lines[i+1:]...)
		}
	})
}

// UpdateObservation sets the free-text note of a line. The backend validates it.
func (s *Store) UpdateObservation(ctx context.Context, productID, text string) {
	s.mutate(ctx, func(state *State) {
		if i := indexOf(state.Lines, productID); i >= 0 {
			state.Lines[i].Note = strings.TrimSpace(text)
		}
	})
}

// Clear empties the lines and keeps the context.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, func(state *State) {
		state.Lines = nil
	})
}

// SelectContext makes ref the active context. When it differs from the
// current one the lines are cleared in the same step, so nothing composed for
// one bill can leak into another. Reports whether lines were dropped.
func (s *Store) SelectContext(ctx context.Context, ref ContextRef) bool {
	cleared := false
	s.mutate(ctx, func(state *State) {
		if state.Ref() == ref {
			return
		}
		cleared = len(state.Lines) > 0
		state.Lines = nil
		state.TableID, state.TabID = "", ""
		switch ref.Kind {
		case enums.ContextKindTable:
			state.TableID = ref.ID
		case enums.ContextKindTab:
			state.TabID = ref.ID
		}
	})
	if cleared {
		s.logg.Info(s.logg.WithField(ctx, "context", ref.String()), "cart cleared on context switch")
	}
	return cleared
}

func (s *Store) SetTableID(ctx context.Context, id string) bool {
	if id == "" {
		return s.SelectContext(ctx, Counter())
	}
	return s.SelectContext(ctx, Table(id))
}

func (s *Store) SetTabID(ctx context.Context, id string) bool {
	if id == "" {
		return s.SelectContext(ctx, Counter())
	}
	return s.SelectContext(ctx, Tab(id))
}

// Context returns the active context.
func (s *Store) Context() ContextRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Ref()
}

// Snapshot projects the lines into submission order: first insertion first.
func (s *Store) Snapshot() []WireLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WireLine, 0, len(s.state.Lines))
	for _, line := range s.state.Lines {
		out = append(out, WireLine{ProductID: line.ProductID, Quantity: line.Quantity, Note: line.Note})
	}
	return out
}

// Subtotal is the display-only sum of unit price times quantity.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, line := range s.state.Lines {
		total = total.Add(line.Total())
	}
	return total
}

// Lines returns a copy of the current lines.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.state.Lines...)
}

// State returns a copy of the whole cart.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	state.Lines = append([]Line(nil), s.state.Lines...)
	return state
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Lines)
}

func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

func (s *Store) Contains(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.state.Lines, productID) >= 0
}

// mutate applies fn under the lock and writes the result through.
// Persistence failures are logged and never fail the change.
func (s *Store) mutate(ctx context.Context, fn func(state *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	if err := s.persist.Save(ctx, s.state); err != nil {
		s.logg.Error(ctx, "failed to persist cart", err)
	}
}

func indexOf(lines []Line, productID string) int {
	for i := range lines {
		if lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

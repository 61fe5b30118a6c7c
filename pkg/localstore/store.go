// Package localstore persists terminal state slices (cart, table cache, tab cache)
// as versioned JSON envelopes so a restart never loses an unsent order.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion is the envelope version written by this build.
const SchemaVersion = 1

const (
	KeyCart   = "cart"
	KeyTables = "mesas"
	KeyTabs   = "comandas"
	// KeyCounterSale holds the open direct sale id of counter mode.
	KeyCounterSale = "balcao"
	statePrefix    = "state"
)

var (
	// ErrNotFound is returned by backends when nothing is stored under a name.
	ErrNotFound = errors.New("localstore: state not found")
	// ErrIncompatible marks a stored envelope this build cannot read.
	ErrIncompatible = errors.New("localstore: incompatible state")
)

// Envelope is the stored shape of every slice.
type Envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// Backend reads and writes envelopes by logical name.
type Backend interface {
	Read(ctx context.Context, name string) (Envelope, error)
	Write(ctx context.Context, name string, env Envelope) error
	Delete(ctx context.Context, name string) error
}

// Pinger is implemented by backends that hold a connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Migration upgrades a stored state from an older schema version.
type Migration func(from int, state json.RawMessage) (json.RawMessage, error)

// Passthrough is the version 1 migration: older shapes are read as-is.
func Passthrough(_ int, state json.RawMessage) (json.RawMessage, error) {
	return state, nil
}

// Store reads and writes one typed slice.
type Store[T any] struct {
	backend Backend
	name    string
	migrate Migration
}

type Option[T any] func(*Store[T])

func WithMigration[T any](m Migration) Option[T] {
	return func(s *Store[T]) {
		if m != nil {
			s.migrate = m
		}
	}
}

func New[T any](backend Backend, name string, opts ...Option[T]) *Store[T] {
	s := &Store[T]{backend: backend, name: name, migrate: Passthrough}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the logical name of the slice.
func (s *Store[T]) Name() string {
	return s.name
}

// Load returns the stored state. The boolean is false when nothing usable is stored.
func (s *Store[T]) Load(ctx context.Context) (T, bool, error) {
	var zero T
	if s == nil || s.backend == nil {
		return zero, false, nil
	}
	env, err := s.backend.Read(ctx, s.name)
	if errors.Is(err, ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("read %s state: %w", s.name, err)
	}
	if env.Version > SchemaVersion {
		return zero, false, fmt.Errorf("%w: %s stored at version %d, current %d", ErrIncompatible, s.name, env.Version, SchemaVersion)
	}
	raw := env.State
	if env.Version < SchemaVersion {
		if raw, err = s.migrate(env.Version, raw); err != nil {
			return zero, false, fmt.Errorf("%w: migrating %s from version %d: %v", ErrIncompatible, s.name, env.Version, err)
		}
	}
	if len(raw) == 0 {
		return zero, false, nil
	}
	var state T
	if err := json.Unmarshal(raw, &state); err != nil {
		return zero, false, fmt.Errorf("%w: decoding %s: %v", ErrIncompatible, s.name, err)
	}
	return state, true, nil
}

// Save writes state at the current schema version.
func (s *Store[T]) Save(ctx context.Context, state T) error {
	if s == nil || s.backend == nil {
		return nil
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode %s state: %w", s.name, err)
	}
	if err := s.backend.Write(ctx, s.name, Envelope{Version: SchemaVersion, State: raw}); err != nil {
		return fmt.Errorf("write %s state: %w", s.name, err)
	}
	return nil
}

// Clear removes the stored slice.
func (s *Store[T]) Clear(ctx context.Context) error {
	if s == nil || s.backend == nil {
		return nil
	}
	if err := s.backend.Delete(ctx, s.name); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete %s state: %w", s.name, err)
	}
	return nil
}

// Key builds the physical key "<namespace>:state:<name>".
func Key(namespace, name string) string {
	return namespace + ":" + statePrefix + ":" + name
}

// Package memory holds the persisted conversation history that is replayed
// to the generation engine.
package memory

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrStoreIO marks a persistence failure. The in-memory state is kept when
// it is returned.
var ErrStoreIO = errors.New("history persistence failed")

const exportLayout = "20060102_150405"

// Store is an append-only log of turns, written through to its Backend after
// every mutation. It is not safe for concurrent mutation.
type Store struct {
	backend Backend
	turns   []Turn
	log     *log.Logger
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// Open loads the history from b. A missing or corrupt history starts the
// store empty; corrupt data is overwritten with an empty history.
func Open(b Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		turns:   []Turn{},
		log:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()
	data, err := b.Read(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		s.log.Debug("No history yet, starting empty")
		if err := s.persist(); err != nil {
			s.log.Warn("Failed to initialise history", "err", err)
		}
		return s
	case err != nil:
		s.log.Warn("Failed to read history, starting empty", "err", err)
		return s
	}

	turns, err := Decode(data)
	if err != nil {
		s.log.Warn("Corrupt history, starting empty", "err", err)
		if err := s.persist(); err != nil {
			s.log.Warn("Failed to reset history", "err", err)
		}
		return s
	}

	s.turns = turns
	s.log.Debug("Loaded history", "turns", len(turns))
	return s
}

// Add appends a turn and persists the history before returning.
func (s *Store) Add(role Role, text string) error {
	t := NewTurn(role, text)
	if err := t.Validate(); err != nil {
		return err
	}

	s.turns = append(s.turns, t)
	return s.persist()
}

// History returns a copy of the turns in insertion order.
func (s *Store) History() []Turn {
	return cloneTurns(s.turns)
}

func (s *Store) Len() int {
	return len(s.turns)
}

// Clear resets the history to empty and persists it.
func (s *Store) Clear() error {
	s.turns = []Turn{}
	return s.persist()
}

// Export returns the persisted bytes exactly as the backend holds them.
func (s *Store) Export() ([]byte, error) {
	data, err := s.backend.Read(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreIO, err)
	}
	return data, nil
}

// ExportFile copies the persisted history into dir under a timestamped name
// and returns the path written.
func (s *Store) ExportFile(dir string, now time.Time) (string, error) {
	data, err := s.Export()
	if err != nil {
		return "", err
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, ExportName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

func ExportName(now time.Time) string {
	return "conversation_export_" + now.Format(exportLayout) + ".json"
}

func (s *Store) persist() error {
	data, err := Encode(s.turns)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreIO, err)
	}
	if err := s.backend.Write(context.Background(), data); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreIO, err)
	}
	return nil
}

package publog

import (
	"context"
	"fmt"
	"sync"

	logx "draftpub/pkg/logx"
)

// Persistence stores the serialized log. Load returns (nil, nil) when nothing
// has been saved yet.
type Persistence interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, b []byte) error
}

// Store is the bounded publish log.
//
// It holds no copy of the entries between calls: every operation loads the
// blob, so readers in other processes see the same data.
type Store struct {
	mu       sync.Mutex
	p        Persistence
	capacity int
	log      logx.Logger
}

type Option func(*Store)

// WithCapacity overrides Capacity. Only tests should need this.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(s *Store) { s.log = log }
}

func New(p Persistence, opts ...Option) *Store {
	s := &Store{p: p, capacity: Capacity}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

// Append adds e at the end and evicts the oldest entries beyond capacity.
// Load, append, evict and save happen inside one critical section.
func (s *Store) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, e)
	if over := len(entries) - s.capacity; over > 0 {
		entries = trim(entries, s.capacity)
		s.log.Debug("publish log evicted oldest entries", logx.Int("evicted", over), logx.Int("capacity", s.capacity))
	}
	return s.saveLocked(ctx, entries)
}

// All returns a snapshot of the log, oldest first. The caller owns the slice.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Clear empties the log.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveLocked(ctx, nil); err != nil {
		return err
	}
	s.log.Info("publish log cleared")
	return nil
}

func (s *Store) loadLocked(ctx context.Context) ([]Entry, error) {
	b, err := s.p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load publish log: %w", err)
	}
	entries, err := Decode(b)
	if err != nil {
		return nil, err
	}
	return trim(entries, s.capacity), nil
}

func (s *Store) saveLocked(ctx context.Context, entries []Entry) error {
	b, err := Encode(entries)
	if err != nil {
		return err
	}
	if err := s.p.Save(ctx, b); err != nil {
		return fmt.Errorf("save publish log: %w", err)
	}
	return nil
}

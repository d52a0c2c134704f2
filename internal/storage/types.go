package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrNotFound = errors.New("storage: key not found")
)

// Well-known keys.
const (
	KeyPublishLog     = "publish_log"
	KeyScheduleConfig = "schedule_config"
	KeyScheduleState  = "schedule_state"
)

// Config configures storage.
//
// Driver values:
//   - "memory" (default when empty)
//   - "file": Path is a directory
//   - "sqlite": Path is the database file
//   - "none": Open returns ErrDisabled
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the minimal persistence API used by the adapters.
type Store interface {
	// Get returns ErrNotFound when the key was never written or was deleted.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultBusyTimeout = 5 * time.Second
	maxBusyTimeout     = 2 * time.Minute
)

// parseBoundedDuration reads a Go duration string for field. Empty means
// unset and yields zero.
func parseBoundedDuration(field, raw string, limit time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", field)
	}
	if limit > 0 && d > limit {
		return 0, fmt.Errorf("%s: %s exceeds the %s limit", field, d, limit)
	}
	return d, nil
}

// StorageBusyTimeout is how long SQLite waits on a locked database.
// Unset or invalid values fall back to DefaultBusyTimeout.
func (c *Config) StorageBusyTimeout() time.Duration {
	d, err := parseBoundedDuration("storage.busy_timeout", c.Storage.BusyTimeout, maxBusyTimeout)
	if err != nil || d == 0 {
		return DefaultBusyTimeout
	}
	return d
}

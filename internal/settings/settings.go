// Package settings defines the schedule configuration shared by the
// scheduler and the publish executor, and the port used to persist it.
package settings

import (
	"context"
	"slices"
	"strings"
)

const (
	// DefaultIntervalMinutes replaces an invalid (<= 0) interval.
	DefaultIntervalMinutes = 75
	DefaultItemsPerRun     = 1
)

// DefaultTypes is the host default used when Config.TypeFilter is empty.
var DefaultTypes = []string{"post"}

// Config is the schedule configuration. It is re-read from the Store on every
// run, so it always reflects the last saved value.
type Config struct {
	IntervalMinutes int      `json:"intervalMinutes"`
	ItemsPerRun     int      `json:"itemsPerRun"`
	TypeFilter      []string `json:"typeFilter"`
	CategoryFilter  []int64  `json:"categoryFilter"`
	LoggingEnabled  bool     `json:"loggingEnabled"`
}

// Store persists Config. Get returns Defaults() when nothing was saved.
type Store interface {
	Get(ctx context.Context) (Config, error)
	Set(ctx context.Context, cfg Config) error
}

// Defaults mirrors a fresh installation.
func Defaults() Config {
	return Config{
		IntervalMinutes: DefaultIntervalMinutes,
		ItemsPerRun:     DefaultItemsPerRun,
		TypeFilter:      slices.Clone(DefaultTypes),
		LoggingEnabled:  true,
	}
}

// Normalize corrects out-of-range values instead of rejecting them: the
// interval falls back to DefaultIntervalMinutes and ItemsPerRun to 1. Blank
// and duplicate types and non-positive or duplicate categories are dropped.
// corrected reports whether a numeric field had to be fixed.
func (c Config) Normalize() (out Config, corrected bool) {
	out = c
	if out.IntervalMinutes <= 0 {
		out.IntervalMinutes = DefaultIntervalMinutes
		corrected = true
	}
	if out.ItemsPerRun < 1 {
		out.ItemsPerRun = DefaultItemsPerRun
		corrected = true
	}

	types := make([]string, 0, len(c.TypeFilter))
	for _, t := range c.TypeFilter {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	out.TypeFilter = types

	cats := make([]int64, 0, len(c.CategoryFilter))
	for _, id := range c.CategoryFilter {
		if id > 0 && !slices.Contains(cats, id) {
			cats = append(cats, id)
		}
	}
	out.CategoryFilter = cats
	return out, corrected
}

// EffectiveTypes returns TypeFilter, or def when it is empty.
func (c Config) EffectiveTypes(def []string) []string {
	if len(c.TypeFilter) > 0 {
		return slices.Clone(c.TypeFilter)
	}
	return slices.Clone(def)
}

// Equal reports whether two configs schedule and select identically.
func (c Config) Equal(o Config) bool {
	return c.IntervalMinutes == o.IntervalMinutes &&
		c.ItemsPerRun == o.ItemsPerRun &&
		c.LoggingEnabled == o.LoggingEnabled &&
		slices.Equal(c.TypeFilter, o.TypeFilter) &&
		slices.Equal(c.CategoryFilter, o.CategoryFilter)
}

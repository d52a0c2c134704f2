package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"draftpub/internal/settings"
)

const (
	DefaultAdminAddr         = "127.0.0.1:8383"
	DefaultPublishRatePerMin = 6
	DefaultSQLitePath        = "./data/draftpub.db"
	DefaultCatalogPath       = "./data/draftpub_items.db"
)

// Config is the process configuration file.
//
// Fields tagged env can be overridden from the environment; see ApplyEnv.
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Storage StorageConfig `json:"storage"`
	Catalog CatalogConfig `json:"catalog"`
	Admin   AdminConfig   `json:"admin"`

	// Timezone is an IANA name used for log timestamps and daily stats.
	// Empty means the process local zone.
	Timezone string `json:"timezone,omitempty" env:"DRAFTPUB_TIMEZONE"`

	// Schedule seeds the stored schedule config. When present in a watched
	// file, edits are saved and the schedule is re-armed.
	Schedule *ScheduleSection `json:"schedule,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level" env:"DRAFTPUB_LOG_LEVEL"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the key-value store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/draftpub.db" }
type StorageConfig struct {
	Driver      string `json:"driver" env:"DRAFTPUB_STORAGE_DRIVER"`
	Path        string `json:"path" env:"DRAFTPUB_STORAGE_PATH"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// CatalogConfig points at the SQLite item database. When Path is empty the
// sqlite storage file is shared, or DefaultCatalogPath is used.
type CatalogConfig struct {
	Path string `json:"path,omitempty"`
}

// AdminConfig controls the admin HTTP server.
//
// Prefer binding to localhost; the API has no authentication. When enabled
// is omitted the server runs only if addr is a loopback address.
type AdminConfig struct {
	Enabled           *bool  `json:"enabled,omitempty"`
	Addr              string `json:"addr,omitempty" env:"DRAFTPUB_ADMIN_ADDR"`
	PublishRatePerMin int    `json:"publish_rate_per_min,omitempty"`
	// Pprof mounts the runtime profiler under /debug/pprof/.
	Pprof bool `json:"pprof,omitempty"`
}

// IsEnabled reports whether the admin server should run.
func (a AdminConfig) IsEnabled() bool { return a.Enabled != nil && *a.Enabled }

func (a AdminConfig) equal(b AdminConfig) bool {
	return a.IsEnabled() == b.IsEnabled() &&
		a.Addr == b.Addr &&
		a.PublishRatePerMin == b.PublishRatePerMin &&
		a.Pprof == b.Pprof
}

// isLoopbackAddr reports whether addr (host:port) binds to loopback only.
func isLoopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type ScheduleSection struct {
	IntervalMinutes int      `json:"interval_minutes"`
	ItemsPerRun     int      `json:"items_per_run"`
	Types           []string `json:"types,omitempty"`
	Categories      []int64  `json:"categories,omitempty"`
	// Logging defaults to true when omitted.
	Logging *bool `json:"logging,omitempty"`
}

// Settings converts the section to a normalized schedule config.
func (s ScheduleSection) Settings() settings.Config {
	cfg := settings.Config{
		IntervalMinutes: s.IntervalMinutes,
		ItemsPerRun:     s.ItemsPerRun,
		TypeFilter:      slices.Clone(s.Types),
		CategoryFilter:  slices.Clone(s.Categories),
		LoggingEnabled:  s.Logging == nil || *s.Logging,
	}
	if len(cfg.TypeFilter) == 0 {
		cfg.TypeFilter = slices.Clone(settings.DefaultTypes)
	}
	cfg, _ = cfg.Normalize()
	return cfg
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File.Enabled && strings.TrimSpace(c.Logging.File.Path) == "" {
		c.Logging.File.Path = "./draftpub.log"
	}
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = "sqlite"
	}
	if strings.EqualFold(c.Storage.Driver, "sqlite") && strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = DefaultSQLitePath
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		if strings.EqualFold(c.Storage.Driver, "sqlite") {
			c.Catalog.Path = c.Storage.Path
		} else {
			c.Catalog.Path = DefaultCatalogPath
		}
	}
	if strings.TrimSpace(c.Admin.Addr) == "" {
		c.Admin.Addr = DefaultAdminAddr
	}
	if c.Admin.PublishRatePerMin <= 0 {
		c.Admin.PublishRatePerMin = DefaultPublishRatePerMin
	}
	if c.Admin.Enabled == nil {
		enabled := isLoopbackAddr(c.Admin.Addr)
		c.Admin.Enabled = &enabled
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

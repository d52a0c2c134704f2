package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate checks a parsed config. It is the default validator for Load and
// Watch.
func Validate(_ context.Context, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "memory", "mem", "file", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Storage.Driver), "file") && strings.TrimSpace(cfg.Storage.Path) == "" {
		errs = append(errs, errors.New("storage.path is required for file driver"))
	}
	if _, err := parseBoundedDuration("storage.busy_timeout", cfg.Storage.BusyTimeout, maxBusyTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := cfg.Location(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Admin.IsEnabled() && strings.TrimSpace(cfg.Admin.Addr) != "" {
		if _, _, err := net.SplitHostPort(cfg.Admin.Addr); err != nil {
			errs = append(errs, fmt.Errorf("admin.addr: %w", err))
		}
	}
	if cfg.Admin.PublishRatePerMin < 0 {
		errs = append(errs, errors.New("admin.publish_rate_per_min must be >= 0"))
	}
	if s := cfg.Schedule; s != nil {
		if s.IntervalMinutes < 0 {
			errs = append(errs, errors.New("schedule.interval_minutes must be >= 0"))
		}
		if s.ItemsPerRun < 0 {
			errs = append(errs, errors.New("schedule.items_per_run must be >= 0"))
		}
	}
	return errors.Join(errs...)
}

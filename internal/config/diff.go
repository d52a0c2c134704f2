package config

import (
	"reflect"
	"strings"

	logx "draftpub/pkg/logx"
)

// Sections reported by SummarizeChange.
const (
	SectionLogging  = "logging"
	SectionStorage  = "storage"
	SectionCatalog  = "catalog"
	SectionAdmin    = "admin"
	SectionTimezone = "timezone"
	SectionSchedule = "schedule"
)

// SummarizeChange returns the changed sections and compact attrs for logging.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, SectionLogging)
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, SectionStorage)
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.String("storage.path", newCfg.Storage.Path),
		)
	}
	if oldCfg.Catalog != newCfg.Catalog {
		changed = append(changed, SectionCatalog)
		attrs = append(attrs, logx.String("catalog.path", newCfg.Catalog.Path))
	}
	if !oldCfg.Admin.equal(newCfg.Admin) {
		changed = append(changed, SectionAdmin)
		attrs = append(attrs,
			logx.Bool("admin.enabled", newCfg.Admin.IsEnabled()),
			logx.String("admin.addr", newCfg.Admin.Addr),
		)
	}
	if strings.TrimSpace(oldCfg.Timezone) != strings.TrimSpace(newCfg.Timezone) {
		changed = append(changed, SectionTimezone)
		attrs = append(attrs, logx.String("timezone", newCfg.Timezone))
	}
	if scheduleChanged(oldCfg.Schedule, newCfg.Schedule) {
		changed = append(changed, SectionSchedule)
		if s := newCfg.Schedule; s != nil {
			attrs = append(attrs,
				logx.Int("schedule.interval_minutes", s.IntervalMinutes),
				logx.Int("schedule.items_per_run", s.ItemsPerRun),
				logx.Strings("schedule.types", s.Types),
			)
		}
	}
	return changed, attrs
}

// RestartRequired reports whether any of the changed sections only take
// effect after a restart.
func RestartRequired(changed []string) bool {
	for _, c := range changed {
		switch c {
		case SectionStorage, SectionCatalog, SectionAdmin, SectionTimezone:
			return true
		}
	}
	return false
}

// scheduleChanged treats a removed section as no change: the stored config
// stays authoritative.
func scheduleChanged(a, b *ScheduleSection) bool {
	if b == nil {
		return false
	}
	if a == nil {
		return true
	}
	return !reflect.DeepEqual(a.Settings(), b.Settings())
}

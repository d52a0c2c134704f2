package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"draftpub/internal/adminapi"
	"draftpub/internal/eventbus"
	"draftpub/internal/publisher"
	"draftpub/internal/publog"
	"draftpub/internal/scheduler"
	"draftpub/internal/settings"
	logx "draftpub/pkg/logx"
)

var _ adminapi.Core = (*App)(nil)

func (a *App) State() scheduler.State { return a.sched.CurrentState() }

// StartSchedule arms the scheduler and remembers it as active.
func (a *App) StartSchedule(ctx context.Context) (scheduler.State, error) {
	st, err := a.arm(ctx)
	if err != nil {
		return st, err
	}
	if err := a.state.Save(ctx, true); err != nil {
		return st, fmt.Errorf("save schedule state: %w", err)
	}
	a.emitSchedule(st)
	return st, nil
}

// StopSchedule disarms the scheduler and remembers it as stopped.
func (a *App) StopSchedule(ctx context.Context) (scheduler.State, error) {
	st := a.sched.Stop()
	if err := a.state.Save(ctx, false); err != nil {
		return st, fmt.Errorf("save schedule state: %w", err)
	}
	a.emitSchedule(st)
	return st, nil
}

func (a *App) Settings(ctx context.Context) (settings.Config, error) {
	return a.settings.Get(ctx)
}

// UpdateSettings saves cfg and re-arms the schedule with it. A stopped
// schedule is started too.
func (a *App) UpdateSettings(ctx context.Context, cfg settings.Config) (scheduler.State, error) {
	cfg, _ = cfg.Normalize()
	if err := a.settings.Set(ctx, cfg); err != nil {
		return scheduler.State{}, fmt.Errorf("save schedule config: %w", err)
	}
	st, err := a.sched.Reschedule(ctx, cfg)
	if err != nil {
		return st, err
	}
	if err := a.state.Save(ctx, true); err != nil {
		return st, fmt.Errorf("save schedule state: %w", err)
	}
	a.log.Info("settings saved",
		logx.Int("interval_minutes", cfg.IntervalMinutes),
		logx.Int("items_per_run", cfg.ItemsPerRun),
		logx.Strings("types", cfg.TypeFilter),
		logx.Bool("logging", cfg.LoggingEnabled),
	)
	a.emitSchedule(st)
	return st, nil
}

func (a *App) PublishNow(ctx context.Context, forcedType string) ([]publisher.Result, error) {
	cfg, err := a.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if t := strings.TrimSpace(forcedType); t != "" {
		cfg.TypeFilter = []string{t}
	}
	return observedRunner{exec: a.exec, bus: a.bus, source: sourceManual}.Run(ctx, cfg)
}

func (a *App) Entries(ctx context.Context) ([]publog.Entry, error) { return a.plog.All(ctx) }

func (a *App) ClearLog(ctx context.Context) error {
	if err := a.plog.Clear(ctx); err != nil {
		return err
	}
	a.log.Info("publish log cleared")
	a.bus.Publish(eventbus.Event{Type: eventbus.TypeLogCleared})
	return nil
}

func (a *App) LastError() (string, bool) { return a.exec.Errors().Take() }

func (a *App) Now() time.Time { return time.Now().In(a.loc) }

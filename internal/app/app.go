// Package app wires storage, the catalog, the publish executor, and the
// scheduler into one process, and serves the admin API.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"draftpub/internal/adminapi"
	"draftpub/internal/catalog"
	"draftpub/internal/config"
	"draftpub/internal/eventbus"
	"draftpub/internal/publisher"
	"draftpub/internal/publog"
	"draftpub/internal/runtime/supervisor"
	"draftpub/internal/scheduler"
	"draftpub/internal/settings"
	"draftpub/internal/storage"
	logx "draftpub/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	cfg  *config.Config
	loc  *time.Location

	log  logx.Logger
	logs *logx.Service

	store    storage.Store
	settings storage.SettingsStore
	state    storage.StateStore
	catalog  *catalog.Catalog
	plog     *publog.Store
	exec     *publisher.Executor
	trigger  *scheduler.CronTrigger
	sched    *scheduler.Scheduler
	bus      *eventbus.Bus

	sup *supervisor.Supervisor
}

// Options tweak New for one-shot commands.
type Options struct {
	// LogOut overrides the console log destination (stdout by default).
	LogOut io.Writer
	// LogLevel overrides logging.level when set.
	LogLevel string
}

// New loads the config at cfgPath (empty means defaults plus environment)
// and opens every dependency. Nothing is scheduled until Start.
func New(ctx context.Context, cfgPath string, opts Options) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load(ctx)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	logCfg := loggingConfig(cfg)
	logCfg.Out = opts.LogOut
	logs, log := logx.New(logCfg)
	cfgm.SetLogger(log)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &App{cfgm: cfgm, cfg: cfg, loc: loc, log: log.With(logx.String("comp", "app")), logs: logs}
	if err := a.open(cfg, log); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open(cfg *config.Config, log logx.Logger) error {
	st, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.StorageBusyTimeout(),
	}, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.store = st
	a.settings = storage.SettingsStore{S: st}
	a.state = storage.StateStore{S: st}

	cat, err := catalog.Open(cfg.Catalog.Path, cfg.StorageBusyTimeout(), log)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	a.catalog = cat

	a.plog = publog.New(storage.LogBlob{S: st}, publog.WithLogger(log))
	a.exec = publisher.New(cat, cat, a.plog,
		publisher.WithLocation(a.loc),
		publisher.WithLogger(log),
	)
	a.bus = eventbus.New()
	a.trigger = scheduler.NewCronTrigger(a.loc, log)
	a.sched = scheduler.New(a.trigger, a.settings,
		observedRunner{exec: a.exec, bus: a.bus, source: sourceSchedule},
		scheduler.WithLogger(log),
	)
	a.log.Debug("dependencies opened",
		logx.String("storage", cfg.Storage.Driver),
		logx.String("catalog", cfg.Catalog.Path),
		logx.String("timezone", a.loc.String()),
	)
	return nil
}

func loggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func (a *App) Config() *config.Config { return a.cfg }

func (a *App) Catalog() *catalog.Catalog { return a.catalog }

func (a *App) Logger() logx.Logger { return a.log }

func (a *App) Location() *time.Location { return a.loc }

// Done is closed when the supervisor context is cancelled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start seeds the schedule config on first run, restores the persisted
// scheduled/stopped state, and starts the background loops.
func (a *App) Start(ctx context.Context) error {
	if err := a.restore(ctx); err != nil {
		return err
	}

	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
		return nil
	})
	a.sup.GoRestart("config.watch", a.cfgm.Watch, supervisor.WithRestartBackoff(time.Second, 30*time.Second))

	if a.cfg.Admin.IsEnabled() {
		srv := adminapi.New(a,
			adminapi.WithLogger(a.log),
			adminapi.WithPublishRate(a.cfg.Admin.PublishRatePerMin),
			adminapi.WithEvents(a.bus),
			adminapi.WithProfiler(a.cfg.Admin.Pprof),
		)
		addr := a.cfg.Admin.Addr
		a.sup.Go("admin.http", func(c context.Context) error { return srv.Serve(c, addr) })
	}

	st := a.sched.CurrentState()
	fields := []logx.Field{logx.Bool("active", st.Active)}
	if st.NextRunAt != nil {
		fields = append(fields, logx.Time("next_run_at", *st.NextRunAt))
	}
	a.log.Info("app started", fields...)
	return nil
}

// restore runs on every start: defaults are written once, and the
// schedule is armed unless it was explicitly stopped before.
func (a *App) restore(ctx context.Context) error {
	saved, err := a.settings.Saved(ctx)
	if err != nil {
		return fmt.Errorf("read schedule config: %w", err)
	}
	if !saved {
		seed := settings.Defaults()
		if a.cfg.Schedule != nil {
			seed = a.cfg.Schedule.Settings()
		}
		if err := a.settings.Set(ctx, seed); err != nil {
			return fmt.Errorf("seed schedule config: %w", err)
		}
		a.log.Info("schedule config seeded", logx.Int("interval_minutes", seed.IntervalMinutes))
	}

	active, ok, err := a.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("read schedule state: %w", err)
	}
	if !ok {
		active = true
		if err := a.state.Save(ctx, true); err != nil {
			return fmt.Errorf("save schedule state: %w", err)
		}
	}
	if !active {
		a.log.Info("schedule restored as stopped")
		return nil
	}
	_, err = a.arm(ctx)
	return err
}

// arm starts the scheduler with the stored config without touching the
// persisted state.
func (a *App) arm(ctx context.Context) (scheduler.State, error) {
	cfg, err := a.settings.Get(ctx)
	if err != nil {
		return scheduler.State{}, err
	}
	return a.sched.Start(ctx, cfg)
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts.
			for more := true; more; {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					more = false
				}
			}
			a.applyConfig(ctx, last, next)
			last = next
		}
	}
}

func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	sections, attrs := config.SummarizeChange(prev, next)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config change", fields...)

	if config.RestartRequired(sections) {
		a.log.Warn("storage, catalog, admin or timezone changed; restart required for those to take effect")
	}
	for _, s := range sections {
		switch s {
		case config.SectionLogging:
			a.logs.Apply(loggingConfig(next))
		case config.SectionSchedule:
			if _, err := a.UpdateSettings(ctx, next.Schedule.Settings()); err != nil {
				a.log.Error("apply schedule from config failed", logx.Err(err))
			}
		}
	}
}

// Stop shuts down background loops and closes everything. The persisted
// schedule state is left alone so the next start restores it.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	var errs []error
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases resources without the supervisor shutdown; one-shot
// commands use it directly.
func (a *App) Close() error {
	var errs []error
	if a.trigger != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.trigger.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler: %w", err))
		}
		cancel()
		a.trigger = nil
	}
	if a.catalog != nil {
		errs = append(errs, a.catalog.Close())
		a.catalog = nil
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"draftpub/internal/settings"
	logx "draftpub/pkg/logx"
)

// Scheduler arms a Trigger at the configured cadence and runs the publisher
// on every tick.
//
// State machine: Stopped --Start--> Scheduled --Stop--> Stopped;
// Scheduled --OnTick/Reschedule--> Scheduled.
type Scheduler struct {
	mu sync.Mutex

	trigger Trigger
	clock   Clock
	configs settings.Store
	runner  Runner
	log     logx.Logger

	// interval and nextRunAt are what Start computed; the trigger's own view
	// wins when it has one.
	interval  time.Duration
	nextRunAt time.Time
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

func New(trigger Trigger, configs settings.Store, runner Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		trigger: trigger,
		configs: configs,
		runner:  runner,
		clock:   SystemClock{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	s.log = s.log.With(logx.String("comp", "scheduler"))
	return s
}

// Start arms the trigger at cfg's interval. It is a no-op when already armed.
func (s *Scheduler) Start(_ context.Context, cfg settings.Config) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(cfg)
}

// Stop disarms the trigger. It is safe to call when already stopped.
func (s *Scheduler) Stop() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.log.Info("schedule stopped")
	return s.stateLocked()
}

// Reschedule always stops and starts again with cfg, so it leaves the
// scheduler armed even if it was stopped before. Callers that must keep a
// stopped scheduler stopped check CurrentState().Active first.
func (s *Scheduler) Reschedule(_ context.Context, cfg settings.Config) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return s.startLocked(cfg)
}

func (s *Scheduler) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// OnTick loads the current config and runs one publish pass. It never
// re-arms the trigger; the registration is recurring. Failures are logged
// and leave the next tick unaffected.
func (s *Scheduler) OnTick(ctx context.Context) {
	cfg, err := s.configs.Get(ctx)
	if err != nil {
		s.log.Error("tick skipped: load schedule config failed", logx.Err(err))
		return
	}

	s.mu.Lock()
	if s.interval > 0 {
		s.nextRunAt = s.clock.Now().Add(s.interval)
	}
	s.mu.Unlock()

	if _, err := s.runner.Run(ctx, cfg); err != nil {
		s.log.Error("scheduled publish run failed", logx.Err(err))
	}
}

func (s *Scheduler) startLocked(cfg settings.Config) (State, error) {
	if _, armed := s.trigger.NextFireTime(); armed {
		s.log.Debug("start ignored: already scheduled")
		return s.stateLocked(), nil
	}

	cfg, corrected := cfg.Normalize()
	if corrected {
		s.log.Warn("invalid schedule interval; using default", logx.Int("interval_minutes", cfg.IntervalMinutes))
	}
	every := time.Duration(cfg.IntervalMinutes) * time.Minute

	err := s.trigger.Register(every, s.fire)
	if err != nil && !errors.Is(err, ErrAlreadyRegistered) {
		return s.stateLocked(), fmt.Errorf("register trigger: %w", err)
	}
	s.interval = every
	s.nextRunAt = s.clock.Now().Add(every)

	st := s.stateLocked()
	fields := []logx.Field{logx.Int("interval_minutes", cfg.IntervalMinutes)}
	if st.NextRunAt != nil {
		fields = append(fields, logx.Time("next_run_at", *st.NextRunAt))
	}
	s.log.Info("schedule started", fields...)
	return st, nil
}

func (s *Scheduler) stopLocked() {
	s.trigger.Cancel()
	s.interval = 0
	s.nextRunAt = time.Time{}
}

func (s *Scheduler) stateLocked() State {
	next, armed := s.trigger.NextFireTime()
	if !armed {
		return State{}
	}
	if next.IsZero() {
		next = s.nextRunAt
	}
	st := State{Active: true, IntervalMinutes: int(s.interval / time.Minute)}
	if !next.IsZero() {
		st.NextRunAt = &next
	}
	return st
}

func (s *Scheduler) fire() {
	s.OnTick(context.Background())
}

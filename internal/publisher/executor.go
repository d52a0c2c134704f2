package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"draftpub/internal/publog"
	"draftpub/internal/settings"
	logx "draftpub/pkg/logx"
)

// Executor runs one publish pass: select, publish each candidate, log.
type Executor struct {
	selector Selector
	mutator  Mutator
	appender LogAppender

	clock        Clock
	loc          *time.Location
	defaultTypes []string
	errs         *ErrorSlot
	log          logx.Logger

	// warn throttles per-item failure warnings; the rest go to debug.
	warn *rate.Limiter
}

type Option func(*Executor)

func WithClock(c Clock) Option {
	return func(x *Executor) {
		if c != nil {
			x.clock = c
		}
	}
}

// WithLocation sets the zone log timestamps are written in.
func WithLocation(loc *time.Location) Option {
	return func(x *Executor) {
		if loc != nil {
			x.loc = loc
		}
	}
}

func WithDefaultTypes(types []string) Option {
	return func(x *Executor) {
		if len(types) > 0 {
			x.defaultTypes = append([]string(nil), types...)
		}
	}
}

func WithErrorSlot(s *ErrorSlot) Option {
	return func(x *Executor) { x.errs = s }
}

func WithLogger(log logx.Logger) Option {
	return func(x *Executor) { x.log = log }
}

func New(sel Selector, mut Mutator, appender LogAppender, opts ...Option) *Executor {
	x := &Executor{
		selector:     sel,
		mutator:      mut,
		appender:     appender,
		clock:        systemClock{},
		loc:          time.Local,
		defaultTypes: settings.DefaultTypes,
		warn:         rate.NewLimiter(rate.Every(time.Second), 5),
	}
	for _, o := range opts {
		o(x)
	}
	if x.errs == nil {
		x.errs = NewErrorSlot(DefaultErrorTTL, x.clock)
	}
	if x.log.IsZero() {
		x.log = logx.Nop()
	}
	x.log = x.log.With(logx.String("comp", "publisher"))
	return x
}

// Errors exposes the transient last-failure slot.
func (x *Executor) Errors() *ErrorSlot { return x.errs }

// Run publishes up to cfg.ItemsPerRun pending items. A selection failure
// aborts the run and wraps ErrSelection; per-item failures are isolated and
// reported in the results. Once candidates are selected the run is not
// interrupted; ctx only reaches the Selector and Mutator.
func (x *Executor) Run(ctx context.Context, cfg settings.Config) ([]Result, error) {
	cfg, corrected := cfg.Normalize()
	log := x.log.With(logx.String("run_id", uuid.NewString()))
	if corrected {
		log.Warn("schedule config out of range; using corrected values",
			logx.Int("interval_minutes", cfg.IntervalMinutes), logx.Int("items_per_run", cfg.ItemsPerRun))
	}

	q := Query{
		Types:      cfg.EffectiveTypes(x.defaultTypes),
		Categories: cfg.CategoryFilter,
		Limit:      cfg.ItemsPerRun,
		Order:      OldestFirst,
	}
	started := x.clock.Now()
	ids, err := x.selector.SelectPending(ctx, q)
	if err != nil {
		log.Error("candidate selection failed", logx.Strings("types", q.Types), logx.Err(err))
		return nil, fmt.Errorf("%w: %w", ErrSelection, err)
	}
	if len(ids) > q.Limit {
		log.Warn("selector returned more candidates than requested; truncating",
			logx.Int("limit", q.Limit), logx.Int("got", len(ids)))
		ids = ids[:q.Limit]
	}
	if len(ids) == 0 {
		log.Debug("no pending items", logx.Strings("types", q.Types))
		return []Result{}, nil
	}

	results := make([]Result, 0, len(ids))
	published, failed := 0, 0
	for _, id := range ids {
		r := x.publishOne(ctx, log, cfg, id)
		if r.OK() && !r.Duplicate {
			published++
		} else if !r.OK() {
			failed++
		}
		results = append(results, r)
	}

	log.Info("publish run finished",
		logx.Int("candidates", len(ids)),
		logx.Int("published", published),
		logx.Int("failed", failed),
		logx.Duration("took", x.clock.Now().Sub(started)))
	return results, nil
}

func (x *Executor) publishOne(ctx context.Context, log logx.Logger, cfg settings.Config, id int64) Result {
	snap, err := x.mutator.Publish(ctx, id)
	if err != nil {
		x.errs.Set(err.Error())
		if x.warn.Allow() {
			log.Warn("publish failed", logx.Int64("item_id", id), logx.Err(err))
		} else {
			log.Debug("publish failed", logx.Int64("item_id", id), logx.Err(err))
		}
		return Result{ItemID: id, Err: fmt.Errorf("%w: item %d: %w", ErrPublish, id, err)}
	}
	if snap.AlreadyPublished {
		log.Debug("item already published; skipping log", logx.Int64("item_id", id))
		return Result{ItemID: id, Duplicate: true}
	}

	res := Result{ItemID: id}
	if !cfg.LoggingEnabled {
		return res
	}
	at := snap.PublishedAt
	if at.IsZero() {
		at = x.clock.Now()
	}
	e := publog.NewEntry(id, at.In(x.loc), snap.Title, snap.URL, snap.Type)
	if err := x.appender.Append(ctx, e); err != nil {
		log.Error("publish log append failed", logx.Int64("item_id", id), logx.Err(err))
		res.LogErr = err
		return res
	}
	res.Entry = &e
	return res
}

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "draftpub/pkg/logx"
)

// CronTrigger is a Trigger backed by a running robfig/cron instance.
//
// Jobs are wrapped with Recover and SkipIfStillRunning. The latter only
// prevents a slow tick from overlapping the next tick; it does not guard
// against manual runs.
type CronTrigger struct {
	mu sync.Mutex
	c  *cron.Cron

	id           cron.EntryID
	every        time.Duration
	registeredAt time.Time
}

// NewCronTrigger creates and starts the cron runner in loc (time.Local if nil).
func NewCronTrigger(loc *time.Location, log logx.Logger) *CronTrigger {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: log.With(logx.String("comp", "cron"))}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		cron.WithLogger(cl),
	)
	c.Start()
	return &CronTrigger{c: c}
}

func (t *CronTrigger) Register(every time.Duration, fn func()) error {
	if every < time.Second {
		return fmt.Errorf("interval must be at least 1s, got %s", every)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.id != 0 {
		return ErrAlreadyRegistered
	}
	t.id = t.c.Schedule(cron.Every(every), cron.FuncJob(fn))
	t.every = every
	t.registeredAt = time.Now()
	return nil
}

func (t *CronTrigger) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.id != 0 {
		t.c.Remove(t.id)
		t.id = 0
	}
}

func (t *CronTrigger) NextFireTime() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.id == 0 {
		return time.Time{}, false
	}
	if e := t.c.Entry(t.id); !e.Next.IsZero() {
		return e.Next, true
	}
	return t.registeredAt.Add(t.every), true
}

// Close stops the cron runner and waits for running jobs, bounded by ctx.
func (t *CronTrigger) Close(ctx context.Context) error {
	select {
	case <-t.c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}

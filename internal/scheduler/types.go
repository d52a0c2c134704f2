package scheduler

import (
	"context"
	"errors"
	"time"

	"draftpub/internal/publisher"
	"draftpub/internal/settings"
)

// ErrAlreadyRegistered is returned by Trigger.Register when a registration
// exists. Start treats it as success.
var ErrAlreadyRegistered = errors.New("scheduler: trigger already registered")

// Trigger delivers recurring ticks. At most one registration exists at a time.
type Trigger interface {
	Register(every time.Duration, fn func()) error
	Cancel()
	// NextFireTime reports the next tick, ok=false when nothing is
	// registered. A registered trigger that cannot tell the time returns a
	// zero time with ok=true.
	NextFireTime() (next time.Time, ok bool)
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Runner executes one publish pass.
type Runner interface {
	Run(ctx context.Context, cfg settings.Config) ([]publisher.Result, error)
}

// State is the externally visible scheduler state. Active is true exactly
// when NextRunAt is set.
type State struct {
	Active          bool       `json:"active"`
	NextRunAt       *time.Time `json:"nextRunAt,omitempty"`
	IntervalMinutes int        `json:"intervalMinutes,omitempty"`
}

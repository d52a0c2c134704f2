// Package publisher promotes pending items to published and records each
// publish in the audit log.
//
// Runs are not serialized: two overlapping runs may select the same item.
// Mutator.Publish must therefore treat a second publish of the same item as a
// no-op and report it via ItemSnapshot.AlreadyPublished.
package publisher

import (
	"context"
	"errors"
	"time"

	"draftpub/internal/publog"
)

var (
	// ErrSelection aborts a run: the selector could not produce candidates.
	ErrSelection = errors.New("publisher: selection failed")
	// ErrPublish marks a single item that could not be published.
	ErrPublish = errors.New("publisher: publish failed")
)

// Order is the candidate ordering requested from a Selector.
type Order int

const (
	// OldestFirst orders by creation time ascending; ties use the selector's
	// native order.
	OldestFirst Order = iota
)

// Query describes which pending items a run may publish.
type Query struct {
	Types      []string
	Categories []int64 // empty means unrestricted
	Limit      int
	Order      Order
}

// Selector finds pending items. It must return at most q.Limit ids.
type Selector interface {
	SelectPending(ctx context.Context, q Query) ([]int64, error)
}

// ItemSnapshot is the state of an item right after Publish.
type ItemSnapshot struct {
	ID          int64
	Title       string
	URL         string
	Type        string
	PublishedAt time.Time

	// AlreadyPublished is true when the item had been published before this
	// call; nothing changed and nothing is logged.
	AlreadyPublished bool
}

// Mutator transitions an item to published.
type Mutator interface {
	Publish(ctx context.Context, itemID int64) (ItemSnapshot, error)
}

// LogAppender receives one entry per successful publish.
type LogAppender interface {
	Append(ctx context.Context, e publog.Entry) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Result is the outcome for one candidate.
type Result struct {
	ItemID int64
	// Entry is the logged entry; nil on failure, for duplicates, or when
	// logging is disabled.
	Entry *publog.Entry
	// Err wraps ErrPublish when the item could not be published.
	Err error
	// Duplicate is set when the item was already published by another run.
	Duplicate bool
	// LogErr is set when the item was published but the log append failed.
	LogErr error
}

func (r Result) OK() bool { return r.Err == nil }

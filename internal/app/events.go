package app

import (
	"context"

	"draftpub/internal/eventbus"
	"draftpub/internal/publisher"
	"draftpub/internal/scheduler"
	"draftpub/internal/settings"
)

const (
	sourceSchedule = "schedule"
	sourceManual   = "manual"
)

// RunEvent is the payload of eventbus.TypeRun.
type RunEvent struct {
	Source    string        `json:"source"`
	Published int           `json:"published"`
	Failed    int           `json:"failed"`
	Items     []RunEventRow `json:"items,omitempty"`
	Error     string        `json:"error,omitempty"`
}

type RunEventRow struct {
	ItemID    int64  `json:"itemId"`
	Title     string `json:"title,omitempty"`
	Type      string `json:"type,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Error     string `json:"error,omitempty"`
}

// observedRunner reports every executor run on the bus.
type observedRunner struct {
	exec   *publisher.Executor
	bus    *eventbus.Bus
	source string
}

func (r observedRunner) Run(ctx context.Context, cfg settings.Config) ([]publisher.Result, error) {
	res, err := r.exec.Run(ctx, cfg)
	r.bus.Publish(eventbus.Event{Type: eventbus.TypeRun, Data: runEvent(r.source, res, err)})
	return res, err
}

func runEvent(source string, res []publisher.Result, err error) RunEvent {
	ev := RunEvent{Source: source}
	if err != nil {
		ev.Error = err.Error()
	}
	for _, r := range res {
		row := RunEventRow{ItemID: r.ItemID, Duplicate: r.Duplicate}
		if r.Entry != nil {
			row.Title = r.Entry.Title
			row.Type = r.Entry.ItemType
		}
		if r.Err != nil {
			row.Error = r.Err.Error()
			ev.Failed++
		} else if !r.Duplicate {
			ev.Published++
		}
		ev.Items = append(ev.Items, row)
	}
	return ev
}

func (a *App) emitSchedule(st scheduler.State) {
	a.bus.Publish(eventbus.Event{Type: eventbus.TypeSchedule, Data: st})
}

// Events exposes the activity bus.
func (a *App) Events() *eventbus.Bus { return a.bus }

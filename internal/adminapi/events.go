package adminapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"draftpub/internal/eventbus"
	logx "draftpub/pkg/logx"
)

// EventSource feeds GET /events.
type EventSource interface {
	Subscribe(buffer int) (<-chan eventbus.Event, func())
}

var eventsHeartbeat = 25 * time.Second

// handleEvents streams activity as server-sent events until the client
// disconnects or the bus closes the subscription.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The server write timeout would otherwise end the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	ch, unsub := s.events.Subscribe(32)
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.log.Warn("event stream not flushable", logx.Err(err))
		return
	}

	tick := time.NewTicker(eventsHeartbeat)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case e, ok := <-ch:
			if !ok {
				return
			}
			b, err := json.Marshal(e)
			if err != nil {
				s.log.Warn("encode event failed", logx.String("type", e.Type), logx.Err(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, b); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

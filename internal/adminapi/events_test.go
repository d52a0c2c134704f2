package adminapi

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftpub/internal/eventbus"
)

func TestEventsStreamDeliversPublishedEvents(t *testing.T) {
	bus := eventbus.New()
	srv := httptest.NewServer(New(newFakeCore(), WithEvents(bus)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	bus.Publish(eventbus.Event{Type: eventbus.TypeRun, Data: map[string]int{"published": 2}})

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" && len(lines) > 0 {
			break
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "event: publish.run", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "data: {"))
	assert.Contains(t, lines[1], `"published":2`)

	cancel()
	require.Eventually(t, func() bool { return bus.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventsAndProfilerAreOptIn(t *testing.T) {
	h := New(newFakeCore())
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/events", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/debug/pprof/", "").Code)

	h = New(newFakeCore(), WithProfiler(true))
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/debug/pprof/", "").Code)
}

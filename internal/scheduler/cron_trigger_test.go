package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "draftpub/pkg/logx"
)

func newCronTrigger(t *testing.T) *CronTrigger {
	t.Helper()
	trig := NewCronTrigger(time.UTC, logx.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = trig.Close(ctx)
	})
	return trig
}

func TestCronTriggerSingleRegistration(t *testing.T) {
	trig := newCronTrigger(t)

	require.NoError(t, trig.Register(time.Hour, func() {}))
	assert.ErrorIs(t, trig.Register(time.Hour, func() {}), ErrAlreadyRegistered)

	next, ok := trig.NextFireTime()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, 5*time.Second)

	trig.Cancel()
	_, ok = trig.NextFireTime()
	assert.False(t, ok)

	require.NoError(t, trig.Register(2*time.Hour, func() {}))
	next, ok = trig.NextFireTime()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), next, 5*time.Second)
}

func TestCronTriggerRejectsSubSecondInterval(t *testing.T) {
	trig := newCronTrigger(t)
	assert.Error(t, trig.Register(10*time.Millisecond, func() {}))
}

func TestCronTriggerFires(t *testing.T) {
	trig := newCronTrigger(t)
	var n atomic.Int32
	require.NoError(t, trig.Register(time.Second, func() { n.Add(1) }))

	assert.Eventually(t, func() bool { return n.Load() > 0 }, 4*time.Second, 50*time.Millisecond)
}

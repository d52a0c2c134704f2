package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftpub/internal/publisher"
	"draftpub/internal/settings"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeTrigger fires only when told to.
type fakeTrigger struct {
	clock *fakeClock

	registrations int
	cancels       int
	registerErr   error

	fn    func()
	every time.Duration
	armed time.Time
}

func (t *fakeTrigger) Register(every time.Duration, fn func()) error {
	if t.registerErr != nil {
		return t.registerErr
	}
	if t.fn != nil {
		return ErrAlreadyRegistered
	}
	t.registrations++
	t.fn, t.every, t.armed = fn, every, t.clock.Now()
	return nil
}

func (t *fakeTrigger) Cancel() {
	if t.fn != nil {
		t.cancels++
	}
	t.fn = nil
}

func (t *fakeTrigger) NextFireTime() (time.Time, bool) {
	if t.fn == nil {
		return time.Time{}, false
	}
	return t.armed.Add(t.every), true
}

func (t *fakeTrigger) Fire() {
	t.armed = t.clock.Now()
	t.fn()
}

type fakeRunner struct {
	mu   sync.Mutex
	cfgs []settings.Config
	err  error
}

func (r *fakeRunner) Run(_ context.Context, cfg settings.Config) ([]publisher.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfgs = append(r.cfgs, cfg)
	return nil, r.err
}

type failingStore struct{}

func (failingStore) Get(context.Context) (settings.Config, error) {
	return settings.Config{}, errors.New("disk gone")
}
func (failingStore) Set(context.Context, settings.Config) error { return nil }

func newTestScheduler(t *testing.T) (*Scheduler, *fakeTrigger, *fakeClock, *settings.MemoryStore, *fakeRunner) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	trig := &fakeTrigger{clock: clk}
	store := &settings.MemoryStore{}
	run := &fakeRunner{}
	return New(trig, store, run, WithClock(clk)), trig, clk, store, run
}

func cfgEvery(minutes int) settings.Config {
	c := settings.Defaults()
	c.IntervalMinutes = minutes
	return c
}

func TestStartArmsTrigger(t *testing.T) {
	s, trig, clk, _, _ := newTestScheduler(t)

	st, err := s.Start(context.Background(), cfgEvery(5))
	require.NoError(t, err)

	assert.True(t, st.Active)
	require.NotNil(t, st.NextRunAt)
	assert.Equal(t, clk.Now().Add(5*time.Minute), *st.NextRunAt)
	assert.Equal(t, 5, st.IntervalMinutes)
	assert.Equal(t, 5*time.Minute, trig.every)
}

func TestStartIsIdempotent(t *testing.T) {
	s, trig, _, _, _ := newTestScheduler(t)
	ctx := context.Background()

	first, err := s.Start(ctx, cfgEvery(5))
	require.NoError(t, err)
	second, err := s.Start(ctx, cfgEvery(30))
	require.NoError(t, err)

	assert.Equal(t, 1, trig.registrations)
	assert.Equal(t, 5*time.Minute, trig.every)
	assert.Equal(t, first, second)
}

func TestStartTreatsAlreadyRegisteredAsSuccess(t *testing.T) {
	s, trig, _, _, _ := newTestScheduler(t)
	trig.registerErr = ErrAlreadyRegistered

	_, err := s.Start(context.Background(), cfgEvery(5))
	require.NoError(t, err)
}

func TestStartPropagatesTriggerError(t *testing.T) {
	s, trig, _, _, _ := newTestScheduler(t)
	trig.registerErr = errors.New("no timers left")

	st, err := s.Start(context.Background(), cfgEvery(5))
	require.Error(t, err)
	assert.False(t, st.Active)
}

func TestStartFallsBackToDefaultInterval(t *testing.T) {
	s, trig, _, _, _ := newTestScheduler(t)

	_, err := s.Start(context.Background(), cfgEvery(0))
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultIntervalMinutes*time.Minute, trig.every)
}

func TestStopDisarms(t *testing.T) {
	s, trig, _, _, _ := newTestScheduler(t)
	_, err := s.Start(context.Background(), cfgEvery(5))
	require.NoError(t, err)

	st := s.Stop()
	assert.False(t, st.Active)
	assert.Nil(t, st.NextRunAt)

	// Stopping twice is harmless.
	st = s.Stop()
	assert.False(t, st.Active)
	assert.Equal(t, 1, trig.cancels)
}

func TestRescheduleChangesCadence(t *testing.T) {
	s, trig, clk, _, _ := newTestScheduler(t)
	ctx := context.Background()

	_, err := s.Start(ctx, cfgEvery(5))
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)

	st, err := s.Reschedule(ctx, cfgEvery(10))
	require.NoError(t, err)

	require.NotNil(t, st.NextRunAt)
	assert.Equal(t, clk.Now().Add(10*time.Minute), *st.NextRunAt)
	next, ok := trig.NextFireTime()
	require.True(t, ok)
	assert.Equal(t, next, *st.NextRunAt)
	assert.Equal(t, 10, st.IntervalMinutes)
	assert.Equal(t, 2, trig.registrations)
	assert.Equal(t, 1, trig.cancels)
}

func TestRescheduleArmsStoppedScheduler(t *testing.T) {
	s, _, _, _, _ := newTestScheduler(t)

	st, err := s.Reschedule(context.Background(), cfgEvery(15))
	require.NoError(t, err)
	assert.True(t, st.Active)
}

func TestStateFollowsTrigger(t *testing.T) {
	s, trig, _, _, _ := newTestScheduler(t)
	_, err := s.Start(context.Background(), cfgEvery(5))
	require.NoError(t, err)

	// Registration removed behind the scheduler's back.
	trig.fn = nil
	assert.False(t, s.CurrentState().Active)
}

func TestOnTickRunsWithLatestConfig(t *testing.T) {
	s, trig, clk, store, run := newTestScheduler(t)
	ctx := context.Background()
	_, err := s.Start(ctx, cfgEvery(5))
	require.NoError(t, err)

	saved := cfgEvery(5)
	saved.ItemsPerRun = 3
	saved.TypeFilter = []string{"page"}
	require.NoError(t, store.Set(ctx, saved))

	clk.Advance(5 * time.Minute)
	trig.Fire()

	require.Len(t, run.cfgs, 1)
	assert.Equal(t, saved, run.cfgs[0])
	// The registration is recurring; a tick never registers again.
	assert.Equal(t, 1, trig.registrations)
	st := s.CurrentState()
	require.NotNil(t, st.NextRunAt)
	assert.Equal(t, clk.Now().Add(5*time.Minute), *st.NextRunAt)
}

func TestOnTickSurvivesFailures(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	trig := &fakeTrigger{clock: clk}
	run := &fakeRunner{}
	s := New(trig, failingStore{}, run, WithClock(clk))

	s.OnTick(context.Background())
	assert.Empty(t, run.cfgs)

	s2, _, _, _, run2 := newTestScheduler(t)
	run2.err = errors.New("selection failed")
	s2.OnTick(context.Background())
	s2.OnTick(context.Background())
	assert.Len(t, run2.cfgs, 2)
}

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftpub/internal/settings"
	logx "draftpub/pkg/logx"
)

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	out := map[string]Store{}
	for name, cfg := range map[string]Config{
		"memory": {Driver: "memory"},
		"file":   {Driver: "file", Path: filepath.Join(dir, "kv")},
		"sqlite": {Driver: "sqlite", Path: filepath.Join(dir, "draftpub.db")},
	} {
		st, err := Open(cfg, logx.Nop())
		require.NoError(t, err, name)
		t.Cleanup(func() { _ = st.Close() })
		out[name] = st
	}
	return out
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, st := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, st.Put(ctx, "k1", []byte(`{"a":1}`)))
			require.NoError(t, st.Put(ctx, "k1", []byte(`{"a":2}`)))
			v, err := st.Get(ctx, "k1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":2}`, string(v))

			require.NoError(t, st.Delete(ctx, "k1"))
			require.NoError(t, st.Delete(ctx, "k1"))
			_, err = st.Get(ctx, "k1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreRejectsBadKeys(t *testing.T) {
	ctx := context.Background()
	for name, st := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, st.Put(ctx, "", []byte("x")))
			assert.Error(t, st.Put(ctx, "../escape", []byte("x")))
		})
	}
}

func TestOpenDrivers(t *testing.T) {
	_, err := Open(Config{Driver: "none"}, logx.Nop())
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = Open(Config{Driver: "bogus"}, logx.Nop())
	assert.Error(t, err)

	_, err = Open(Config{Driver: "file"}, logx.Nop())
	assert.Error(t, err)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, StateStore{S: st}.Save(ctx, true))
	require.NoError(t, st.Close())

	st, err = Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()
	active, ok, err := StateStore{S: st}.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, active)
}

func TestSettingsStoreDefaultsAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	cs := SettingsStore{S: NewMemory()}

	saved, err := cs.Saved(ctx)
	require.NoError(t, err)
	assert.False(t, saved)

	got, err := cs.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), got)

	want := settings.Config{
		IntervalMinutes: 10,
		ItemsPerRun:     3,
		TypeFilter:      []string{"post", "page"},
		CategoryFilter:  []int64{4},
		LoggingEnabled:  false,
	}
	require.NoError(t, cs.Set(ctx, want))
	got, err = cs.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := cs.S.Get(ctx, KeyScheduleConfig)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"v":1`)
	assert.Contains(t, string(raw), `"intervalMinutes":10`)
}

func TestSettingsStoreRejectsFutureVersion(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	require.NoError(t, st.Put(ctx, KeyScheduleConfig, []byte(`{"v":9,"intervalMinutes":5}`)))

	_, err := SettingsStore{S: st}.Get(ctx)
	assert.Error(t, err)
}

func TestLogBlobEmptyIsNil(t *testing.T) {
	ctx := context.Background()
	lb := LogBlob{S: NewMemory()}

	b, err := lb.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, b)

	require.NoError(t, lb.Save(ctx, []byte(`{"v":1,"entries":[]}`)))
	b, err = lb.Load(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftpub/internal/catalog"
	"draftpub/internal/eventbus"
	"draftpub/internal/settings"
)

func writeConfig(t *testing.T, dir, storageDriver string, extra string) string {
	t.Helper()
	storagePath := ""
	switch storageDriver {
	case "sqlite":
		storagePath = filepath.Join(dir, "draftpub.db")
	case "file":
		storagePath = filepath.Join(dir, "kv")
	}
	body := fmt.Sprintf(`{
  "logging": {"level": "error", "console": true, "file": {"enabled": false, "path": ""}},
  "storage": {"driver": %q, "path": %q},
  "catalog": {"path": %q},
  "admin": {"enabled": false},
  "timezone": "UTC"%s
}`, storageDriver, storagePath, filepath.Join(dir, "items.db"), extra)
	p := filepath.Join(dir, "draftpub.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func newTestApp(t *testing.T, cfgPath string) *App {
	t.Helper()
	a, err := New(context.Background(), cfgPath, Options{LogOut: &bytes.Buffer{}})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Stop(ctx, StopCommand)
	})
	return a
}

func addDrafts(t *testing.T, a *App, typ string, n int) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := a.Catalog().AddDraft(context.Background(), catalog.Draft{
			Title:     fmt.Sprintf("%s %d", typ, i),
			URL:       fmt.Sprintf("https://example.test/%s/%d", typ, i),
			Type:      typ,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func TestFirstStartSeedsDefaultsAndArms(t *testing.T) {
	a := newTestApp(t, writeConfig(t, t.TempDir(), "memory", ""))
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	cfg, err := a.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), cfg)

	st := a.State()
	assert.True(t, st.Active)
	require.NotNil(t, st.NextRunAt)
	assert.WithinDuration(t, time.Now().Add(75*time.Minute), *st.NextRunAt, 5*time.Second)
}

func TestScheduleSectionSeedsConfig(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, writeConfig(t, dir, "memory", `,
  "schedule": {"interval_minutes": 15, "items_per_run": 4, "types": ["page"], "logging": false}`))
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	cfg, err := a.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.IntervalMinutes)
	assert.Equal(t, 4, cfg.ItemsPerRun)
	assert.Equal(t, []string{"page"}, cfg.TypeFilter)
	assert.False(t, cfg.LoggingEnabled)
	assert.Equal(t, 15, a.State().IntervalMinutes)
}

func TestStoppedStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, "sqlite", "")
	ctx := context.Background()

	a, err := New(ctx, p, Options{LogOut: &bytes.Buffer{}})
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	st, err := a.StopSchedule(ctx)
	require.NoError(t, err)
	assert.False(t, st.Active)
	require.NoError(t, a.Stop(ctx, StopSIGTERM))

	b := newTestApp(t, p)
	require.NoError(t, b.Start(ctx))
	assert.False(t, b.State().Active)

	st, err = b.StartSchedule(ctx)
	require.NoError(t, err)
	assert.True(t, st.Active)
}

func TestPublishNowWithForcedType(t *testing.T) {
	a := newTestApp(t, writeConfig(t, t.TempDir(), "memory", ""))
	ctx := context.Background()
	addDrafts(t, a, "post", 2)
	addDrafts(t, a, "page", 1)

	results, err := a.PublishNow(ctx, "page")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].OK())
	require.NotNil(t, results[0].Entry)
	assert.Equal(t, "page", results[0].Entry.ItemType)

	// Stored filter (default "post"), one per run, oldest first.
	results, err = a.PublishNow(ctx, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "post 0", results[0].Entry.Title)

	entries, err := a.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, a.ClearLog(ctx))
	entries, err = a.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpdateSettingsRearmsStoppedSchedule(t *testing.T) {
	a := newTestApp(t, writeConfig(t, t.TempDir(), "file", ""))
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	_, err := a.StopSchedule(ctx)
	require.NoError(t, err)

	cfg := settings.Defaults()
	cfg.IntervalMinutes = 10
	st, err := a.UpdateSettings(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.Equal(t, 10, st.IntervalMinutes)
	require.NotNil(t, st.NextRunAt)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), *st.NextRunAt, 5*time.Second)

	got, err := a.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, got.IntervalMinutes)
}

func TestLastErrorIsConsumedOnRead(t *testing.T) {
	a := newTestApp(t, writeConfig(t, t.TempDir(), "memory", ""))
	_, ok := a.LastError()
	assert.False(t, ok)

	a.exec.Errors().Set("item 9: locked")
	msg, ok := a.LastError()
	assert.True(t, ok)
	assert.Equal(t, "item 9: locked", msg)
	_, ok = a.LastError()
	assert.False(t, ok)
}

func TestConfigReloadReschedules(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, "memory", "")
	a := newTestApp(t, p)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	time.Sleep(200 * time.Millisecond)
	writeConfig(t, dir, "memory", `,
  "schedule": {"interval_minutes": 20, "items_per_run": 2}`)

	require.Eventually(t, func() bool {
		return a.State().IntervalMinutes == 20
	}, 5*time.Second, 50*time.Millisecond)
	cfg, err := a.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.ItemsPerRun)
}

func TestActivityEvents(t *testing.T) {
	a := newTestApp(t, writeConfig(t, t.TempDir(), "memory", ""))
	ctx := context.Background()
	addDrafts(t, a, "post", 1)

	ch, unsub := a.Events().Subscribe(8)
	defer unsub()

	_, err := a.PublishNow(ctx, "")
	require.NoError(t, err)
	e := <-ch
	require.Equal(t, eventbus.TypeRun, e.Type)
	run, ok := e.Data.(RunEvent)
	require.True(t, ok)
	assert.Equal(t, sourceManual, run.Source)
	assert.Equal(t, 1, run.Published)
	require.Len(t, run.Items, 1)
	assert.Equal(t, "post 0", run.Items[0].Title)

	_, err = a.StopSchedule(ctx)
	require.NoError(t, err)
	e = <-ch
	assert.Equal(t, eventbus.TypeSchedule, e.Type)

	require.NoError(t, a.ClearLog(ctx))
	assert.Equal(t, eventbus.TypeLogCleared, (<-ch).Type)
}

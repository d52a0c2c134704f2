package publog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeVersioned(t *testing.T) {
	t.Parallel()
	in := []Entry{entryN(1), entryN(2)}
	b, err := Encode(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"v":1`)
	assert.Contains(t, string(b), `"itemId":1`)

	out, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeEmpty(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "  ", "null"} {
		got, err := Decode([]byte(raw))
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestDecodeLegacyArray(t *testing.T) {
	t.Parallel()
	raw := `[
		{"id": 12, "time": "2025-03-01 10:00:00", "title": "Hello", "url": "https://x/?p=12", "type": "post"},
		{"id": "13", "time": "2025-03-01 11:00:00", "title": "Page", "url": "https://x/?p=13"}
	]`
	got, err := Decode([]byte(raw))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(12), got[0].ItemID)
	assert.Equal(t, "post", got[0].ItemType)
	assert.Equal(t, int64(13), got[1].ItemID)
	assert.Equal(t, UnknownType, got[1].TypeOrUnknown())
}

func TestDecodeAppliesUnknownTypeFallback(t *testing.T) {
	t.Parallel()
	for name, raw := range map[string]string{
		"legacy":    `[{"id": 1, "time": "2025-03-01 10:00:00", "title": "A", "url": "u", "type": ""}]`,
		"versioned": `{"v":1,"entries":[{"itemId":1,"publishedAt":"2025-03-01 10:00:00","title":"A","url":"u","itemType":"  "}]}`,
	} {
		got, err := Decode([]byte(raw))
		require.NoError(t, err, name)
		require.Len(t, got, 1, name)
		assert.Equal(t, UnknownType, got[0].ItemType, name)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	t.Parallel()
	_, err := Decode([]byte(`{"v":7,"entries":[]}`))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestNewEntryFallbacks(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 2, 3, 4, 5, 6, 999, time.UTC)
	e := NewEntry(5, at, "", "", "  ")
	assert.Equal(t, UnknownType, e.ItemType)
	assert.Equal(t, "", e.Title)
	assert.Equal(t, "2026-02-03 04:05:06", e.PublishedAt)

	got, ok := e.Time(time.UTC)
	require.True(t, ok)
	assert.True(t, got.Equal(at.Truncate(time.Second)))

	_, ok = Entry{PublishedAt: "yesterday"}.Time(time.UTC)
	assert.False(t, ok)
}

package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftpub/internal/publog"
)

func TestExportRoundTrip(t *testing.T) {
	t.Parallel()
	entries := []publog.Entry{
		publog.NewEntry(7, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), `Hello, "world"`, "https://example.com/?p=7", "post"),
		publog.NewEntry(8, time.Date(2026, 10, 19, 9, 30, 15, 0, time.UTC), "", "https://example.com/?p=8", "page"),
	}

	b, err := Exporter{}.Export(entries)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"post_id", "time", "title", "url", "type"}, rows[0])
	assert.Equal(t, []string{"7", "2026-10-18 09:00:00", `Hello, "world"`, "https://example.com/?p=7", "post"}, rows[1])
	assert.Equal(t, []string{"8", "2026-10-19 09:30:15", "", "https://example.com/?p=8", "page"}, rows[2])
}

func TestExportKeepsStoredOrder(t *testing.T) {
	t.Parallel()
	log := makeLog(3, allPosts)
	b, err := Exporter{}.Export(log)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "3", rows[3][0])
}

func TestExportQuotesEveryField(t *testing.T) {
	t.Parallel()
	b, err := Exporter{}.Export(makeLog(1, allPosts))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte(`"post_id","time","title","url","type"`+"\n")))
}

func TestExportEmptyLog(t *testing.T) {
	t.Parallel()
	_, err := Exporter{}.Export(nil)
	require.ErrorIs(t, err, ErrNoDataToExport)
}

func TestExportNeutralizesFormulas(t *testing.T) {
	t.Parallel()
	for _, title := range []string{"=HYPERLINK(\"x\")", "+1", "-1", "@SUM(A1)"} {
		e := publog.NewEntry(1, time.Now(), title, "", "post")
		b, err := Exporter{}.Export([]publog.Entry{e})
		require.NoError(t, err)
		rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, "'"+title, rows[1][2], title)
	}
}

func TestExportStripsMarkupFromTitles(t *testing.T) {
	t.Parallel()
	e := publog.NewEntry(1, time.Now(), "<b>Bold</b> & brave", "", "post")
	b, err := Exporter{}.Export([]publog.Entry{e})
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "Bold & brave", rows[1][2])
}

func TestExportBOM(t *testing.T) {
	t.Parallel()
	b, err := Exporter{BOM: true}.Export(makeLog(1, allPosts))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, utf8BOM))
}

func TestExportFileName(t *testing.T) {
	t.Parallel()
	got := ExportFileName(time.Date(2026, 10, 19, 8, 7, 6, 0, time.UTC))
	assert.Equal(t, "publish-log-20261019-080706.csv", got)
}

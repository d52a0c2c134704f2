package report

import (
	"bufio"
	"bytes"
	"errors"
	"html"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"draftpub/internal/publog"
)

var ErrNoDataToExport = errors.New("report: no log entries to export")

var csvHeader = []string{"post_id", "time", "title", "url", "type"}

// utf8BOM makes spreadsheet tools detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Exporter writes the log as CSV in stored order (oldest first). Every field
// is quoted; fields that a spreadsheet would evaluate as a formula are
// prefixed with a single quote.
type Exporter struct {
	// BOM prepends a UTF-8 byte order mark.
	BOM bool
}

var stripTags = bluemonday.StrictPolicy()

// Export returns the CSV bytes, or ErrNoDataToExport for an empty log.
func (x Exporter) Export(entries []publog.Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := x.WriteTo(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (x Exporter) WriteTo(w io.Writer, entries []publog.Entry) error {
	if len(entries) == 0 {
		return ErrNoDataToExport
	}
	bw := bufio.NewWriter(w)
	if x.BOM {
		_, _ = bw.Write(utf8BOM)
	}
	writeRow(bw, csvHeader)
	for _, e := range entries {
		writeRow(bw, []string{
			strconv.FormatInt(e.ItemID, 10),
			e.PublishedAt,
			plainTitle(e.Title),
			e.URL,
			e.ItemType,
		})
	}
	return bw.Flush()
}

// ExportFileName is the suggested download name for an export taken at now.
func ExportFileName(now time.Time) string {
	return "publish-log-" + now.Format("20060102-150405") + ".csv"
}

func writeRow(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			_ = w.WriteByte(',')
		}
		_ = w.WriteByte('"')
		_, _ = w.WriteString(strings.ReplaceAll(neutralizeFormula(f), `"`, `""`))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('\n')
}

func neutralizeFormula(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// plainTitle drops markup from a title; bluemonday escapes what it keeps, so
// the result is unescaped back to plain text.
func plainTitle(title string) string {
	if !strings.ContainsAny(title, "<>&") {
		return title
	}
	return strings.TrimSpace(html.UnescapeString(stripTags.Sanitize(title)))
}

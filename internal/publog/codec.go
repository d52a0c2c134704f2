package publog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Blob schema version written by Encode.
const schemaVersion = 1

var ErrUnsupportedVersion = errors.New("publog: unsupported log schema version")

type blob struct {
	V       int     `json:"v"`
	Entries []Entry `json:"entries"`
}

// legacyEntry is the unversioned pre-v1 layout:
// a bare JSON array of {id,time,title,url,type}.
type legacyEntry struct {
	ID    flexInt `json:"id"`
	Time  string  `json:"time"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Type  string  `json:"type"`
}

// flexInt accepts both 42 and "42".
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %s: %w", b, err)
	}
	*f = flexInt(n)
	return nil
}

// Encode serializes entries into the versioned blob layout.
func Encode(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	b, err := json.Marshal(blob{V: schemaVersion, Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("encode publish log: %w", err)
	}
	return b, nil
}

// Decode parses a blob produced by Encode or a legacy array. Empty input is an
// empty log. The result is trimmed to the most recent Capacity entries.
func Decode(b []byte) ([]Entry, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, nil
	}

	var entries []Entry
	if b[0] == '[' {
		var legacy []legacyEntry
		if err := json.Unmarshal(b, &legacy); err != nil {
			return nil, fmt.Errorf("decode legacy publish log: %w", err)
		}
		entries = make([]Entry, 0, len(legacy))
		for _, l := range legacy {
			entries = append(entries, Entry{
				ItemID:      int64(l.ID),
				PublishedAt: l.Time,
				Title:       l.Title,
				URL:         l.URL,
				ItemType:    normalizeType(l.Type),
			})
		}
	} else {
		var doc blob
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("decode publish log: %w", err)
		}
		if doc.V != schemaVersion {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.V)
		}
		entries = doc.Entries
		for i := range entries {
			entries[i].ItemType = normalizeType(entries[i].ItemType)
		}
	}
	return trim(entries, Capacity), nil
}

// trim keeps the last n entries, preserving order.
func trim(entries []Entry, n int) []Entry {
	if n > 0 && len(entries) > n {
		entries = append([]Entry(nil), entries[len(entries)-n:]...)
	}
	return entries
}

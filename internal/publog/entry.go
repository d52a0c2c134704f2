package publog

import (
	"strings"
	"time"
)

const (
	// Capacity is the maximum number of entries the log retains.
	Capacity = 1000

	// TimeLayout is the on-disk format of Entry.PublishedAt (second precision,
	// no zone; interpreted in the configured location).
	TimeLayout = "2006-01-02 15:04:05"

	// UnknownType is recorded when the host did not report an item type.
	UnknownType = "unknown"
)

// Entry is one publish event. Entries are never modified after Append.
type Entry struct {
	ItemID      int64  `json:"itemId"`
	PublishedAt string `json:"publishedAt"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	ItemType    string `json:"itemType"`
}

// NewEntry builds an entry with the fallbacks applied in one place:
// an empty type becomes UnknownType and at is truncated to the second.
func NewEntry(itemID int64, at time.Time, title, url, itemType string) Entry {
	return Entry{
		ItemID:      itemID,
		PublishedAt: at.Format(TimeLayout),
		Title:       title,
		URL:         url,
		ItemType:    normalizeType(itemType),
	}
}

func normalizeType(itemType string) string {
	itemType = strings.TrimSpace(itemType)
	if itemType == "" {
		return UnknownType
	}
	return itemType
}

// Time parses PublishedAt in loc. ok is false for empty or malformed values,
// which can only come from legacy imports.
func (e Entry) Time(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(e.PublishedAt)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimeLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TypeOrUnknown returns the item type, falling back to UnknownType.
func (e Entry) TypeOrUnknown() string {
	if strings.TrimSpace(e.ItemType) == "" {
		return UnknownType
	}
	return e.ItemType
}

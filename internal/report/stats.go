package report

import (
	"sort"
	"time"

	"draftpub/internal/publog"
)

// DefaultWindowDays is the daily chart window used by the dashboard.
const DefaultWindowDays = 7

const dayLayout = "2006-01-02"

type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// TypeCounts counts entries per item type. Entries without a type are
// counted under publog.UnknownType.
func TypeCounts(entries []publog.Entry) map[string]int {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.TypeOrUnknown()]++
	}
	return counts
}

// SortedTypeCounts orders counts by count (desc), then type name.
func SortedTypeCounts(counts map[string]int) []TypeCount {
	out := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TypeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// DailyCounts returns windowDays consecutive days ending at reference's
// calendar day, oldest first. Every day is present, zero-filled. Days and
// entry timestamps are interpreted in reference's location; entries outside
// the window or with an unparsable timestamp are ignored.
func DailyCounts(entries []publog.Entry, reference time.Time, windowDays int) []DayCount {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	loc := reference.Location()
	y, m, d := reference.Date()
	refDay := time.Date(y, m, d, 0, 0, 0, 0, loc)

	days := make([]DayCount, windowDays)
	index := make(map[string]int, windowDays)
	for i := 0; i < windowDays; i++ {
		key := refDay.AddDate(0, 0, i-(windowDays-1)).Format(dayLayout)
		days[i] = DayCount{Day: key}
		index[key] = i
	}

	for _, e := range entries {
		t, ok := e.Time(loc)
		if !ok {
			continue
		}
		if i, ok := index[t.Format(dayLayout)]; ok {
			days[i].Count++
		}
	}
	return days
}

// Summary is the dashboard view of the log.
type Summary struct {
	Total  int           `json:"total"`
	Last   *publog.Entry `json:"last,omitempty"`
	ByType []TypeCount   `json:"byType"`
	Daily  []DayCount    `json:"daily"`
}

func Summarize(entries []publog.Entry, reference time.Time) Summary {
	s := Summary{
		Total:  len(entries),
		ByType: SortedTypeCounts(TypeCounts(entries)),
		Daily:  DailyCounts(entries, reference, DefaultWindowDays),
	}
	if n := len(entries); n > 0 {
		last := entries[n-1]
		s.Last = &last
	}
	return s
}

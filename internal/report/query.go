package report

import "draftpub/internal/publog"

// DefaultPageSize is the number of rows shown per page of recent activity.
const DefaultPageSize = 50

type Page struct {
	Entries    []publog.Entry `json:"entries"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
}

// Query filters entries by exact item type (empty matches all), orders them
// newest first and returns the requested 1-based page. Pages past the end are
// empty, not an error. Page numbers below 1 are treated as 1.
func Query(entries []publog.Entry, typeFilter string, page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	filtered := make([]publog.Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if typeFilter != "" && entries[i].ItemType != typeFilter {
			continue
		}
		filtered = append(filtered, entries[i])
	}

	// size <= len(filtered), so neither sum nor product below can overflow.
	size := min(pageSize, max(len(filtered), 1))
	totalPages := (len(filtered) + size - 1) / size

	out := Page{
		Entries:    []publog.Entry{},
		Page:       page,
		PageSize:   pageSize,
		Total:      len(filtered),
		TotalPages: totalPages,
	}
	if page-1 >= totalPages {
		return out
	}
	start := (page - 1) * size
	end := min(start+size, len(filtered))
	out.Entries = filtered[start:end]
	return out
}

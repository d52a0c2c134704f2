package adminapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"draftpub/internal/publisher"
	"draftpub/internal/report"
	"draftpub/internal/scheduler"
	"draftpub/internal/settings"
	logx "draftpub/pkg/logx"
)

type statusResponse struct {
	State     scheduler.State `json:"state"`
	Settings  settings.Config `json:"settings"`
	Summary   report.Summary  `json:"summary"`
	LastError string          `json:"lastError,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := s.core.Settings(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	entries, err := s.core.Entries(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := statusResponse{
		State:    s.core.State(),
		Settings: cfg,
		Summary:  report.Summarize(entries, s.core.Now()),
	}
	if msg, ok := s.core.LastError(); ok {
		resp.LastError = msg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	st, err := s.core.StartSchedule(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	st, err := s.core.StopSchedule(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.core.Settings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type settingsResponse struct {
	Settings settings.Config `json:"settings"`
	State    scheduler.State `json:"state"`
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var cfg settings.Config
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid settings: %w", err))
		return
	}
	cfg, corrected := cfg.Normalize()
	if corrected {
		s.log.Warn("settings corrected on save", logx.Int("interval_minutes", cfg.IntervalMinutes), logx.Int("items_per_run", cfg.ItemsPerRun))
	}
	st, err := s.core.UpdateSettings(r.Context(), cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: cfg, State: st})
}

type publishItem struct {
	ItemID    int64  `json:"itemId"`
	OK        bool   `json:"ok"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Error     string `json:"error,omitempty"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
}

type publishResponse struct {
	Published int           `json:"published"`
	Failed    int           `json:"failed"`
	Items     []publishItem `json:"items"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if s.publish != nil && !s.publish.Allow() {
		w.Header().Set("Retry-After", "10")
		writeError(w, http.StatusTooManyRequests, errors.New("publish rate limit exceeded"))
		return
	}
	forced := strings.TrimSpace(r.URL.Query().Get("type"))
	results, err := s.core.PublishNow(r.Context(), forced)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, publisher.ErrSelection) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err)
		return
	}

	resp := publishResponse{Items: make([]publishItem, 0, len(results))}
	for _, res := range results {
		it := publishItem{ItemID: res.ItemID, OK: res.OK(), Duplicate: res.Duplicate}
		if res.Err != nil {
			it.Error = res.Err.Error()
			resp.Failed++
		} else if !res.Duplicate {
			resp.Published++
		}
		if res.Entry != nil {
			it.Title, it.URL = res.Entry.Title, res.Entry.URL
		}
		resp.Items = append(resp.Items, it)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	size, err := intParam(q.Get("page_size"), report.DefaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entries, err := s.core.Entries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Query(entries, strings.TrimSpace(q.Get("type")), page, size))
}

func (s *Server) handleClearLog(w http.ResponseWriter, r *http.Request) {
	if err := s.core.ClearLog(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statsResponse struct {
	Total  int                `json:"total"`
	ByType []report.TypeCount `json:"byType"`
	Daily  []report.DayCount  `json:"daily"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query().Get("days"), report.DefaultWindowDays)
	if err != nil || days < 1 || days > 366 {
		writeError(w, http.StatusBadRequest, errors.New("days must be between 1 and 366"))
		return
	}
	entries, err := s.core.Entries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Total:  len(entries),
		ByType: report.SortedTypeCounts(report.TypeCounts(entries)),
		Daily:  report.DailyCounts(entries, s.core.Now(), days),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	entries, err := s.core.Entries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	b, err := report.Exporter{BOM: true}.Export(entries)
	if errors.Is(err, report.ErrNoDataToExport) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.ExportFileName(s.core.Now())))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
}

func intParam(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return n, nil
}

// Package adminapi serves the publish scheduler's admin surface over HTTP.
//
// The API is unauthenticated; bind it to loopback or put it behind the host's
// auth.
package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"draftpub/internal/publisher"
	"draftpub/internal/publog"
	"draftpub/internal/scheduler"
	"draftpub/internal/settings"
	logx "draftpub/pkg/logx"
)

// Core is what the admin API drives.
type Core interface {
	State() scheduler.State
	StartSchedule(ctx context.Context) (scheduler.State, error)
	StopSchedule(ctx context.Context) (scheduler.State, error)

	Settings(ctx context.Context) (settings.Config, error)
	UpdateSettings(ctx context.Context, cfg settings.Config) (scheduler.State, error)

	// PublishNow runs the executor once. A non-empty forcedType replaces the
	// configured type filter for this run.
	PublishNow(ctx context.Context, forcedType string) ([]publisher.Result, error)

	Entries(ctx context.Context) ([]publog.Entry, error)
	ClearLog(ctx context.Context) error

	// LastError returns the transient run error, consuming it.
	LastError() (string, bool)
	Now() time.Time
}

type Server struct {
	core    Core
	log     logx.Logger
	publish *rate.Limiter
	events  EventSource
	pprof   bool
	router  chi.Router
}

type Option func(*Server)

func WithLogger(log logx.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithPublishRate limits manual publish requests per minute. 0 disables the
// limit.
func WithPublishRate(perMinute int) Option {
	return func(s *Server) {
		if perMinute <= 0 {
			s.publish = nil
			return
		}
		s.publish = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
}

// WithEvents enables GET /events.
func WithEvents(src EventSource) Option {
	return func(s *Server) { s.events = src }
}

// WithProfiler mounts net/http/pprof under /debug.
func WithProfiler(enabled bool) Option {
	return func(s *Server) { s.pprof = enabled }
}

func New(core Core, opts ...Option) *Server {
	s := &Server{core: core}
	WithPublishRate(6)(s)
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	s.log = s.log.With(logx.String("comp", "adminapi"))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/status", s.handleStatus)
	r.Post("/start", s.handleStart)
	r.Post("/stop", s.handleStop)
	r.Get("/settings", s.handleGetSettings)
	r.Put("/settings", s.handlePutSettings)
	r.Post("/publish", s.handlePublish)
	r.Get("/log", s.handleLog)
	r.Delete("/log", s.handleClearLog)
	r.Get("/stats", s.handleStats)
	r.Get("/export.csv", s.handleExport)
	if s.events != nil {
		r.Get("/events", s.handleEvents)
	}
	if s.pprof {
		r.Mount("/debug", middleware.Profiler())
	}
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("admin api listening", logx.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			logx.String("method", r.Method),
			logx.String("path", r.URL.Path),
			logx.Int("status", ww.Status()),
			logx.Duration("took", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/suykerbuyk/bargain-timeline/internal/dataset"
	"github.com/suykerbuyk/bargain-timeline/internal/metrics"
)

// BuildFunc produces a fresh dataset. It is called at startup and on every reload.
type BuildFunc func(ctx context.Context) (*dataset.Result, error)

// Server answers timeline queries over HTTP. The current dataset is
// replaced whole on reload; requests in flight keep the one they started with.
type Server struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	build   BuildFunc
	current atomic.Pointer[dataset.Result]
	router  chi.Router
}

// New creates a Server. Call Reload before serving.
func New(build BuildFunc, m *metrics.Metrics, log *slog.Logger) *Server {
	s := &Server{log: log, metrics: m, build: build}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", m.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/intervals", s.handleIntervals)
		r.Get("/changes", s.handleChanges)
		r.Get("/recent", s.handleRecent)
		r.Get("/summary", s.handleSummary)
		r.Get("/articles", s.handleArticles)
		r.Get("/groups", s.handleGroups)
		r.Get("/ticks", s.handleTicks)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Current returns the dataset being served, or nil before the first Reload.
func (s *Server) Current() *dataset.Result { return s.current.Load() }

// Reload rebuilds the dataset. On failure the previous dataset stays in service.
func (s *Server) Reload(ctx context.Context) error {
	start := time.Now()
	res, err := s.build(ctx)
	if err != nil {
		s.metrics.RebuildFailed()
		s.log.Error("rebuild failed, keeping previous timeline", slog.Any("err", err))
		return err
	}

	for _, m := range res.Malformed {
		s.log.Warn("skipped malformed row", slog.String("source", res.Source), slog.Any("err", m))
	}

	perGroup := make(map[string]int)
	for _, iv := range res.Timeline.Intervals() {
		perGroup[string(iv.Group)]++
	}
	s.metrics.Rebuilt(time.Now(), len(res.Malformed), perGroup)

	s.current.Store(res)
	s.log.Info("timeline rebuilt",
		slog.String("build_id", res.Timeline.ID()),
		slog.Int("events", res.Timeline.Len()),
		slog.Int("malformed", len(res.Malformed)),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api server starting", slog.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.Observe(route, status, time.Since(start))
	})
}

// Package server 把 recommender 的查询接口暴露为 HTTP/JSON 服务。
//
// 路由：
//
//	GET  /healthz
//	GET  /metrics
//	GET  /v1/tracks/search?name=&artist=&limit=
//	GET  /v1/tracks/{id}/recommendations?n=&diversity=&backfill=&min_popularity=&year_from=&year_to=&expr=
//	POST /v1/recommendations/by-features
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rushteam/songrec/pkg/logging"
	"github.com/rushteam/songrec/recommender"
)

// DefaultMaxLimit 单次请求允许的最大 n / limit
const DefaultMaxLimit = 500

// Server HTTP 服务
type Server struct {
	rec      *recommender.Recommender
	gatherer prometheus.Gatherer
	maxLimit int
	log      zerolog.Logger
}

// Option 服务选项
type Option func(*Server)

// WithGatherer 指定 /metrics 输出的指标来源（默认 prometheus.DefaultGatherer）。
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithMaxLimit 指定 n / limit 的上限。
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// New 创建服务
func New(rec *recommender.Recommender, opts ...Option) *Server {
	s := &Server{
		rec:      rec,
		gatherer: prometheus.DefaultGatherer,
		maxLimit: DefaultMaxLimit,
		log:      logging.With("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler 返回路由
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/tracks/search", s.searchTracks)
		r.Get("/tracks/{id}/recommendations", s.recommendations)
		r.Post("/recommendations/by-features", s.recommendationsByFeatures)
	})
	return r
}

// ListenAndServe 启动服务，ctx 取消后在 shutdownTimeout 内优雅退出。
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info().Msg("http server stopped")
	return nil
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

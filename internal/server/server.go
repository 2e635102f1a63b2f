// Package server exposes the ETL controls and the market data over HTTP.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/amir-mohammad-HP/sugarnexus/internal/market"
	"github.com/amir-mohammad-HP/sugarnexus/internal/scheduler"
	"github.com/amir-mohammad-HP/sugarnexus/internal/types"
	"github.com/amir-mohammad-HP/sugarnexus/pkg/logger"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
)

// Jobs is the slice of the runner the HTTP layer drives.
type Jobs interface {
	TriggerNow(ctx context.Context, id string) (scheduler.JobResult, error)
	Status(ctx context.Context, id string) (scheduler.JobStatus, error)
	Pause(id string) error
	Resume(id string) error
}

// MarketReader serves the query endpoints.
type MarketReader interface {
	List(ctx context.Context, q market.ListQuery) ([]market.MarketDaily, error)
	Get(ctx context.Context, date time.Time) (market.MarketDaily, error)
	Latest(ctx context.Context) (market.MarketDaily, error)
}

// Options carries the server's collaborators.
type Options struct {
	Jobs     Jobs
	JobID    string
	Market   MarketReader
	Gatherer prometheus.Gatherer
	Project  string
	Version  string
}

type Server struct {
	cfg     types.HTTPConfig
	opts    Options
	logger  logger.Logger
	handler http.Handler
	srv     *http.Server
	ln      net.Listener
}

func New(cfg types.HTTPConfig, opts Options, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNullLogger()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{cfg: cfg, opts: opts, logger: log}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	s.handler = c.Handler(s.buildRouter())
	return s
}

// Handler returns the full handler chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listener and serves in the background. Bind errors are
// returned; serve errors after that are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Bind)
	if err != nil {
		return errors.Wrapf(err, "server: listen on %s", s.cfg.Bind)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server | serve failed: %v", err)
		}
	}()
	s.logger.WithField("addr", ln.Addr().String()).Info("server | listening")
	return nil
}

// Addr is the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown drains in-flight requests, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return errors.Wrap(s.srv.Shutdown(ctx), "server: shutdown")
}

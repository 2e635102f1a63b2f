package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleHealth())
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/etl", func(r chi.Router) {
		r.Post("/trigger", s.handleTrigger())
		r.Get("/status", s.handleStatus())
		r.Post("/pause", s.handleToggle(false))
		r.Post("/resume", s.handleToggle(true))
	})

	r.Route("/api/market", func(r chi.Router) {
		r.Get("/daily", s.handleListDaily())
		r.Get("/daily/latest", s.handleLatest())
		r.Get("/daily/{record_date}", s.handleGetDaily())
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithFields(map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("server | request")
	})
}

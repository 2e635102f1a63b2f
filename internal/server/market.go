package server

import (
	"net/http"
	"strconv"

	"github.com/amir-mohammad-HP/sugarnexus/internal/market"
	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
)

// handleListDaily serves ?start_date=&end_date=&limit=, newest first.
func (s *Server) handleListDaily() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := market.ListQuery{Limit: market.DefaultLimit}
		params := r.URL.Query()

		if v := params.Get("start_date"); v != "" {
			d, err := market.ParseDate(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			q.Start = d
		}
		if v := params.Get("end_date"); v != "" {
			d, err := market.ParseDate(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			q.End = d
		}
		if v := params.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > market.MaxLimit {
				writeError(w, http.StatusBadRequest,
					errors.Newf("limit must be an integer between 1 and %d", market.MaxLimit))
				return
			}
			q.Limit = n
		}

		rows, err := s.opts.Market.List(r.Context(), q)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func (s *Server) handleGetDaily() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := market.ParseDate(chi.URLParam(r, "record_date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		row, err := s.opts.Market.Get(r.Context(), d)
		s.writeRow(w, row, err)
	}
}

func (s *Server) handleLatest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row, err := s.opts.Market.Latest(r.Context())
		s.writeRow(w, row, err)
	}
}

func (s *Server) writeRow(w http.ResponseWriter, row market.MarketDaily, err error) {
	switch {
	case errors.Is(err, market.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, row)
	}
}

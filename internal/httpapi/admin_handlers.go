package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Portico/internal/portico/service"
	"github.com/BrandonDHaskell/Portico/internal/portico/store"
	"github.com/BrandonDHaskell/Portico/internal/portico/types"
)

// ── Sweep ────────────────────────────────────────────────────────────────────

// handleSweep runs one expiration pass.  200 means every user was processed,
// 500 carries the report with per-user failures, 503 means the pass could
// not start.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	report, err := s.sweeper.Sweep(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("sweep failed")
		writeError(w, http.StatusServiceUnavailable, "sweep_failed", err.Error())
		return
	}

	status := http.StatusOK
	if !report.OK() {
		status = http.StatusInternalServerError
	}

	if wantsProtobuf(r) {
		msg, err := structpb.NewStruct(report.Map())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "encode report")
			return
		}
		writeProto(w, status, msg)
		return
	}
	writeJSON(w, status, report)
}

// ── Properties ───────────────────────────────────────────────────────────────

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	props, err := s.admin.ListProperties(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, props)
}

func (s *Server) handlePutProperty(w http.ResponseWriter, r *http.Request) {
	var req types.PropertyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if n := chi.URLParam(r, "number"); n != "" {
		req.Number = n
	}

	view, err := s.admin.PutProperty(r.Context(), chi.URLParam(r, "userID"), req)
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	err := s.admin.DeleteProperty(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "number"))
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Check-ins ────────────────────────────────────────────────────────────────

// handleQueryCheckIns accepts order, limit, min, max (RFC 3339 or epoch
// milliseconds) and q (comma-separated keywords).
func (s *Server) handleQueryCheckIns(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := service.CheckInQuery{Order: qs.Get("order")}

	if v := qs.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		q.Limit = n
	}
	var err error
	if q.MinTime, err = parseTimeParam(qs.Get("min")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_min", err.Error())
		return
	}
	if q.MaxTime, err = parseTimeParam(qs.Get("max")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_max", err.Error())
		return
	}
	if v := qs.Get("q"); v != "" {
		q.Keywords = strings.Split(v, ",")
	}

	views, err := s.admin.QueryCheckIns(r.Context(), chi.URLParam(r, "userID"), q)
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateCheckIn(w http.ResponseWriter, r *http.Request) {
	var req types.CheckInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	view, err := s.admin.CreateCheckIn(r.Context(), chi.URLParam(r, "userID"), req)
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleEditCheckIn(w http.ResponseWriter, r *http.Request) {
	var req types.CheckInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	view, err := s.admin.EditCheckIn(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id"), req)
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteCheckIn(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.DeleteCheckIn(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id")); err != nil {
		s.adminError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── History ──────────────────────────────────────────────────────────────────

func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	calls, err := s.admin.ListCalls(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

func (s *Server) handleCounters(w http.ResponseWriter, r *http.Request) {
	c, err := s.admin.Counters(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) adminError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidUserID):
		writeError(w, http.StatusBadRequest, "invalid_user_id", err.Error())
	case errors.Is(err, service.ErrInvalidNumber):
		writeError(w, http.StatusBadRequest, "invalid_number", err.Error())
	case errors.Is(err, service.ErrInvalidCheckIn):
		writeError(w, http.StatusBadRequest, "invalid_check_in", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "no such record")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("admin request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func parseTimeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Parse(time.RFC3339, v)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lox/robobot/internal/bot"
	"github.com/lox/robobot/internal/snapshot"
	"github.com/lox/robobot/internal/stats"
)

const maxBodyBytes = 1 << 20

// decideResponse is a decision plus how long it took to make.
type decideResponse struct {
	*bot.Result
	LatencyMS float64 `json:"latency_ms"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "OK")
}

// handleForm is the robopoker HTTP bot contract: form fields name, pocket,
// actions and state in, the bare action name out.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := bot.Request{
		Name:    r.Form.Get("name"),
		Hole:    r.Form.Get("pocket"),
		Actions: r.Form.Get("actions"),
		State:   r.Form.Get("state"),
	}
	res, err := s.agent.Decide(r.Context(), req)
	if err != nil {
		s.logFailure(r, req, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, res.Action)
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req bot.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err)
		return
	}

	start := s.clock.Now()
	res, err := s.agent.Decide(r.Context(), req)
	if err != nil {
		s.logFailure(r, req, err)
		writeError(w, statusFor(err), codeFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, decideResponse{
		Result:    res,
		LatencyMS: float64(s.clock.Since(start).Microseconds()) / 1000,
	})
}

// handleRecord adds a completed hand's final snapshot to the ledger.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}

	snap, err := snapshot.Parse(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed_snapshot", err)
		return
	}
	totals, err := s.ledger.Record(snap)
	switch {
	case errors.Is(err, stats.ErrNoPlayers):
		writeError(w, http.StatusBadRequest, "no_players", err)
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to record hand")
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleStandings(w http.ResponseWriter, _ *http.Request) {
	standings, err := s.ledger.Standings()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read standings")
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (s *Server) logFailure(r *http.Request, req bot.Request, err error) {
	event := s.logger.Warn()
	if !bot.IsFatal(err) {
		event = s.logger.Error()
	}
	event.Err(err).
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("name", req.Name).
		Str("hole", req.Hole).
		Str("actions", strings.Join(strings.Fields(req.Actions), " ")).
		Msg("Decision failed")
}

func statusFor(err error) int {
	switch {
	case bot.IsFatal(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{Code: code, Error: fmt.Sprint(err)})
}

// Package web exposes the board over a small JSON API. The public
// endpoint serves the customer view; admin endpoints mutate state and
// are gated by the shop PIN.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"machiai/internal/board"
	"machiai/internal/schedule"
)

// pinHeader carries the admin PIN on gated endpoints.
const pinHeader = "X-Admin-Pin"

// Server wires the board operations to HTTP routes.
type Server struct {
	board  *board.Board
	logger zerolog.Logger
}

func New(b *board.Board, logger zerolog.Logger) *Server {
	return &Server{board: b, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/board", s.handleBoard)

	mux.HandleFunc("GET /api/v1/admin/board", s.admin(s.handleAdminBoard))
	mux.HandleFunc("POST /api/v1/admin/queue/increment", s.admin(s.handleQueueIncrement))
	mux.HandleFunc("POST /api/v1/admin/queue/decrement", s.admin(s.handleQueueDecrement))
	mux.HandleFunc("PUT /api/v1/admin/queue", s.admin(s.handleQueueSet))
	mux.HandleFunc("POST /api/v1/admin/seats/{seat}/start", s.admin(s.handleSeatStart))
	mux.HandleFunc("POST /api/v1/admin/seats/{seat}/end", s.admin(s.handleSeatEnd))
	mux.HandleFunc("PUT /api/v1/admin/closure", s.admin(s.handleClosure))
	mux.HandleFunc("POST /api/v1/admin/special-dates", s.admin(s.handleSpecialDateAdd))
	mux.HandleFunc("DELETE /api/v1/admin/special-dates/{date}", s.admin(s.handleSpecialDateRemove))
	mux.HandleFunc("PUT /api/v1/admin/pin", s.admin(s.handlePINChange))

	return mux
}

// Run serves the API until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// admin wraps a handler with the PIN check.
func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.board.VerifyPIN(r.Context(), r.Header.Get(pinHeader)) {
			s.writeError(w, http.StatusUnauthorized, "wrong PIN")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	v, err := s.board.CustomerView(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "board unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleAdminBoard(w http.ResponseWriter, r *http.Request) {
	v, err := s.board.AdminView(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "board unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleQueueIncrement(w http.ResponseWriter, r *http.Request) {
	s.applyMutation(w, r, s.board.IncrementQueue(r.Context()))
}

func (s *Server) handleQueueDecrement(w http.ResponseWriter, r *http.Request) {
	s.applyMutation(w, r, s.board.DecrementQueue(r.Context()))
}

func (s *Server) handleQueueSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	s.applyMutation(w, r, s.board.SetQueueCount(r.Context(), req.Count))
}

func (s *Server) handleSeatStart(w http.ResponseWriter, r *http.Request) {
	seat, err := strconv.Atoi(r.PathValue("seat"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed seat index")
		return
	}
	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Kind == "" {
		s.writeError(w, http.StatusBadRequest, "service kind required")
		return
	}
	s.applyMutation(w, r, s.board.StartService(r.Context(), seat, req.Kind))
}

func (s *Server) handleSeatEnd(w http.ResponseWriter, r *http.Request) {
	seat, err := strconv.Atoi(r.PathValue("seat"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed seat index")
		return
	}
	s.applyMutation(w, r, s.board.EndService(r.Context(), seat))
}

func (s *Server) handleClosure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Closed bool `json:"closed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	s.applyMutation(w, r, s.board.SetTemporaryClosure(r.Context(), req.Closed))
}

func (s *Server) handleSpecialDateAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date   string `json:"date"`
		Closed bool   `json:"closed"`
		Open   string `json:"open"`
		Close  string `json:"close"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	d, err := schedule.ParseDate(req.Date)
	if err != nil || d.IsZero() {
		s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	ov := schedule.Override{Closed: req.Closed, Open: req.Open, Close: req.Close, Note: req.Note}
	s.applyMutation(w, r, s.board.AddSpecialDate(r.Context(), d, ov))
}

func (s *Server) handleSpecialDateRemove(w http.ResponseWriter, r *http.Request) {
	d, err := schedule.ParseDate(r.PathValue("date"))
	if err != nil || d.IsZero() {
		s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if err := s.board.RemoveSpecialDate(r.Context(), d); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeOK(w)
}

func (s *Server) handlePINChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current string `json:"current"`
		Next    string `json:"next"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	err := s.board.ChangePIN(r.Context(), req.Current, req.Next)
	switch {
	case errors.Is(err, board.ErrWrongPIN):
		s.writeError(w, http.StatusForbidden, err.Error())
	case err != nil:
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeOK(w)
	}
}

// applyMutation maps board errors to HTTP statuses and replies with the
// refreshed admin view on success.
func (s *Server) applyMutation(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		v, verr := s.board.AdminView(r.Context())
		if verr != nil {
			s.writeOK(w)
			return
		}
		s.writeJSON(w, http.StatusOK, v)
	case errors.Is(err, board.ErrQueueFull),
		errors.Is(err, board.ErrSeatBusy),
		errors.Is(err, board.ErrSeatEmpty):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, board.ErrBadSeat):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) writeOK(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

package simulator

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/luxsync-io/luxsync/pkg/lamp"
	"github.com/luxsync-io/luxsync/pkg/log"
)

// Server exposes a Bank over the lamp controller HTTP API.
type Server struct {
	server *http.Server
	bank   *Bank
}

func NewServer(addr string, bank *Bank) *Server {
	s := &Server{bank: bank}

	r := mux.NewRouter()
	r.HandleFunc("/lamp/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/lamp/on", s.handleSwitch(true)).Methods(http.MethodPost)
	r.HandleFunc("/lamp/off", s.handleSwitch(false)).Methods(http.MethodPost)
	r.HandleFunc("/lamp/color", s.handleColor).Methods(http.MethodPost)
	r.HandleFunc("/lamp/running", s.handleRunning).Methods(http.MethodPost)
	r.HandleFunc("/lamp/all/on", s.handleAll(true)).Methods(http.MethodGet)
	r.HandleFunc("/lamp/all/off", s.handleAll(false)).Methods(http.MethodGet)

	s.server = &http.Server{Addr: addr, Handler: r}
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting simulator HTTP server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bank.Status())
}

func (s *Server) handleSwitch(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ID int `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if err := s.bank.Switch(r.Context(), body.ID, on); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *Server) handleColor(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID    int      `json:"id"`
		Color lamp.RGB `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.bank.SetColor(body.ID, body.Color); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleRunning(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enable   bool     `json:"enable"`
		Color    lamp.RGB `json:"color"`
		Interval int      `json:"interval"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if body.Enable && body.Interval <= 0 {
		writeError(w, http.StatusBadRequest, "interval must be positive")
		return
	}
	s.bank.SetRunning(body.Enable)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAll(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.bank.SwitchAll(r.Context(), on)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, lamp.ErrorResponse{Error: msg})
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luxsync-io/luxsync/internal/dispatch"
	"github.com/luxsync-io/luxsync/internal/liveness"
	"github.com/luxsync-io/luxsync/internal/registry"
	"github.com/luxsync-io/luxsync/internal/schedule"
	"github.com/luxsync-io/luxsync/internal/weather"
	"github.com/luxsync-io/luxsync/pkg/lamp"
	"github.com/luxsync-io/luxsync/pkg/log"
	"github.com/luxsync-io/luxsync/pkg/options"
)

// RefRequest is the wire form of a device reference.
type RefRequest struct {
	Kind string `json:"kind"` // "lamp" or "mock"
	ID   int    `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ToggleAllRequest selects the target state for every lamp.
type ToggleAllRequest struct {
	On bool `json:"on"`
}

// ColorRequest recolors one lamp.
type ColorRequest struct {
	ID  int    `json:"id"`
	Hex string `json:"hex"`
}

// RunningRequest drives the running-light animation.
type RunningRequest struct {
	Enable     bool `json:"enable"`
	IntervalMs int  `json:"intervalMs"`
}

// ScheduleRequest saves one lamp's schedule.
type ScheduleRequest struct {
	ID  int    `json:"id"`
	On  string `json:"on"`
	Off string `json:"off"`
}

// StateResponse is the dashboard snapshot luxctl renders.
type StateResponse struct {
	DeviceOnline bool             `json:"deviceOnline"`
	LastSeen     string           `json:"lastSeen,omitempty"`
	Lamps        []LampResponse   `json:"lamps"`
	Summary      registry.Summary `json:"summary"`
	Weather      weather.Report   `json:"weather"`
}

// LampResponse is one view entry on the wire.
type LampResponse struct {
	Ref         string    `json:"ref"`
	Name        string    `json:"name"`
	Room        string    `json:"room"`
	IsOn        bool      `json:"isOn"`
	Color       *lamp.RGB `json:"currentColor,omitempty"`
	HasSchedule bool      `json:"hasSchedule"`
}

// Server is the agent's HTTP surface: health and metrics probes plus the
// small control API the CLI talks to.
type Server struct {
	server *http.Server

	registry   *registry.Registry
	monitor    *liveness.Monitor
	dispatcher dispatch.Dispatcher
	schedules  *schedule.Store
	weather    *weather.Client
}

func NewServer(opts *options.HttpOptions, a *Agent) *Server {
	s := &Server{
		registry:   a.registry,
		monitor:    a.monitor,
		dispatcher: a.dispatcher,
		schedules:  a.schedules,
		weather:    a.weather,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/toggle", s.handleToggle).Methods(http.MethodPost)
	api.HandleFunc("/toggle-all", s.handleToggleAll).Methods(http.MethodPost)
	api.HandleFunc("/color", s.handleColor).Methods(http.MethodPost)
	api.HandleFunc("/running", s.handleRunning).Methods(http.MethodPost)
	api.HandleFunc("/schedule", s.handleSaveSchedule).Methods(http.MethodPost)
	api.HandleFunc("/schedule/{id:[0-9]+}", s.handleGetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/schedule/{id:[0-9]+}", s.handleDeleteSchedule).Methods(http.MethodDelete)

	s.server = &http.Server{Addr: opts.Addr, Handler: r}
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting HTTP server", "addr", s.server.Addr)

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

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	out := StateResponse{
		DeviceOnline: s.monitor.Online(),
		Summary:      s.registry.Summarize(),
		Weather:      s.weather.Latest(),
	}
	if last := s.monitor.LastSeen(); !last.IsZero() {
		out.LastSeen = last.Format(time.RFC3339)
	}
	for _, v := range s.registry.Snapshot() {
		out.Lamps = append(out.Lamps, LampResponse{
			Ref:         v.Ref.String(),
			Name:        v.Name,
			Room:        v.Room,
			IsOn:        v.IsOn,
			Color:       v.Color,
			HasSchedule: v.HasSchedule,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var body RefRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	var ref registry.DeviceRef
	switch body.Kind {
	case "lamp":
		ref = registry.LampRef(body.ID)
	case "mock":
		ref = registry.MockRef(body.Name)
	default:
		s.writeError(w, http.StatusBadRequest, "kind must be lamp or mock")
		return
	}
	s.finish(w, s.dispatcher.Toggle(r.Context(), ref))
}

func (s *Server) handleToggleAll(w http.ResponseWriter, r *http.Request) {
	var body ToggleAllRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	s.finish(w, s.dispatcher.ToggleAll(r.Context(), body.On))
}

func (s *Server) handleColor(w http.ResponseWriter, r *http.Request) {
	var body ColorRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	s.finish(w, s.dispatcher.SetColor(r.Context(), body.ID, body.Hex))
}

func (s *Server) handleRunning(w http.ResponseWriter, r *http.Request) {
	var body RunningRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	interval := time.Duration(body.IntervalMs) * time.Millisecond
	s.finish(w, s.dispatcher.SetRunning(r.Context(), body.Enable, interval))
}

func (s *Server) handleSaveSchedule(w http.ResponseWriter, r *http.Request) {
	var body ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	on, err1 := time.Parse("15:04", body.On)
	off, err2 := time.Parse("15:04", body.Off)
	if body.On == "" || body.Off == "" || err1 != nil || err2 != nil {
		s.writeError(w, http.StatusBadRequest, schedule.ErrIncomplete.Error())
		return
	}
	s.finish(w, s.dispatcher.SetSchedule(r.Context(), body.ID, on, off))
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	sched, err := s.schedules.Get(id)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if sched == nil {
		s.writeError(w, http.StatusNotFound, "no schedule")
		return
	}
	s.writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	s.finish(w, s.dispatcher.DeleteSchedule(r.Context(), id))
}

// finish maps a dispatcher outcome onto the wire. Commands confirm
// through the subscription, so success carries no state.
func (s *Server) finish(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, dispatch.ErrNotSupported):
		s.writeError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, dispatch.ErrUnknownLamp):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrIncomplete):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, lamp.ErrorResponse{Error: msg})
}

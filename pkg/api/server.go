package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/scriptgen/params"
	"github.com/uhyunpark/scriptgen/pkg/app/script"
	"github.com/uhyunpark/scriptgen/pkg/app/workload"
	"github.com/uhyunpark/scriptgen/pkg/storage"
)

// RunStore is the read side of the manifest store.
type RunStore interface {
	GetManifest(id string) (*storage.Manifest, error)
	ListManifests(limit int) ([]*storage.Manifest, error)
}

// Server handles REST API and WebSocket connections
type Server struct {
	app      *workload.App
	runs     RunStore
	profiles map[string]params.Profile
	journal  *storage.Journal
	origins  []string
	logger   *zap.SugaredLogger

	router  *mux.Router
	hub     *Hub
	hubOnce sync.Once
}

type ServerOption func(*Server)

func WithRunStore(s RunStore) ServerOption { return func(srv *Server) { srv.runs = s } }

func WithJournal(j *storage.Journal) ServerOption { return func(srv *Server) { srv.journal = j } }

func WithAllowedOrigins(origins []string) ServerOption {
	return func(srv *Server) { srv.origins = origins }
}

func WithLogger(l *zap.SugaredLogger) ServerOption { return func(srv *Server) { srv.logger = l } }

// NewServer creates a new API server
func NewServer(app *workload.App, profiles map[string]params.Profile, opts ...ServerOption) *Server {
	s := &Server{
		app:      app,
		profiles: profiles,
		router:   mux.NewRouter(),
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.logger)

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/instruments", s.handleGetInstruments).Methods("GET")
	api.HandleFunc("/profiles", s.handleGetProfiles).Methods("GET")

	api.HandleFunc("/scripts", s.handleGenerate).Methods("POST")

	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/runs/{id}/replay", s.handleReplay).Methods("POST")

	// WebSocket endpoints
	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/ws/scripts", s.handleStreamScript)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the routed, CORS-wrapped handler and starts the WebSocket hub.
func (s *Server) Handler() http.Handler {
	s.hubOnce.Do(func() { go s.hub.Run() })

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("api_server_listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetInstruments(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, script.Instruments)
}

func (s *Server) handleGetProfiles(w http.ResponseWriter, r *http.Request) {
	names := params.ProfileNames(s.profiles)
	response := make([]ProfileInfo, len(names))
	for i, name := range names {
		p := s.profiles[name]
		response[i] = ProfileInfo{
			Name:          p.Name,
			Description:   p.Description,
			Clients:       p.Params.Clients,
			Transactions:  p.Params.Transactions,
			Instruments:   p.Params.NumInstruments,
			Cancel:        p.Params.Cancel,
			RoundNumbers:  p.Params.RoundNumbers,
			SpecialOpProb: p.Params.SpecialOpProb,
		}
	}
	respondJSON(w, response)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	res, err := s.generate(r.Context(), req)
	if err != nil {
		s.respondGenerateError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Run-Id", res.Manifest.ID)
		if _, err := w.Write(res.Data); err != nil {
			s.logger.Debugw("script_response_write_failed", "run_id", res.Manifest.ID, "err", err)
		}
		return
	}

	response := GenerateResponse{Manifest: res.Manifest}
	if r.URL.Query().Get("include_script") != "false" {
		response.Script = string(res.Data)
	}
	respondJSON(w, response)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "manifest store disabled", "")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = n
	}

	runs, err := s.runs.ListManifests(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list runs", err.Error())
		return
	}
	if runs == nil {
		runs = []*storage.Manifest{}
	}
	respondJSON(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "manifest store disabled", "")
		return
	}

	id := mux.Vars(r)["id"]
	m, err := s.runs.GetManifest(id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "run not found", id)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load run", err.Error())
		return
	}
	respondJSON(w, m)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req ReplayRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	res, err := s.app.Replay(r.Context(), id, req.Name)
	switch {
	case errors.Is(err, script.ErrInvalidConfiguration):
		respondError(w, http.StatusBadRequest, "invalid configuration", err.Error())
		return
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "run not found", id)
		return
	case errors.Is(err, workload.ErrNotReplayable):
		respondError(w, http.StatusConflict, "run not replayable", err.Error())
		return
	case errors.Is(err, workload.ErrNoStore):
		respondError(w, http.StatusServiceUnavailable, "manifest store disabled", "")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "replay failed", err.Error())
		return
	}

	s.logEvent("SCRIPT_REPLAY", map[string]any{"run_id": id, "name": req.Name})
	respondJSON(w, GenerateResponse{Manifest: res.Manifest, Script: string(res.Data)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"status":     "ok",
		"scope":      s.app.Scope(),
		"ws_clients": s.hub.ClientCount(),
	})
}

// generate runs a request through the app, journals it and notifies
// subscribers of the "runs" channel.
func (s *Server) generate(ctx context.Context, req GenerateRequest) (*workload.Result, error) {
	p, err := req.resolve(s.profiles)
	if err != nil {
		return nil, err
	}
	res, err := s.app.Generate(ctx, workload.Request{Name: req.Name, Profile: req.Profile, Params: p})
	if err != nil {
		return nil, err
	}

	s.logEvent("SCRIPT_GENERATE", map[string]any{
		"run_id": res.Manifest.ID,
		"name":   res.Manifest.Name,
		"digest": res.Manifest.Digest,
		"orders": res.Manifest.Stats.Orders,
	})
	s.hub.BroadcastToChannel("runs", RunEvent{Type: "run", Manifest: res.Manifest})
	return res, nil
}

func (s *Server) respondGenerateError(w http.ResponseWriter, err error) {
	if errors.Is(err, script.ErrInvalidConfiguration) {
		respondError(w, http.StatusBadRequest, "invalid configuration", err.Error())
		return
	}
	s.logger.Errorw("generate_failed", "err", err)
	respondError(w, http.StatusInternalServerError, "generation failed", err.Error())
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// logEvent writes an event to the journal, if one is configured
func (s *Server) logEvent(event string, data map[string]any) {
	if err := s.journal.Append(event, data); err != nil {
		s.logger.Warnw("journal_append_failed", "event", event, "err", err)
	}
}

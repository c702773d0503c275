// Package api provides the HTTP API for observing and steering the swarm.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/belief-swarm/internal/agents"
	"github.com/talgya/belief-swarm/internal/engine"
	"github.com/talgya/belief-swarm/internal/evolution"
	"github.com/talgya/belief-swarm/internal/persistence"
)

const maxSSEConns = 4

// Server serves the swarm state over HTTP.
type Server struct {
	Sim            *engine.Simulation
	Eng            *engine.Engine
	DB             *persistence.DB // Optional; snapshot and stored history need it
	Port           int
	Seed           int64
	AdminKey       string // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey       string // Bearer token for the SSE stream. Empty = streaming disabled.
	AllowedOrigins []string

	// Limits the agents listing, the heaviest read.
	AgentsLimiter *RateLimiter

	started  time.Time
	sseConns int32

	runMu sync.Mutex
	runID string
}

// SetRunID records the persistence run new saves belong to.
func (s *Server) SetRunID(id string) {
	s.runMu.Lock()
	s.runID = id
	s.runMu.Unlock()
}

// RunID returns the current persistence run.
func (s *Server) RunID() string {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.runID
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	if s.AgentsLimiter == nil {
		s.AgentsLimiter = NewRateLimiter(120, time.Minute)
	}

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("GET /api/v1/agents", RateLimitMiddleware(s.AgentsLimiter, s.handleAgents))
	mux.HandleFunc("GET /api/v1/agent/{id}", s.handleAgent)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/frames", s.handleFrames)
	mux.HandleFunc("GET /api/v1/speed", s.handleSpeed)

	// SSE streaming endpoint (requires relay key).
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	// Admin endpoints.
	mux.HandleFunc("POST /api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/reset", s.adminOnly(s.handleReset))
	mux.HandleFunc("POST /api/v1/snapshot", s.adminOnly(s.handleSnapshot))
	mux.HandleFunc("POST /api/v1/record", s.adminOnly(s.handleRecord))

	return corsMiddleware(s.AllowedOrigins, mux)
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request, key string) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == key
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no SWARM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !bearer(r, s.AdminKey) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.CurrentStats()
	speed := s.Eng.Speed()
	writeJSON(w, map[string]any{
		"name":       "belief-swarm",
		"tick":       s.Sim.CurrentTick(),
		"mode":       st.Strategy,
		"speed":      speed,
		"paused":     speed == 0,
		"recording":  s.Sim.IsRecording(),
		"population": st.Population,
		"generation": st.Generation,
		"run_id":     s.RunID(),
		"started":    humanize.Time(s.started),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.CurrentStats())
}

// handleStatsHistory serves the in-memory type-balance series, or the
// stored stats samples of the current run with ?stored=true.
func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if stored, _ := strconv.ParseBool(r.URL.Query().Get("stored")); !stored {
		writeJSON(w, s.Sim.HistorySamples())
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	limit := queryInt(r, "limit", 100, 1000)
	pts, err := s.DB.RecentStats(s.RunID(), limit)
	if err != nil {
		slog.Error("stats history query failed", "error", err)
		// Return empty array instead of error; the run may not have saved yet.
		writeJSON(w, []persistence.StatsPoint{})
		return
	}
	if pts == nil {
		pts = []persistence.StatsPoint{}
	}
	writeJSON(w, pts)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	var keep func(*agents.Agent) bool
	if name := r.URL.Query().Get("type"); name != "" {
		t, err := agents.ParseType(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		keep = func(a *agents.Agent) bool { return a.Type == t }
	}

	views := s.Sim.AgentViews(keep)
	if limit := queryInt(r, "limit", 0, len(views)); limit > 0 {
		views = views[:limit]
	}
	writeJSON(w, views)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	v, ok := s.Sim.AgentByID(agents.AgentID(id))
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 500)
	events := s.Sim.RecentEvents(1 << 20)

	// Optional category filter.
	if cat := r.URL.Query().Get("category"); cat != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == cat {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := max(len(events)-limit, 0)
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events[start:])
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	from := uint64(0)
	to := uint64(1<<63 - 1) // Max int64; the sqlite driver rejects uint64 with the high bit set.
	if f, err := strconv.ParseUint(r.URL.Query().Get("from"), 10, 64); err == nil {
		from = f
	}
	if t, err := strconv.ParseUint(r.URL.Query().Get("to"), 10, 64); err == nil && t < to {
		to = t
	}

	frames, err := s.DB.LoadFrames(s.RunID(), from, to)
	if err != nil {
		slog.Error("frames query failed", "error", err)
		http.Error(w, "frames query failed", http.StatusInternalServerError)
		return
	}
	if frames == nil {
		frames = []engine.Frame{}
	}
	writeJSON(w, frames)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 100 {
			http.Error(w, "speed must be 0-100", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		s.Sim.Emit("control", fmt.Sprintf("speed set to %gx", req.Speed))
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// resetRequest overrides parts of the running configuration. Omitted fields
// keep their current values.
type resetRequest struct {
	Mode            *string  `json:"mode"`
	Population      *int     `json:"population"`
	LiarsPercent    *float64 `json:"liars_percent"`
	StubbornPercent *float64 `json:"stubborn_percent"`
	ProximityRadius *float64 `json:"proximity_radius"`
	InteractionTime *int     `json:"interaction_time"`
}

func (req resetRequest) apply(cfg engine.Config) (engine.Config, error) {
	if req.Mode != nil {
		k, err := evolution.ParseKind(*req.Mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = k
	}
	if req.Population != nil {
		if *req.Population < 1 || *req.Population > 2000 {
			return cfg, fmt.Errorf("population must be 1-2000")
		}
		cfg.Spawn.Population = *req.Population
	}
	if req.LiarsPercent != nil {
		cfg.Spawn.LiarsPercent = *req.LiarsPercent
	}
	if req.StubbornPercent != nil {
		cfg.Spawn.StubbornPercent = *req.StubbornPercent
	}
	if req.ProximityRadius != nil {
		if *req.ProximityRadius <= 0 {
			return cfg, fmt.Errorf("proximity_radius must be positive")
		}
		cfg.Spawn.ProximityRadius = *req.ProximityRadius
	}
	if req.InteractionTime != nil {
		if *req.InteractionTime < 0 {
			return cfg, fmt.Errorf("interaction_time must not be negative")
		}
		cfg.Spawn.InteractionTime = *req.InteractionTime
	}

	l, st := cfg.Spawn.LiarsPercent, cfg.Spawn.StubbornPercent
	if l < 0 || st < 0 || l+st > 100 {
		return cfg, fmt.Errorf("liars_percent and stubborn_percent must be non-negative and sum to at most 100")
	}
	return cfg, nil
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	cfg, err := req.apply(s.Sim.CurrentConfig())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Sim.Reset(cfg); err != nil {
		slog.Error("reset failed", "error", err)
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}

	// A reset population is a new run.
	if s.DB != nil {
		id, err := s.DB.StartRun(cfg.Mode, s.Seed)
		if err != nil {
			slog.Error("start run failed", "error", err)
		} else {
			s.SetRunID(id)
		}
	}
	slog.Info("population reset", "mode", cfg.Mode, "population", cfg.Spawn.Population)

	writeJSON(w, map[string]any{
		"tick":       s.Sim.CurrentTick(),
		"mode":       cfg.Mode,
		"population": cfg.Spawn.Population,
		"run_id":     s.RunID(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.DB.SaveWorldState(s.Sim, s.RunID()); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    s.Sim.CurrentTick(),
		"message": "snapshot saved",
	})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		On bool `json:"on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.Sim.SetRecording(req.On)
	state := "stopped"
	if req.On {
		state = "started"
	}
	s.Sim.Emit("control", "recording "+state)

	writeJSON(w, map[string]bool{"recording": req.On})
}

// handleStream provides an SSE endpoint for real-time event streaming.
// Requires bearer token auth and limits concurrent connections.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.RelayKey == "" {
		http.Error(w, "streaming disabled (no relay key)", http.StatusForbidden)
		return
	}
	if !bearer(r, s.RelayKey) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	subID, ch := s.Sim.Subscribe()
	defer s.Sim.Unsubscribe(subID)

	// Catch-up with the last 50 events.
	for _, e := range s.Sim.RecentEvents(50) {
		writeSSEEvent(w, e)
	}
	flusher.Flush()

	slog.Info("SSE client connected", "sub_id", subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single event in SSE format.
func writeSSEEvent(w http.ResponseWriter, e engine.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Category, data)
}

// queryInt reads a positive integer parameter, falling back to def when it
// is missing, malformed or above ceiling.
func queryInt(r *http.Request, name string, def, ceiling int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 || v > ceiling {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

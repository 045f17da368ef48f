// Package httpapi exposes the simulation over a small JSON REST surface.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"campusgrid.ai/internal/export"
	"campusgrid.ai/internal/llm"
	"campusgrid.ai/internal/persistence/indexdb"
	"campusgrid.ai/internal/protocol"
	"campusgrid.ai/internal/sim/world"
	"campusgrid.ai/internal/sim/worldhost"
)

// Decider is the slice of the LLM client the API needs. Nil means the
// endpoint reports the model as unavailable.
type Decider interface {
	Decide(ctx context.Context, view world.AgentView, pois map[string]world.Point) (llm.Decision, string, error)
}

// Index answers historical occupancy queries from the sqlite read model.
type Index interface {
	OccupancyRange(poi string, fromTick, toTick int64) ([]indexdb.OccupancyPoint, error)
}

type Server struct {
	host *worldhost.Host
	log  *log.Logger

	decider Decider
	index   Index
	seed    world.SeedDoc

	maxSteps    int
	memoryViewN int
}

type Options struct {
	Decider Decider
	// Index enables the historical occupancy endpoint when set.
	Index Index
	// Seed is the document used by run requests that ask for a fresh world.
	Seed        world.SeedDoc
	MaxSteps    int
	MemoryViewN int
}

func NewServer(host *worldhost.Host, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 1000
	}
	if opts.MemoryViewN <= 0 {
		opts.MemoryViewN = world.DefaultMemoryViewN
	}
	return &Server{
		host:        host,
		log:         logger,
		decider:     opts.Decider,
		index:       opts.Index,
		seed:        opts.Seed,
		maxSteps:    opts.MaxSteps,
		memoryViewN: opts.MemoryViewN,
	}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/agents", s.handleAgents)
	mux.HandleFunc("GET /v1/agents/{id}", s.handleAgentGet)
	mux.HandleFunc("GET /v1/world", s.handleWorld)
	mux.HandleFunc("POST /v1/tick", s.handleTick)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/stats/export", s.handleStatsExport)
	mux.HandleFunc("GET /v1/stats/occupancy", s.handleOccupancy)
	mux.HandleFunc("POST /v1/run", s.handleRun)
	mux.HandleFunc("POST /v1/agents/{id}/llm", s.handleAgentLLM)
	mux.HandleFunc("GET /v1/agents/{id}/memory", s.handleAgentMemoryGet)
	mux.HandleFunc("POST /v1/agents/{id}/memory", s.handleAgentMemoryAdd)
}

// CORS allows browser frontends on other origins to call the API.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	_, views := s.host.Snapshot()
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAgentGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var view world.AgentView
	found := false
	_ = s.host.With(func(wo *world.World) error {
		if a := wo.AgentByID(id); a != nil {
			view = a.View(s.memoryViewN)
			found = true
		}
		return nil
	})
	if !found {
		writeError(w, http.StatusNotFound, protocol.ErrAgentNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusNotFound, protocol.ErrBadRequest, "stats index disabled")
		return
	}
	q := r.URL.Query()
	poi := q.Get("poi")
	if poi == "" {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "poi required")
		return
	}
	from, err := parseTickParam(q.Get("from"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "from must be a non-negative integer")
		return
	}
	to, err := parseTickParam(q.Get("to"), 1<<62)
	if err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "to must be a non-negative integer")
		return
	}
	pts, err := s.index.OccupancyRange(poi, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
		return
	}
	type point struct {
		Tick   int64 `json:"tick"`
		Agents int   `json:"agents"`
	}
	out := make([]point, 0, len(pts))
	for _, p := range pts {
		out = append(out, point{Tick: p.Tick, Agents: p.Agents})
	}
	writeJSON(w, http.StatusOK, map[string]any{"poi": poi, "occupancy": out})
}

func parseTickParam(v string, def int64) (int64, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad tick param")
	}
	return n, nil
}

func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	var resp protocol.WorldResponse
	_ = s.host.With(func(wo *world.World) error {
		resp = protocol.WorldResponse{
			Tick:   wo.TickCount(),
			POIs:   wo.POIs(),
			Agents: wo.AgentViews(s.memoryViewN),
		}
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var req protocol.TickRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Steps == 0 {
		req.Steps = 1
	}
	if req.Steps < 0 || req.Steps > s.maxSteps {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, fmt.Sprintf("steps must be in [1,%d]", s.maxSteps))
		return
	}
	if _, err := s.host.Step(req.Steps, req.NoMovement); err != nil {
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
		return
	}
	tick, views := s.host.Snapshot()
	writeJSON(w, http.StatusOK, protocol.TickResponse{Status: "ok", Tick: tick, Agents: views})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	lastN := 0
	if v := r.URL.Query().Get("last"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "last must be a non-negative integer")
			return
		}
		lastN = n
	}
	var stats []world.TickStats
	_ = s.host.With(func(wo *world.World) error {
		stats = wo.GetStats(lastN)
		return nil
	})
	writeJSON(w, http.StatusOK, protocol.StatsResponse{Stats: stats})
}

func (s *Server) handleStatsExport(w http.ResponseWriter, r *http.Request) {
	var stats []world.TickStats
	_ = s.host.With(func(wo *world.World) error {
		stats = wo.GetStats(0)
		return nil
	})
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="stats.csv"`)
	if err := export.WriteCSV(w, stats); err != nil {
		s.log.Printf("stats export failed: %v", err)
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req protocol.RunRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Ticks == 0 {
		req.Ticks = 240
	}
	if req.Ticks < 0 || req.Ticks > s.maxSteps {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, fmt.Sprintf("ticks must be in [1,%d]", s.maxSteps))
		return
	}
	if req.ResetSeed {
		if len(s.seed.Agents) == 0 && len(s.seed.POIs) == 0 {
			writeError(w, http.StatusBadRequest, protocol.ErrBadSeed, "no seed configured for reset")
			return
		}
		if err := s.host.Reseed(s.seed); err != nil {
			writeError(w, http.StatusBadRequest, protocol.ErrBadSeed, err.Error())
			return
		}
	}
	if _, err := s.host.Step(req.Ticks, false); err != nil {
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
		return
	}
	var stats []world.TickStats
	_ = s.host.With(func(wo *world.World) error {
		stats = wo.GetStats(0)
		return nil
	})
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="run.csv"`)
	if err := export.WriteCSV(w, stats); err != nil {
		s.log.Printf("run export failed: %v", err)
	}
}

func (s *Server) handleAgentLLM(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.decider == nil {
		writeError(w, http.StatusServiceUnavailable, protocol.ErrLLMUnavailable, "no model configured")
		return
	}

	var view world.AgentView
	var pois map[string]world.Point
	found := false
	_ = s.host.With(func(wo *world.World) error {
		if a := wo.AgentByID(id); a != nil {
			view = a.View(s.memoryViewN)
			pois = wo.POIs()
			found = true
		}
		return nil
	})
	if !found {
		writeError(w, http.StatusNotFound, protocol.ErrAgentNotFound, "agent not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	decision, raw, err := s.decider.Decide(ctx, view, pois)
	if err != nil {
		s.log.Printf("llm decision for %s failed: %v", id, err)
		writeError(w, http.StatusBadGateway, protocol.ErrLLMUnavailable, err.Error())
		return
	}

	// Apply the decision between ticks: store its memory line and, for a
	// move, nudge the agent one cell within bounds.
	_ = s.host.With(func(wo *world.World) error {
		a := wo.AgentByID(id)
		if a == nil {
			return nil
		}
		if strings.TrimSpace(decision.Memory) != "" {
			a.AddMemory(decision.Memory, "llm")
		}
		if decision.Action == "move" && (decision.DX != 0 || decision.DY != 0) {
			a.ApplyNudge(decision.DX, decision.DY, wo.Bounds())
		}
		return nil
	})

	writeJSON(w, http.StatusOK, protocol.AgentLLMResponse{
		AgentID: id,
		Decision: map[string]any{
			"thought": decision.Thought,
			"action":  decision.Action,
			"dx":      decision.DX,
			"dy":      decision.DY,
			"memory":  decision.Memory,
		},
		Raw: raw,
	})
}

func (s *Server) handleAgentMemoryGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	query := r.URL.Query().Get("query")
	topN := 5
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "top must be a positive integer")
			return
		}
		topN = n
	}

	var records []world.MemoryRecord
	found := false
	_ = s.host.With(func(wo *world.World) error {
		if a := wo.AgentByID(id); a != nil {
			records = a.RetrieveMemories(query, topN)
			found = true
		}
		return nil
	})
	if !found {
		writeError(w, http.StatusNotFound, protocol.ErrAgentNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agent_id": id, "memory": records})
}

func (s *Server) handleAgentMemoryAdd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req protocol.AddMemoryRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "text required")
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	found := false
	_ = s.host.With(func(wo *world.World) error {
		if a := wo.AgentByID(id); a != nil {
			a.AddMemory(req.Text, req.Source)
			found = true
		}
		return nil
	})
	if !found {
		writeError(w, http.StatusNotFound, protocol.ErrAgentNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "agent_id": id})
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, protocol.ErrorBody{Code: code, Error: msg})
}

package worldhost

import (
	"fmt"
	"log"
	"sync"

	"campusgrid.ai/internal/sim/world"
)

// TickSink receives a copy of each tick's stats after the tick commits.
// Sink failures are logged and never block or fail the tick itself.
type TickSink interface {
	OnTick(ts world.TickStats, agents []world.AgentView) error
}

// Host serializes all access to a single World. The tick loop, the HTTP
// handlers, and the websocket hub all go through the same mutex, so a tick
// is never observed half-applied.
type Host struct {
	mu     sync.Mutex
	w      *world.World
	sinks  []TickSink
	logger *log.Logger

	memoryViewN int
}

func New(w *world.World, memoryViewN int, logger *log.Logger) *Host {
	if logger == nil {
		logger = log.Default()
	}
	if memoryViewN <= 0 {
		memoryViewN = world.DefaultMemoryViewN
	}
	return &Host{w: w, logger: logger, memoryViewN: memoryViewN}
}

// AddSink registers a per-tick observer. Not safe to call concurrently with
// Step; register sinks during startup.
func (h *Host) AddSink(s TickSink) {
	h.sinks = append(h.sinks, s)
}

// Step advances the world n ticks and fans each tick's stats out to the
// registered sinks. Returns the stats of every tick taken, in order.
func (h *Host) Step(n int, noMovement bool) ([]world.TickStats, error) {
	if n <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d", n)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	opts := world.StepOptions{NoMovement: noMovement}
	out := make([]world.TickStats, 0, n)
	for i := 0; i < n; i++ {
		ts := h.w.Step(opts)
		out = append(out, ts)
		if len(h.sinks) > 0 {
			views := h.w.AgentViews(h.memoryViewN)
			for _, s := range h.sinks {
				if err := s.OnTick(ts, views); err != nil {
					h.logger.Printf("tick sink error at tick %d: %v", ts.Tick, err)
				}
			}
		}
	}
	return out, nil
}

// With runs fn while holding the world lock. fn must not retain the *World
// or anything aliasing its internals past the call.
func (h *Host) With(fn func(w *world.World) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.w)
}

// Reseed replaces the population and POIs from a seed document and resets
// the tick counter and ledger.
func (h *Host) Reseed(doc world.SeedDoc) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.w.LoadSeed(doc)
}

// Snapshot returns the current tick plus detached agent views.
func (h *Host) Snapshot() (int64, []world.AgentView) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.w.TickCount(), h.w.AgentViews(h.memoryViewN)
}

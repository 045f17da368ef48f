package world

import (
	"fmt"
	"math/rand"
	"sort"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Bounds struct {
	MinX, MinY, MaxX, MaxY int
}

func (b Bounds) Contains(x, y int) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

type Config struct {
	Bounds Bounds
	// Seed drives the random-walk stream; equal seeds replay equal walks.
	Seed int64

	Speed                    int
	CrowdThreshold           int
	InteractionCooldownTicks int64
	MemoryCap                int
}

func DefaultConfig() Config {
	return Config{
		Bounds:                   Bounds{MinX: 0, MinY: 0, MaxX: 24, MaxY: 24},
		Seed:                     1,
		Speed:                    1,
		CrowdThreshold:           3,
		InteractionCooldownTicks: 20,
		MemoryCap:                DefaultMemoryCap,
	}
}

// The stationary-service agent type is pinned to a 3x3 zone around this POI
// when the seed defines it.
const vendorAnchorPOI = "canteen"

// World is a single-threaded simulation. Callers that expose it to
// concurrent requests must serialize access; see worldhost.
type World struct {
	cfg Config

	pois map[string]Point

	// agents keeps seed order; byID is a lookup over the same pointers.
	agents []*Agent
	byID   map[string]*Agent

	tickCount int64
	stats     []TickStats

	rng *rand.Rand
}

func New(cfg Config, doc SeedDoc) (*World, error) {
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	if cfg.CrowdThreshold <= 0 {
		cfg.CrowdThreshold = 3
	}
	if cfg.InteractionCooldownTicks <= 0 {
		cfg.InteractionCooldownTicks = 20
	}
	if cfg.MemoryCap <= 0 {
		cfg.MemoryCap = DefaultMemoryCap
	}
	if cfg.Bounds.MaxX <= cfg.Bounds.MinX || cfg.Bounds.MaxY <= cfg.Bounds.MinY {
		return nil, fmt.Errorf("invalid bounds %+v", cfg.Bounds)
	}
	w := &World{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	if err := w.LoadSeed(doc); err != nil {
		return nil, err
	}
	return w, nil
}

// LoadSeed replaces POIs and agents wholesale and resets the tick counter and
// stats ledger. The document is validated in full before any state changes:
// on error the previous world remains intact.
func (w *World) LoadSeed(doc SeedDoc) error {
	if err := doc.check(); err != nil {
		return err
	}

	pois := make(map[string]Point, len(doc.POIs))
	for name, xy := range doc.POIs {
		pois[name] = Point{X: xy[0], Y: xy[1]}
	}
	agents := make([]*Agent, 0, len(doc.Agents))
	byID := make(map[string]*Agent, len(doc.Agents))
	for _, sa := range doc.Agents {
		a := NewAgent(sa.ID, sa.Type,
			clampInt(sa.X, w.cfg.Bounds.MinX, w.cfg.Bounds.MaxX),
			clampInt(sa.Y, w.cfg.Bounds.MinY, w.cfg.Bounds.MaxY),
			sa.Goals, sa.Traits)
		a.MemoryCap = w.cfg.MemoryCap
		agents = append(agents, a)
		byID[a.ID] = a
	}

	w.pois = pois
	w.agents = agents
	w.byID = byID
	w.tickCount = 0
	w.stats = nil
	return nil
}

func (w *World) TickCount() int64 { return w.tickCount }

func (w *World) Bounds() Bounds { return w.cfg.Bounds }

func (w *World) AgentByID(id string) *Agent { return w.byID[id] }

// Agents returns the live agents in seed order. The slice is a copy; the
// pointers are the live entities.
func (w *World) Agents() []*Agent {
	return append([]*Agent(nil), w.agents...)
}

// POIs returns a copy of the POI map.
func (w *World) POIs() map[string]Point {
	out := make(map[string]Point, len(w.pois))
	for k, v := range w.pois {
		out[k] = v
	}
	return out
}

func (w *World) poiNamesSorted() []string {
	names := make([]string, 0, len(w.pois))
	for name := range w.pois {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

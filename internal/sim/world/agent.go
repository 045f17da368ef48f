package world

import (
	"fmt"
	"math/rand"
	"time"
)

// Agent types with dedicated daily schedules. Any other type gets an empty
// schedule and wanders unless given explicit goals.
const (
	TypeStudent   = "student"
	TypeProfessor = "professor"
	TypeVendor    = "vendor"
)

const DefaultMemoryCap = 500

// Movable is the movement contract the tick engine relies on. Agent is the
// only implementation; the interface documents the closed capability set.
type Movable interface {
	MoveTowards(tx, ty, speed int)
	RandomWalk(b Bounds, rng *rand.Rand)
}

var _ Movable = (*Agent)(nil)

type Agent struct {
	ID   string
	Type string

	X, Y int

	// Goals is an ordered destination list; the head is the current target.
	// Schedule application always installs a fresh slice so in-place
	// redirection never mutates the schedule template.
	Goals []string

	Traits      map[string]any
	Personality string

	// Schedule maps hour-of-day to a goal list. Derived from Type at
	// construction, never mutated afterwards.
	Schedule map[int][]string

	MemoryCap int
	Memory    []MemoryRecord

	// LastInteractionTick is a single coarse stamp, not tracked per pair:
	// an agent that just interacted with anyone suppresses interactions with
	// everyone until the cooldown expires. Matches the source behavior.
	LastInteractionTick int64

	// Movement memories are logged against the last logged position rather
	// than the previous position, so a stationary agent does not spam its log.
	lastLoggedX, lastLoggedY int
	hasLoggedPos             bool

	// nowFn is injectable for deterministic retrieval tests.
	nowFn func() time.Time
}

func NewAgent(id, typ string, x, y int, goals []string, traits map[string]any) *Agent {
	if traits == nil {
		traits = map[string]any{}
	}
	personality := ""
	if p, ok := traits["personality"].(string); ok {
		personality = p
	}
	return &Agent{
		ID:                  id,
		Type:                typ,
		X:                   x,
		Y:                   y,
		Goals:               append([]string(nil), goals...),
		Traits:              traits,
		Personality:         personality,
		Schedule:            scheduleFor(typ),
		MemoryCap:           DefaultMemoryCap,
		LastInteractionTick: -1 << 30,
	}
}

func scheduleFor(typ string) map[int][]string {
	switch typ {
	case TypeStudent:
		return map[int][]string{9: {"library"}, 13: {"canteen"}, 16: {"ground"}}
	case TypeProfessor:
		return map[int][]string{9: {"lab"}, 12: {"canteen"}, 15: {"office"}}
	case TypeVendor:
		return map[int][]string{10: {"canteen"}, 14: {"ground"}}
	default:
		return map[int][]string{}
	}
}

func (a *Agent) now() time.Time {
	if a.nowFn != nil {
		return a.nowFn()
	}
	return time.Now()
}

// SetClock overrides the agent's wall clock. Tests only.
func (a *Agent) SetClock(fn func() time.Time) { a.nowFn = fn }

// MoveTowards steps each axis independently toward the target by at most
// speed units, never overshooting.
func (a *Agent) MoveTowards(tx, ty, speed int) {
	if a.X < tx {
		a.X += minInt(speed, tx-a.X)
	} else if a.X > tx {
		a.X -= minInt(speed, a.X-tx)
	}
	if a.Y < ty {
		a.Y += minInt(speed, ty-a.Y)
	} else if a.Y > ty {
		a.Y -= minInt(speed, a.Y-ty)
	}
	a.logPositionIfChanged()
}

// ApplyNudge shifts the agent by at most one cell per axis, clamped into
// bounds. Used for externally decided moves between ticks.
func (a *Agent) ApplyNudge(dx, dy int, b Bounds) {
	a.X = clampInt(a.X+clampInt(dx, -1, 1), b.MinX, b.MaxX)
	a.Y = clampInt(a.Y+clampInt(dy, -1, 1), b.MinY, b.MaxY)
	a.logPositionIfChanged()
}

// RandomWalk perturbs each axis by one of {-1,0,+1} and clamps into bounds.
func (a *Agent) RandomWalk(b Bounds, rng *rand.Rand) {
	a.X = clampInt(a.X+rng.Intn(3)-1, b.MinX, b.MaxX)
	a.Y = clampInt(a.Y+rng.Intn(3)-1, b.MinY, b.MaxY)
	a.logPositionIfChanged()
}

func (a *Agent) logPositionIfChanged() {
	if a.hasLoggedPos && a.X == a.lastLoggedX && a.Y == a.lastLoggedY {
		return
	}
	a.AddMemory(fmt.Sprintf("Moved to %d,%d", a.X, a.Y), "movement")
	a.lastLoggedX, a.lastLoggedY = a.X, a.Y
	a.hasLoggedPos = true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

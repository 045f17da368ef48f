package world

import "fmt"

type StepOptions struct {
	// NoMovement skips the general movement/redirection phase. Schedule
	// application, the vendor zone override, interaction detection and the
	// occupancy snapshot still run. Used when an external actor has already
	// repositioned agents between ticks.
	NoMovement bool
}

// Step advances the world by exactly one tick. Phases run in a fixed order:
// schedules, vendor zone override, crowd tally, movement with redirection,
// interaction detection, occupancy snapshot. A malformed agent never aborts
// the tick for the others.
func (w *World) Step(opts StepOptions) TickStats {
	w.tickCount++
	hour := int(w.tickCount % 24)

	// 1. Schedules replace goals wholesale, always with a fresh copy so later
	// in-place redirection cannot corrupt the template.
	for _, a := range w.agents {
		if a == nil || a.Schedule == nil {
			continue
		}
		if goals, ok := a.Schedule[hour]; ok {
			a.Goals = append([]string(nil), goals...)
		}
	}

	// 2. Vendors are clamped into a 3x3 zone around the anchor POI and sit
	// out the movement phase. Without the anchor in the seed this is a no-op.
	excluded := make(map[string]bool)
	if anchor, ok := w.pois[vendorAnchorPOI]; ok {
		for _, a := range w.agents {
			if a.Type != TypeVendor {
				continue
			}
			if absInt(a.X-anchor.X) > 1 || absInt(a.Y-anchor.Y) > 1 {
				a.X, a.Y = anchor.X, anchor.Y
			}
			a.Goals = []string{vendorAnchorPOI}
			excluded[a.ID] = true
		}
	}

	if !opts.NoMovement {
		// 3. Tally intended destinations before anyone moves.
		tally := make(map[string]int)
		for _, a := range w.agents {
			if excluded[a.ID] || len(a.Goals) == 0 {
				continue
			}
			if _, ok := w.pois[a.Goals[0]]; ok {
				tally[a.Goals[0]]++
			}
		}

		// 4. Move, redirecting away from crowded POIs first.
		for _, a := range w.agents {
			if excluded[a.ID] {
				continue
			}
			if len(a.Goals) == 0 {
				a.RandomWalk(w.cfg.Bounds, w.rng)
				continue
			}
			target := a.Goals[0]
			p, isPOI := w.pois[target]
			if isPOI && tally[target] > w.cfg.CrowdThreshold {
				if alt, ok := w.leastCrowdedPOI(tally); ok && alt != target {
					a.Goals[0] = alt
					target = alt
					p = w.pois[alt]
				}
			}
			if isPOI {
				a.MoveTowards(p.X, p.Y, w.cfg.Speed)
			} else {
				a.RandomWalk(w.cfg.Bounds, w.rng)
			}
		}
	}

	// 5. Interactions: each unordered colocated pair at most once per tick,
	// gated by the coarse per-agent cooldown on both members.
	for i := 0; i < len(w.agents); i++ {
		for j := i + 1; j < len(w.agents); j++ {
			a, b := w.agents[i], w.agents[j]
			if a.X != b.X || a.Y != b.Y {
				continue
			}
			if w.tickCount-a.LastInteractionTick < w.cfg.InteractionCooldownTicks ||
				w.tickCount-b.LastInteractionTick < w.cfg.InteractionCooldownTicks {
				continue
			}
			a.AddMemory(fmt.Sprintf("Talked with %s at %d,%d", b.ID, a.X, a.Y), "interaction")
			b.AddMemory(fmt.Sprintf("Talked with %s at %d,%d", a.ID, b.X, b.Y), "interaction")
			a.LastInteractionTick = w.tickCount
			b.LastInteractionTick = w.tickCount
		}
	}

	// 6. Snapshot occupancy from final positions, exact match only.
	occ := make(map[string]int, len(w.pois))
	for name, p := range w.pois {
		n := 0
		for _, a := range w.agents {
			if a.X == p.X && a.Y == p.Y {
				n++
			}
		}
		occ[name] = n
	}
	ts := TickStats{Tick: w.tickCount, Hour: hour, Occupancy: occ}
	w.stats = append(w.stats, ts)
	return ts.clone()
}

// leastCrowdedPOI picks the POI with the smallest intent tally. Ties break by
// lexicographic POI name so redirection is deterministic.
func (w *World) leastCrowdedPOI(tally map[string]int) (string, bool) {
	best := ""
	bestN := 0
	for _, name := range w.poiNamesSorted() {
		n := tally[name]
		if best == "" || n < bestN {
			best, bestN = name, n
		}
	}
	return best, best != ""
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

package world

// TickStats is one snapshot of POI occupancy at the end of a tick. The ledger
// holds exactly one record per completed tick, in tick order, never mutated
// after append.
type TickStats struct {
	Tick      int64          `json:"tick"`
	Hour      int            `json:"hour"`
	Occupancy map[string]int `json:"occupancy"`
}

func (t TickStats) clone() TickStats {
	occ := make(map[string]int, len(t.Occupancy))
	for k, v := range t.Occupancy {
		occ[k] = v
	}
	return TickStats{Tick: t.Tick, Hour: t.Hour, Occupancy: occ}
}

// GetStats returns the stats ledger, or only the most recent lastN records
// when lastN > 0. Records are deep copies; the ledger itself is never handed
// out.
func (w *World) GetStats(lastN int) []TickStats {
	src := w.stats
	if lastN > 0 && lastN < len(src) {
		src = src[len(src)-lastN:]
	}
	out := make([]TickStats, 0, len(src))
	for _, s := range src {
		out = append(out, s.clone())
	}
	return out
}

package world

import (
	"math"
	"sort"
	"strings"
)

// MemoryRecord is immutable once created. Importance is cached at write time;
// recency decay is applied only at query time and never stored.
type MemoryRecord struct {
	Text       string   `json:"text"`
	TS         int64    `json:"ts"`
	Importance float64  `json:"importance"`
	Tokens     []string `json:"tokens"`
	Source     string   `json:"source"`
}

// Sources that mark a memory as coming from a dialogue or model interaction.
// These get a flat importance boost at ingestion.
var boostedSources = map[string]bool{
	"interaction":     true,
	"llm_interaction": true,
	"llm_dialogue":    true,
	"gemini":          true,
}

// ImportanceOf scores a memory text at ingestion time. Longer, token-richer
// texts score higher; dialogue-derived sources get a flat boost.
func ImportanceOf(text, source string) float64 {
	tokens := Tokenize(text)
	lengthScore := math.Min(1, float64(len(text))/200)
	tokenScore := math.Min(1, float64(len(tokens))/30)
	// The recency term is a constant placeholder at write time; true recency
	// is applied when retrieving.
	importance := 0.5*lengthScore + 0.4*tokenScore + 0.1*1.0
	if boostedSources[source] {
		importance *= 1.15
	}
	return round4(importance)
}

// AddMemory appends a scored memory record and evicts the oldest records
// beyond the cap. Blank text is a no-op.
func (a *Agent) AddMemory(text, source string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	a.Memory = append(a.Memory, MemoryRecord{
		Text:       text,
		TS:         a.now().Unix(),
		Importance: ImportanceOf(text, source),
		Tokens:     Tokenize(text),
		Source:     source,
	})
	if len(a.Memory) > a.MemoryCap {
		a.Memory = a.Memory[len(a.Memory)-a.MemoryCap:]
	}
}

// RecentMemories returns the newest n records, new-to-old.
func (a *Agent) RecentMemories(n int) []MemoryRecord {
	if n <= 0 || len(a.Memory) == 0 {
		return nil
	}
	if n > len(a.Memory) {
		n = len(a.Memory)
	}
	out := make([]MemoryRecord, 0, n)
	for i := len(a.Memory) - 1; i >= len(a.Memory)-n; i-- {
		out = append(out, a.Memory[i])
	}
	return out
}

// RetrieveMemories ranks stored memories against the query and returns at
// most topN of them, best first. With an untokenizable query it falls back to
// the most recent records. Zero-scoring memories are excluded from the ranked
// portion; if fewer than topN qualify the result is padded with the most
// recent remaining records.
func (a *Agent) RetrieveMemories(query string, topN int) []MemoryRecord {
	if topN <= 0 {
		return nil
	}
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return a.RecentMemories(topN)
	}

	querySet := make(map[string]bool, len(queryTokens))
	for _, t := range queryTokens {
		querySet[t] = true
	}
	now := a.now().Unix()

	type scored struct {
		idx   int
		score float64
	}
	var ranked []scored
	for i := range a.Memory {
		sc := scoreMemory(&a.Memory[i], querySet, now)
		if sc > 0 {
			ranked = append(ranked, scored{idx: i, score: sc})
		}
	}
	// Stable: insertion order breaks score ties.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	out := make([]MemoryRecord, 0, topN)
	taken := make(map[int]bool, len(ranked))
	for _, s := range ranked {
		out = append(out, a.Memory[s.idx])
		taken[s.idx] = true
	}
	// Pad with most-recent records not already included.
	for i := len(a.Memory) - 1; i >= 0 && len(out) < topN; i-- {
		if taken[i] {
			continue
		}
		out = append(out, a.Memory[i])
	}
	return out
}

// scoreMemory computes the query-time relevance of one record:
//
//	(0.6*overlap/(1+ln(1+|tokens|)) + 0.3*importance) * 1/(1+0.1*ageHours)
//
// A record with no token overlap (or no tokens at all) contributes zero
// overlap; age is clamped to non-negative.
func scoreMemory(m *MemoryRecord, querySet map[string]bool, nowUnix int64) float64 {
	tokenSet := make(map[string]bool, len(m.Tokens))
	for _, t := range m.Tokens {
		tokenSet[t] = true
	}
	overlap := 0
	for t := range tokenSet {
		if querySet[t] {
			overlap++
		}
	}
	tokenScore := 0.0
	if overlap > 0 {
		tokenScore = float64(overlap) / (1 + math.Log(1+float64(len(tokenSet))))
	}

	ageSeconds := nowUnix - m.TS
	if ageSeconds < 0 {
		ageSeconds = 0
	}
	ageHours := float64(ageSeconds) / 3600
	recency := 1 / (1 + 0.1*ageHours)

	return (0.6*tokenScore + 0.3*m.Importance) * recency
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

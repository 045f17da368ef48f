package world

// AgentView is the read-only projection handed to the API layer and the LLM
// prompt builder. Memory carries only the text of the newest records,
// new-to-old.
type AgentView struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	X           int            `json:"x"`
	Y           int            `json:"y"`
	Goals       []string       `json:"goals"`
	Traits      map[string]any `json:"traits"`
	Personality string         `json:"personality"`
	Memory      []string       `json:"memory"`
}

// DefaultMemoryViewN is how many recent memory texts an agent view carries.
const DefaultMemoryViewN = 8

func (a *Agent) View(memoryN int) AgentView {
	if memoryN <= 0 {
		memoryN = DefaultMemoryViewN
	}
	recent := a.RecentMemories(memoryN)
	texts := make([]string, 0, len(recent))
	for _, m := range recent {
		texts = append(texts, m.Text)
	}
	traits := make(map[string]any, len(a.Traits))
	for k, v := range a.Traits {
		traits[k] = v
	}
	return AgentView{
		ID:          a.ID,
		Type:        a.Type,
		X:           a.X,
		Y:           a.Y,
		Goals:       append([]string(nil), a.Goals...),
		Traits:      traits,
		Personality: a.Personality,
		Memory:      texts,
	}
}

// AgentViews projects every agent in seed order.
func (w *World) AgentViews(memoryN int) []AgentView {
	out := make([]AgentView, 0, len(w.agents))
	for _, a := range w.agents {
		out = append(out, a.View(memoryN))
	}
	return out
}

package protocol

import "campusgrid.ai/internal/sim/world"

// ErrorBody is the JSON error envelope for every API failure.
type ErrorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type TickRequest struct {
	Steps      int  `json:"steps"`
	NoMovement bool `json:"no_movement"`
}

type TickResponse struct {
	Status string            `json:"status"`
	Tick   int64             `json:"tick"`
	Agents []world.AgentView `json:"agents"`
}

type WorldResponse struct {
	Tick   int64                  `json:"tick"`
	POIs   map[string]world.Point `json:"pois"`
	Agents []world.AgentView      `json:"agents"`
}

type StatsResponse struct {
	Stats []world.TickStats `json:"stats"`
}

type RunRequest struct {
	Ticks     int  `json:"ticks"`
	ResetSeed bool `json:"reset_seed"`
}

type AgentLLMRequest struct {
	Query string `json:"query,omitempty"`
}

type AgentLLMResponse struct {
	AgentID  string         `json:"agent_id"`
	Decision map[string]any `json:"llm_result"`
	Raw      string         `json:"raw,omitempty"`
}

type AddMemoryRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Frame is the per-tick message pushed to websocket observers.
type Frame struct {
	Type      string            `json:"type"`
	Tick      int64             `json:"tick"`
	Hour      int               `json:"hour"`
	Occupancy map[string]int    `json:"occupancy"`
	Agents    []world.AgentView `json:"agents"`
}

const TypeFrame = "FRAME"

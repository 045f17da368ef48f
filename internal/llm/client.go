// Package llm asks an OpenAI-compatible chat endpoint for a single agent
// decision. The model is instructed to answer with strict JSON; replies that
// wrap the JSON in code fences or prose are salvaged before giving up.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"campusgrid.ai/internal/sim/world"
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg Config
	hc  *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Decision is the model's answer for one agent on one tick.
type Decision struct {
	Thought string `json:"thought"`
	Action  string `json:"action"`
	DX      int    `json:"dx"`
	DY      int    `json:"dy"`
	Memory  string `json:"memory"`
}

// Validate normalizes a decision: unknown actions become idle and the
// per-axis step is clamped to one cell.
func (d *Decision) Validate() {
	if d.Action != "move" && d.Action != "idle" {
		d.Action = "idle"
	}
	d.DX = clampStep(d.DX)
	d.DY = clampStep(d.DY)
	if d.Action == "idle" {
		d.DX, d.DY = 0, 0
	}
}

func clampStep(v int) int {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Decide prompts the model with the agent's state and parses its reply.
// The raw reply text is returned alongside the decision for diagnostics.
func (c *Client) Decide(ctx context.Context, view world.AgentView, pois map[string]world.Point) (Decision, string, error) {
	prompt := BuildPrompt(view, pois)

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
		MaxTokens:   200,
	})
	if err != nil {
		return Decision{}, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Decision{}, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return Decision{}, "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Decision{}, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return Decision{}, "", fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return Decision{}, "", err
	}
	if len(cr.Choices) == 0 {
		return Decision{}, "", fmt.Errorf("chat endpoint returned no choices")
	}
	text := cr.Choices[0].Message.Content

	d, ok := ExtractDecision(text)
	if !ok {
		return Decision{}, text, fmt.Errorf("no JSON decision in model reply")
	}
	d.Validate()
	return d, text, nil
}

// BuildPrompt renders the per-agent decision prompt. POIs are listed in
// lexicographic order so identical states produce identical prompts.
func BuildPrompt(view world.AgentView, pois map[string]world.Point) string {
	names := make([]string, 0, len(pois))
	for name := range pois {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("You are an AI agent inside a 2D grid simulation.\n")
	b.WriteString("Return ONLY strict JSON, exactly like:\n\n")
	b.WriteString("{\n  \"thought\": \"short reasoning\",\n  \"action\": \"move\",\n  \"dx\": 1,\n  \"dy\": 0,\n  \"memory\": \"short memory\"\n}\n\n")
	b.WriteString("Rules:\n- action must be \"move\" or \"idle\".\n- dx, dy must be integers in [-1, 0, 1].\n\n")
	b.WriteString("State:\n")
	fmt.Fprintf(&b, "id: %s\ntype: %s\nposition: (%d, %d)\ngoals: %v\nrecent_memory: %v\n", view.ID, view.Type, view.X, view.Y, view.Goals, view.Memory)
	b.WriteString("pois:")
	for _, name := range names {
		p := pois[name]
		fmt.Fprintf(&b, " %s=(%d,%d)", name, p.X, p.Y)
	}
	b.WriteString("\n")
	return b.String()
}

// ExtractDecision pulls a JSON decision out of a model reply. Tries fenced
// code blocks first, then the outermost brace span, then the whole text.
func ExtractDecision(text string) (Decision, bool) {
	txt := strings.TrimSpace(text)
	if txt == "" {
		return Decision{}, false
	}

	if strings.HasPrefix(txt, "```") {
		for _, part := range strings.Split(txt, "```") {
			part = strings.TrimSpace(part)
			part = strings.TrimPrefix(part, "json")
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
				var d Decision
				if err := json.Unmarshal([]byte(part), &d); err == nil {
					return d, true
				}
			}
		}
	}

	s := strings.Index(txt, "{")
	e := strings.LastIndex(txt, "}")
	if s != -1 && e > s {
		var d Decision
		if err := json.Unmarshal([]byte(txt[s:e+1]), &d); err == nil {
			return d, true
		}
	}

	var d Decision
	if err := json.Unmarshal([]byte(txt), &d); err == nil {
		return d, true
	}
	return Decision{}, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

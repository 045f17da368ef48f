package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Grid Grid `yaml:"grid"`

	Speed                    int   `yaml:"speed"`
	CrowdThreshold           int   `yaml:"crowd_threshold"`
	InteractionCooldownTicks int64 `yaml:"interaction_cooldown_ticks"`
	MemoryCap                int   `yaml:"memory_cap"`
	MemoryViewN              int   `yaml:"memory_view_n"`
	Seed                     int64 `yaml:"seed"`

	MaxStepsPerRequest int `yaml:"max_steps_per_request"`

	LLM LLM `yaml:"llm"`
}

type Grid struct {
	MinX int `yaml:"min_x"`
	MinY int `yaml:"min_y"`
	MaxX int `yaml:"max_x"`
	MaxY int `yaml:"max_y"`
}

type LLM struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

func Defaults() Tuning {
	return Tuning{
		Grid:                     Grid{MinX: 0, MinY: 0, MaxX: 24, MaxY: 24},
		Speed:                    1,
		CrowdThreshold:           3,
		InteractionCooldownTicks: 20,
		MemoryCap:                500,
		MemoryViewN:              8,
		Seed:                     1337,
		MaxStepsPerRequest:       1000,
		LLM: LLM{
			BaseURL:   "https://api.groq.com/openai/v1",
			Model:     "openai/gpt-oss-20b",
			TimeoutMs: 20000,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

package world

import (
	"strings"
	"testing"
)

const sampleSeedJSON = `{
  "pois": {"library": [5, 5], "canteen": [12, 8], "ground": [20, 20]},
  "agents": [
    {"id": "S1", "type": "student", "x": 1, "y": 2, "goals": ["library"], "traits": {"personality": "curious"}},
    {"id": "P1", "type": "professor"},
    {"id": "V1", "type": "vendor", "x": 12, "y": 8}
  ]
}`

func TestParseSeed_Defaults(t *testing.T) {
	doc, err := ParseSeed([]byte(sampleSeedJSON))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if len(doc.POIs) != 3 || doc.POIs["library"] != [2]int{5, 5} {
		t.Fatalf("pois = %+v", doc.POIs)
	}
	p1 := doc.Agents[1]
	if p1.X != 0 || p1.Y != 0 || len(p1.Goals) != 0 || len(p1.Traits) != 0 {
		t.Fatalf("missing fields should default to zero values: %+v", p1)
	}
}

func TestParseSeed_Rejects(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"missing id", `{"agents":[{"type":"student"}]}`},
		{"missing type", `{"agents":[{"id":"A1"}]}`},
		{"blank id", `{"agents":[{"id":"", "type":"student"}]}`},
		{"duplicate id", `{"agents":[{"id":"A1","type":"student"},{"id":"A1","type":"vendor"}]}`},
		{"bad poi shape", `{"pois":{"library":[5]}, "agents":[]}`},
		{"bad poi type", `{"pois":{"library":"5,5"}, "agents":[]}`},
		{"not json", `{pois}`},
	}
	for _, c := range cases {
		if _, err := ParseSeed([]byte(c.json)); err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
	}
}

func TestLoadSeed_ResetsWorld(t *testing.T) {
	doc, err := ParseSeed([]byte(sampleSeedJSON))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	w := mustWorld(t, testConfig(), doc)
	for i := 0; i < 5; i++ {
		w.Step(StepOptions{})
	}

	if err := w.LoadSeed(doc); err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if w.TickCount() != 0 {
		t.Fatalf("tick not reset: %d", w.TickCount())
	}
	if len(w.GetStats(0)) != 0 {
		t.Fatalf("stats not reset")
	}
	s1 := w.AgentByID("S1")
	if s1 == nil || s1.X != 1 || s1.Y != 2 || len(s1.Memory) != 0 {
		t.Fatalf("agents not rebuilt fresh")
	}
}

func TestLoadSeed_BadDocLeavesWorldIntact(t *testing.T) {
	doc, _ := ParseSeed([]byte(sampleSeedJSON))
	w := mustWorld(t, testConfig(), doc)
	for i := 0; i < 3; i++ {
		w.Step(StepOptions{})
	}

	bad := SeedDoc{Agents: []SeedAgent{{ID: "", Type: "student"}}}
	err := w.LoadSeed(bad)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "missing id") {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.TickCount() != 3 {
		t.Fatalf("tick changed after failed load: %d", w.TickCount())
	}
	if w.AgentByID("S1") == nil {
		t.Fatalf("agents replaced after failed load")
	}
}

func TestLoadSeed_ClampsPositionsIntoBounds(t *testing.T) {
	cfg := testConfig()
	cfg.Bounds = Bounds{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	w := mustWorld(t, cfg, SeedDoc{
		Agents: []SeedAgent{{ID: "A1", Type: "visitor", X: 99, Y: -4}},
	})
	a := w.AgentByID("A1")
	if a.X != 10 || a.Y != 0 {
		t.Fatalf("seed position not clamped: (%d,%d)", a.X, a.Y)
	}
}

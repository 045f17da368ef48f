package worldhost

import (
	"errors"
	"io"
	"log"
	"testing"

	"campusgrid.ai/internal/sim/world"
)

func newTestWorld(t *testing.T) *world.World {
	t.Helper()
	doc := world.SeedDoc{
		POIs: map[string][2]int{"library": {2, 2}, "canteen": {8, 8}},
		Agents: []world.SeedAgent{
			{ID: "A1", Type: world.TypeStudent, X: 0, Y: 0, Goals: []string{"library"}},
			{ID: "A2", Type: world.TypeProfessor, X: 5, Y: 5},
		},
	}
	w, err := world.New(world.DefaultConfig(), doc)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

type recordingSink struct {
	ticks  []int64
	agents int
	err    error
}

func (r *recordingSink) OnTick(ts world.TickStats, agents []world.AgentView) error {
	r.ticks = append(r.ticks, ts.Tick)
	r.agents = len(agents)
	return r.err
}

func TestHost_StepFansOutToSinks(t *testing.T) {
	h := New(newTestWorld(t), 4, log.New(io.Discard, "", 0))
	sink := &recordingSink{}
	h.AddSink(sink)

	out, err := h.Step(3, false)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(out) != 3 || out[0].Tick != 1 || out[2].Tick != 3 {
		t.Fatalf("stats = %+v", out)
	}
	if len(sink.ticks) != 3 || sink.ticks[2] != 3 {
		t.Fatalf("sink ticks = %v", sink.ticks)
	}
	if sink.agents != 2 {
		t.Fatalf("sink saw %d agents", sink.agents)
	}
}

func TestHost_SinkErrorDoesNotAbortTick(t *testing.T) {
	h := New(newTestWorld(t), 4, log.New(io.Discard, "", 0))
	h.AddSink(&recordingSink{err: errors.New("disk full")})

	out, err := h.Step(2, false)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 ticks, got %d", len(out))
	}
	tick, _ := h.Snapshot()
	if tick != 2 {
		t.Fatalf("tick = %d", tick)
	}
}

func TestHost_StepRejectsNonPositive(t *testing.T) {
	h := New(newTestWorld(t), 4, nil)
	if _, err := h.Step(0, false); err == nil {
		t.Fatalf("expected error for zero steps")
	}
}

func TestHost_ReseedResetsTick(t *testing.T) {
	h := New(newTestWorld(t), 4, nil)
	if _, err := h.Step(5, true); err != nil {
		t.Fatalf("Step: %v", err)
	}
	doc := world.SeedDoc{
		POIs:   map[string][2]int{"lab": {1, 1}},
		Agents: []world.SeedAgent{{ID: "B1", Type: world.TypeVendor, X: 3, Y: 3}},
	}
	if err := h.Reseed(doc); err != nil {
		t.Fatalf("Reseed: %v", err)
	}
	tick, views := h.Snapshot()
	if tick != 0 {
		t.Fatalf("tick after reseed = %d", tick)
	}
	if len(views) != 1 || views[0].ID != "B1" {
		t.Fatalf("views = %+v", views)
	}
}

func TestHost_WithPropagatesError(t *testing.T) {
	h := New(newTestWorld(t), 4, nil)
	want := errors.New("boom")
	if err := h.With(func(w *world.World) error { return want }); !errors.Is(err, want) {
		t.Fatalf("got %v", err)
	}
}

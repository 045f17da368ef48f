package world

import (
	"math/rand"
	"testing"
)

func TestMoveTowards_NeverOvershoots(t *testing.T) {
	a := NewAgent("A1", TypeStudent, 0, 0, nil, nil)
	a.MoveTowards(2, 5, 3)
	if a.X != 2 || a.Y != 3 {
		t.Fatalf("pos = (%d,%d), want (2,3)", a.X, a.Y)
	}
	a.MoveTowards(2, 5, 3)
	if a.X != 2 || a.Y != 5 {
		t.Fatalf("pos = (%d,%d), want (2,5)", a.X, a.Y)
	}
	// At target: stays put.
	a.MoveTowards(2, 5, 3)
	if a.X != 2 || a.Y != 5 {
		t.Fatalf("moved off target to (%d,%d)", a.X, a.Y)
	}
}

func TestMoveTowards_AxisDistanceProperty(t *testing.T) {
	a := NewAgent("A1", TypeStudent, 20, -7, nil, nil)
	tx, ty, speed := 3, 11, 4
	for i := 0; i < 20; i++ {
		dx, dy := absInt(tx-a.X), absInt(ty-a.Y)
		a.MoveTowards(tx, ty, speed)
		wantDX, wantDY := dx-speed, dy-speed
		if wantDX < 0 {
			wantDX = 0
		}
		if wantDY < 0 {
			wantDY = 0
		}
		if absInt(tx-a.X) != wantDX || absInt(ty-a.Y) != wantDY {
			t.Fatalf("step %d: distance (%d,%d), want (%d,%d)",
				i, absInt(tx-a.X), absInt(ty-a.Y), wantDX, wantDY)
		}
	}
}

func TestRandomWalk_StaysInBoundsAndStepsByOne(t *testing.T) {
	b := Bounds{MinX: 0, MinY: 0, MaxX: 4, MaxY: 4}
	rng := rand.New(rand.NewSource(7))
	a := NewAgent("A1", TypeStudent, 0, 0, nil, nil)
	for i := 0; i < 500; i++ {
		px, py := a.X, a.Y
		a.RandomWalk(b, rng)
		if !b.Contains(a.X, a.Y) {
			t.Fatalf("step %d: out of bounds (%d,%d)", i, a.X, a.Y)
		}
		if absInt(a.X-px) > 1 || absInt(a.Y-py) > 1 {
			t.Fatalf("step %d: moved more than 1 per axis", i)
		}
	}
}

func TestMovementLogging_SuppressesRepeats(t *testing.T) {
	a := NewAgent("A1", TypeStudent, 3, 3, nil, nil)
	// First check always logs, repeats at the same position do not.
	a.MoveTowards(3, 3, 1)
	a.MoveTowards(3, 3, 1)
	a.MoveTowards(3, 3, 1)
	n := 0
	for _, m := range a.Memory {
		if m.Source == "movement" {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("movement memories = %d, want 1", n)
	}

	a.MoveTowards(5, 3, 1)
	n = 0
	for _, m := range a.Memory {
		if m.Source == "movement" {
			n++
		}
	}
	if n != 2 {
		t.Fatalf("movement memories after real move = %d, want 2", n)
	}
}

func TestApplyNudge_ClampsStepAndBounds(t *testing.T) {
	b := Bounds{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}

	a := NewAgent("A1", TypeStudent, 5, 5, nil, nil)
	a.ApplyNudge(3, -7, b)
	if a.X != 6 || a.Y != 4 {
		t.Fatalf("oversized nudge not clamped to one cell: (%d,%d)", a.X, a.Y)
	}

	a = NewAgent("A2", TypeStudent, 0, 10, nil, nil)
	a.ApplyNudge(-1, 1, b)
	if a.X != 0 || a.Y != 10 {
		t.Fatalf("nudge escaped bounds: (%d,%d)", a.X, a.Y)
	}
}

func TestScheduleFor_Types(t *testing.T) {
	student := scheduleFor(TypeStudent)
	if got := student[9]; len(got) != 1 || got[0] != "library" {
		t.Fatalf("student 9h = %v", got)
	}
	prof := scheduleFor(TypeProfessor)
	if got := prof[15]; len(got) != 1 || got[0] != "office" {
		t.Fatalf("professor 15h = %v", got)
	}
	vendor := scheduleFor(TypeVendor)
	if got := vendor[10]; len(got) != 1 || got[0] != "canteen" {
		t.Fatalf("vendor 10h = %v", got)
	}
	if len(scheduleFor("visitor")) != 0 {
		t.Fatalf("unknown type should have empty schedule")
	}
}

func TestNewAgent_PersonalityFromTraits(t *testing.T) {
	a := NewAgent("A1", TypeStudent, 0, 0, nil, map[string]any{"personality": "curious"})
	if a.Personality != "curious" {
		t.Fatalf("personality = %q", a.Personality)
	}
	b := NewAgent("A2", TypeStudent, 0, 0, nil, nil)
	if b.Personality != "" {
		t.Fatalf("personality = %q, want empty", b.Personality)
	}
}

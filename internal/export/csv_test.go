package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"campusgrid.ai/internal/sim/world"
)

func sampleLedger() []world.TickStats {
	return []world.TickStats{
		{Tick: 1, Hour: 1, Occupancy: map[string]int{"library": 2, "canteen": 0}},
		{Tick: 2, Hour: 2, Occupancy: map[string]int{"library": 1, "canteen": 1}},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleLedger()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %v", lines)
	}
	if lines[0] != "tick,hour,canteen,library" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "1,1,0,2" || lines[2] != "2,2,1,1" {
		t.Fatalf("rows = %q, %q", lines[1], lines[2])
	}
}

func TestWriteCSV_MissingPOIWritesZero(t *testing.T) {
	stats := []world.TickStats{
		{Tick: 1, Hour: 1, Occupancy: map[string]int{"library": 1}},
		{Tick: 2, Hour: 2, Occupancy: map[string]int{"lab": 3}},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, stats); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "tick,hour,lab,library" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "1,1,0,1" || lines[2] != "2,2,3,0" {
		t.Fatalf("rows = %q, %q", lines[1], lines[2])
	}
}

func TestAggregateFiles(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "run_1.csv")
	p2 := filepath.Join(dir, "run_2.csv")
	if err := SaveCSV(p1, sampleLedger()); err != nil {
		t.Fatalf("SaveCSV 1: %v", err)
	}
	if err := SaveCSV(p2, sampleLedger()); err != nil {
		t.Fatalf("SaveCSV 2: %v", err)
	}

	out := filepath.Join(dir, "all.csv")
	if err := AggregateFiles(out, []string{p1, p2}); err != nil {
		t.Fatalf("AggregateFiles: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][0] != "run" || rows[0][1] != "tick" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != "run_1" || rows[3][0] != "run_2" {
		t.Fatalf("run column = %v / %v", rows[1], rows[3])
	}
}

func TestAggregateFiles_HeaderMismatch(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.csv")
	p2 := filepath.Join(dir, "b.csv")
	if err := SaveCSV(p1, sampleLedger()); err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}
	other := []world.TickStats{{Tick: 1, Hour: 1, Occupancy: map[string]int{"office": 1}}}
	if err := SaveCSV(p2, other); err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}
	if err := AggregateFiles(filepath.Join(dir, "all.csv"), []string{p1, p2}); err == nil {
		t.Fatalf("expected header mismatch error")
	}
}

func TestAggregateFiles_NoInputs(t *testing.T) {
	if err := AggregateFiles(filepath.Join(t.TempDir(), "all.csv"), nil); err == nil {
		t.Fatalf("expected error for empty input list")
	}
}

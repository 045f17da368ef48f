package memstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"campusgrid.ai/internal/sim/world"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir())

	in := []world.MemoryRecord{
		{Text: "visited the library", TS: 1000, Importance: 0.2, Tokens: world.Tokenize("visited the library"), Source: "movement"},
		{Text: "talked with P1 at canteen", TS: 2000, Importance: 0.3, Tokens: world.Tokenize("talked with P1 at canteen"), Source: "interaction"},
	}
	if err := s.Save("A1", in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !s.Exists("A1") {
		t.Fatalf("Exists = false after Save")
	}

	got, err := s.Load("A1", 500)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d records", len(got))
	}
	if got[0].Text != in[0].Text || got[0].TS != 1000 || got[0].Importance != 0.2 {
		t.Fatalf("record 0 = %+v", got[0])
	}
	if got[1].Source != "interaction" {
		t.Fatalf("record 1 = %+v", got[1])
	}
}

func TestStore_LoadRepairsPartialRecords(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	// Hand-written file with blank text, no ts, and no importance.
	doc := map[string]any{
		"agent_id": "A2",
		"memory": []map[string]any{
			{"text": "   "},
			{"text": "found a quiet desk", "source": "movement"},
		},
	}
	raw, _ := json.Marshal(doc)
	if err := os.WriteFile(filepath.Join(dir, "A2.json"), raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.Load("A2", 500)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("blank record kept: %+v", got)
	}
	m := got[0]
	if m.TS == 0 {
		t.Fatalf("missing ts not defaulted")
	}
	if m.Importance != world.ImportanceOf(m.Text, m.Source) {
		t.Fatalf("importance not recomputed: %v", m.Importance)
	}
	if len(m.Tokens) == 0 {
		t.Fatalf("tokens not rebuilt")
	}
}

func TestStore_LoadTruncatesToCap(t *testing.T) {
	s := New(t.TempDir())
	var in []world.MemoryRecord
	for i := 0; i < 10; i++ {
		text := "note number " + string(rune('a'+i))
		in = append(in, world.MemoryRecord{Text: text, TS: int64(i + 1), Importance: 0.1, Tokens: world.Tokenize(text)})
	}
	if err := s.Save("A3", in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load("A3", 4)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 4 || got[0].TS != 7 || got[3].TS != 10 {
		t.Fatalf("truncation kept wrong tail: %+v", got)
	}
}

func TestStore_SanitizesAgentID(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Save("../evil", nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "___evil.json")); err != nil {
		t.Fatalf("sanitized file missing: %v", err)
	}
}

func TestStore_LoadMissingAgent(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Load("nobody", 10); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

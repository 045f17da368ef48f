// Package memstore persists agent memory streams as per-agent JSON files.
package memstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"campusgrid.ai/internal/sim/world"
)

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

type fileDoc struct {
	AgentID string               `json:"agent_id"`
	SavedAt string               `json:"saved_at"`
	Memory  []world.MemoryRecord `json:"memory"`
}

// Save writes the agent's full memory stream, oldest first.
func (s *Store) Save(agentID string, memory []world.MemoryRecord) error {
	doc := fileDoc{
		AgentID: agentID,
		SavedAt: time.Now().UTC().Format(time.RFC3339),
		Memory:  memory,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.pathFor(agentID), b)
}

// Load reads an agent's memory stream. Records with a missing timestamp get
// the current time, missing importance is recomputed from the text, and
// tokens are always rebuilt from the text so the tokenizer stays the single
// source of truth. The stream is truncated to the newest cap entries.
func (s *Store) Load(agentID string, cap int) ([]world.MemoryRecord, error) {
	raw, err := os.ReadFile(s.pathFor(agentID))
	if err != nil {
		return nil, err
	}
	var doc fileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("memory file for %s: %w", agentID, err)
	}

	now := time.Now().Unix()
	out := make([]world.MemoryRecord, 0, len(doc.Memory))
	for _, m := range doc.Memory {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		m.Tokens = world.Tokenize(m.Text)
		if m.TS == 0 {
			m.TS = now
		}
		if m.Importance == 0 {
			m.Importance = world.ImportanceOf(m.Text, m.Source)
		}
		out = append(out, m)
	}
	if cap > 0 && len(out) > cap {
		out = out[len(out)-cap:]
	}
	return out, nil
}

// Exists reports whether a saved stream is present for the agent.
func (s *Store) Exists(agentID string) bool {
	_, err := os.Stat(s.pathFor(agentID))
	return err == nil
}

func (s *Store) pathFor(agentID string) string {
	return filepath.Join(s.dir, sanitize(agentID)+".json")
}

// sanitize keeps agent IDs from escaping the store directory.
func sanitize(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func writeFileAtomic(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

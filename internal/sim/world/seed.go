package world

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed seed.schema.json
var seedSchemaJSON string

var (
	seedSchemaOnce sync.Once
	seedSchema     *jsonschema.Schema
	seedSchemaErr  error
)

func compiledSeedSchema() (*jsonschema.Schema, error) {
	seedSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("seed.schema.json", strings.NewReader(seedSchemaJSON)); err != nil {
			seedSchemaErr = err
			return
		}
		seedSchema, seedSchemaErr = c.Compile("seed.schema.json")
	})
	return seedSchema, seedSchemaErr
}

// SeedDoc is the structured seed input: POI coordinates plus the initial
// agent roster. Missing x/y/goals/traits default to zero values; id and type
// are required.
type SeedDoc struct {
	POIs   map[string][2]int `json:"pois"`
	Agents []SeedAgent       `json:"agents"`
}

type SeedAgent struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	X      int            `json:"x"`
	Y      int            `json:"y"`
	Goals  []string       `json:"goals"`
	Traits map[string]any `json:"traits"`
}

// ParseSeed validates raw seed JSON against the schema plus structural rules
// and decodes it. Nothing is committed here; LoadSeed re-checks before
// replacing world state.
func ParseSeed(data []byte) (SeedDoc, error) {
	var doc SeedDoc

	sch, err := compiledSeedSchema()
	if err != nil {
		return doc, fmt.Errorf("seed schema: %w", err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return doc, fmt.Errorf("seed: %w", err)
	}
	if err := sch.Validate(raw); err != nil {
		return doc, fmt.Errorf("seed: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("seed: %w", err)
	}
	if err := doc.check(); err != nil {
		return doc, err
	}
	return doc, nil
}

func ReadSeedFile(path string) (SeedDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedDoc{}, err
	}
	return ParseSeed(data)
}

func (d SeedDoc) check() error {
	seen := make(map[string]bool, len(d.Agents))
	for i, a := range d.Agents {
		if strings.TrimSpace(a.ID) == "" {
			return fmt.Errorf("seed: agent %d: missing id", i)
		}
		if strings.TrimSpace(a.Type) == "" {
			return fmt.Errorf("seed: agent %q: missing type", a.ID)
		}
		if seen[a.ID] {
			return fmt.Errorf("seed: duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

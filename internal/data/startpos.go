package data

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StartPosition is the spawn point and starting stats of a new character,
// keyed by race. Class only adjusts starting health.
type StartPosition struct {
	Race   uint8   `yaml:"race"`
	Map    uint32  `yaml:"map"`
	Zone   uint32  `yaml:"zone"`
	X      float32 `yaml:"x"`
	Y      float32 `yaml:"y"`
	Z      float32 `yaml:"z"`
	O      float32 `yaml:"o"`
	Health uint32  `yaml:"health"`
}

// StartTable provides character creation defaults.
type StartTable struct {
	byRace map[uint8]*StartPosition
}

// LoadStartTable reads start_positions.yaml from the data directory.
func LoadStartTable(dataDir string) (*StartTable, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, "start_positions.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read start_positions.yaml: %w", err)
	}
	var list []*StartPosition
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse start_positions.yaml: %w", err)
	}

	t := &StartTable{byRace: make(map[uint8]*StartPosition, len(list))}
	for _, p := range list {
		t.byRace[p.Race] = p
	}
	return t, nil
}

// ForRace returns the start position of a race, nil if the race cannot be
// created on this server.
func (t *StartTable) ForRace(race uint8) *StartPosition {
	return t.byRace[race]
}

func (t *StartTable) Count() int {
	return len(t.byRace)
}

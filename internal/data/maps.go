package data

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MapInfo holds metadata for a single map, loaded from maps.yaml.
type MapInfo struct {
	MapID        uint32  `yaml:"map_id"`
	Name         string  `yaml:"name"`
	Partition    int     `yaml:"partition"`    // update-worker partition
	Instanceable bool    `yaml:"instanceable"` // per-group instances
	EntryX       float32 `yaml:"entry_x"`
	EntryY       float32 `yaml:"entry_y"`
	EntryZ       float32 `yaml:"entry_z"`
	EntryO       float32 `yaml:"entry_o"`
}

// MapTable provides map metadata lookups.
type MapTable struct {
	maps       map[uint32]*MapInfo
	partitions int
}

// LoadMapTable reads maps.yaml from the data directory.
func LoadMapTable(dataDir string) (*MapTable, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, "maps.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read maps.yaml: %w", err)
	}
	var list []*MapInfo
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse maps.yaml: %w", err)
	}

	t := &MapTable{maps: make(map[uint32]*MapInfo, len(list))}
	for _, m := range list {
		if _, dup := t.maps[m.MapID]; dup {
			return nil, fmt.Errorf("maps.yaml: duplicate map %d", m.MapID)
		}
		t.maps[m.MapID] = m
		if m.Partition >= t.partitions {
			t.partitions = m.Partition + 1
		}
	}
	return t, nil
}

// Lookup returns the metadata of a map, nil if unknown.
func (t *MapTable) Lookup(mapID uint32) *MapInfo {
	return t.maps[mapID]
}

// Exists reports whether the map id is known.
func (t *MapTable) Exists(mapID uint32) bool {
	_, ok := t.maps[mapID]
	return ok
}

// Partitions returns the number of update partitions the table declares.
func (t *MapTable) Partitions() int {
	if t.partitions < 1 {
		return 1
	}
	return t.partitions
}

// Count returns the number of known maps.
func (t *MapTable) Count() int {
	return len(t.maps)
}

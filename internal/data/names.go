package data

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// NameTable holds the reserved and profane character name lists.
type NameTable struct {
	reserved map[string]struct{}
	profane  []string
}

type nameLists struct {
	Reserved []string `yaml:"reserved"`
	Profane  []string `yaml:"profane"`
}

// LoadNameTable reads reserved_names.yaml from the data directory.
func LoadNameTable(dataDir string) (*NameTable, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, "reserved_names.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read reserved_names.yaml: %w", err)
	}
	var lists nameLists
	if err := yaml.Unmarshal(raw, &lists); err != nil {
		return nil, fmt.Errorf("parse reserved_names.yaml: %w", err)
	}

	t := &NameTable{reserved: make(map[string]struct{}, len(lists.Reserved))}
	for _, n := range lists.Reserved {
		t.reserved[strings.ToLower(n)] = struct{}{}
	}
	for _, n := range lists.Profane {
		t.profane = append(t.profane, strings.ToLower(n))
	}
	return t, nil
}

// IsReserved reports whether the name is on the reserved list.
func (t *NameTable) IsReserved(name string) bool {
	_, ok := t.reserved[strings.ToLower(name)]
	return ok
}

// IsProfane reports whether the name contains a banned substring.
func (t *NameTable) IsProfane(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range t.profane {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func (t *NameTable) Count() int {
	return len(t.reserved) + len(t.profane)
}

var nameCaser = cases.Title(language.Und, cases.NoLower)

// NormalizeName canonicalizes a character name: NFC form, first letter
// upper-cased, the rest lowered. Clients send names in whatever casing the
// player typed; the database stores one canonical form.
func NormalizeName(name string) string {
	name = norm.NFC.String(strings.ToLower(name))
	return nameCaser.String(name)
}

package data

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDataFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"thrall":  "Thrall",
		"THRALL":  "Thrall",
		"tHrAlL":  "Thrall",
		"Énoriel": "Énoriel",
		"énoriel": "Énoriel",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNameTableLookups(t *testing.T) {
	dir := writeDataFile(t, "reserved_names.yaml", `
reserved:
  - Thrall
  - Jaina
profane:
  - dung
`)
	table, err := LoadNameTable(dir)
	if err != nil {
		t.Fatalf("LoadNameTable: %v", err)
	}

	if !table.IsReserved("thrall") || !table.IsReserved("THRALL") {
		t.Fatal("reserved lookup is not case-insensitive")
	}
	if table.IsReserved("Garrosh") {
		t.Fatal("unlisted name reported reserved")
	}
	if !table.IsProfane("Dungheap") {
		t.Fatal("profane substring not caught")
	}
	if table.IsProfane("Paladin") {
		t.Fatal("clean name reported profane")
	}
	if table.Count() != 3 {
		t.Fatalf("Count = %d, want 3", table.Count())
	}
}

func TestLoadMapTable(t *testing.T) {
	dir := writeDataFile(t, "maps.yaml", `
- map_id: 0
  name: Eastern Kingdoms
  partition: 0
- map_id: 1
  name: Kalimdor
  partition: 3
`)
	table, err := LoadMapTable(dir)
	if err != nil {
		t.Fatalf("LoadMapTable: %v", err)
	}
	if !table.Exists(0) || !table.Exists(1) || table.Exists(2) {
		t.Fatal("Exists wrong")
	}
	if info := table.Lookup(1); info == nil || info.Name != "Kalimdor" {
		t.Fatalf("Lookup(1) = %+v", info)
	}
	if table.Partitions() != 4 {
		t.Fatalf("Partitions = %d, want 4 (highest partition + 1)", table.Partitions())
	}
}

func TestLoadMapTableDuplicate(t *testing.T) {
	dir := writeDataFile(t, "maps.yaml", `
- map_id: 0
  name: A
- map_id: 0
  name: B
`)
	if _, err := LoadMapTable(dir); err == nil {
		t.Fatal("duplicate map id accepted")
	}
}

func TestStartTable(t *testing.T) {
	dir := writeDataFile(t, "start_positions.yaml", `
- race: 1
  map: 0
  zone: 12
  x: -8949.95
  y: -132.49
  z: 83.53
  health: 60
- race: 2
  map: 1
  zone: 14
  health: 80
`)
	table, err := LoadStartTable(dir)
	if err != nil {
		t.Fatalf("LoadStartTable: %v", err)
	}
	if p := table.ForRace(1); p == nil || p.Zone != 12 {
		t.Fatalf("ForRace(1) = %+v", p)
	}
	if table.ForRace(9) != nil {
		t.Fatal("unknown race got a start position")
	}
	if table.Count() != 2 {
		t.Fatalf("Count = %d, want 2", table.Count())
	}
}

package game

import (
	"strconv"
	"strings"
)

type equipSlot struct {
	display uint32
	invType uint8
	enchant uint32
}

// parseEquipmentCache decodes the characters.equipmentcache column:
// whitespace-separated "display:invtype:enchant" triples, one per slot.
// Garbage entries decode as empty slots rather than failing the enum.
func parseEquipmentCache(cache string) []equipSlot {
	fields := strings.Fields(cache)
	if len(fields) == 0 {
		return nil
	}
	out := make([]equipSlot, 0, len(fields))
	for _, field := range fields {
		var slot equipSlot
		parts := strings.SplitN(field, ":", 3)
		if len(parts) == 3 {
			if v, err := strconv.ParseUint(parts[0], 10, 32); err == nil {
				slot.display = uint32(v)
			}
			if v, err := strconv.ParseUint(parts[1], 10, 8); err == nil {
				slot.invType = uint8(v)
			}
			if v, err := strconv.ParseUint(parts[2], 10, 32); err == nil {
				slot.enchant = uint32(v)
			}
		}
		out = append(out, slot)
	}
	return out
}

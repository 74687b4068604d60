// Package entities contains core domain data structures.
package entities

import (
	"fmt"
	"strings"
)

// Kind identifies a category of world content. Its value is the collection
// path used by the remote service.
type Kind string

// Content kinds.
const (
	KindCharacter   Kind = "characters"
	KindMap         Kind = "maps"
	KindPowerSystem Kind = "powersystems"
	KindLore        Kind = "lore"
)

// AllKinds lists every content kind in display order.
var AllKinds = []Kind{KindCharacter, KindMap, KindPowerSystem, KindLore}

// kindLabels holds the plural and singular human-readable names per kind.
var kindLabels = map[Kind][2]string{
	KindCharacter:   {"characters", "character"},
	KindMap:         {"maps", "map"},
	KindPowerSystem: {"power systems", "power system"},
	KindLore:        {"lore", "lore"},
}

// kindAliases maps accepted user spellings to kinds.
var kindAliases = map[string]Kind{
	"character":     KindCharacter,
	"characters":    KindCharacter,
	"map":           KindMap,
	"maps":          KindMap,
	"powersystem":   KindPowerSystem,
	"powersystems":  KindPowerSystem,
	"power_system":  KindPowerSystem,
	"power_systems": KindPowerSystem,
	"power-system":  KindPowerSystem,
	"power-systems": KindPowerSystem,
	"lore":          KindLore,
}

// ParseKind resolves a user-supplied kind name (singular or plural).
func ParseKind(s string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown content kind %q (valid: characters, maps, powersystems, lore)", s)
	}
	return k, nil
}

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	_, ok := kindLabels[k]
	return ok
}

// Path returns the collection path segment for the kind.
func (k Kind) Path() string {
	return string(k)
}

// Plural returns the plural display name, e.g. "power systems".
func (k Kind) Plural() string {
	if l, ok := kindLabels[k]; ok {
		return l[0]
	}
	return string(k)
}

// Singular returns the singular display name, e.g. "power system".
func (k Kind) Singular() string {
	if l, ok := kindLabels[k]; ok {
		return l[1]
	}
	return string(k)
}

// requiredFields lists the top-level payload fields every entity of a kind
// must carry.
var requiredFields = map[Kind][]string{
	KindCharacter:   {"name"},
	KindMap:         {"name", "description"},
	KindPowerSystem: {"name", "description"},
	KindLore:        {"title", "content", "category"},
}

// RequiredFields returns the payload fields that must be present and
// non-empty for the kind.
func (k Kind) RequiredFields() []string {
	out := make([]string, len(requiredFields[k]))
	copy(out, requiredFields[k])
	return out
}

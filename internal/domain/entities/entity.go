package entities

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Payload is the kind-specific body of an entity. It is opaque to the sync
// layer apart from a few descriptive top-level fields.
type Payload map[string]any

// reservedFields are entity fields owned by the store, never by the payload.
var reservedFields = []string{"id", "world_id", "kind", "created_at", "updated_at"}

// Entity is a piece of world content (character, map, power system or lore).
// On the wire the payload fields sit next to the store-assigned fields.
type Entity struct {
	ID        string
	WorldID   string
	Kind      Kind
	Payload   Payload
	CreatedAt time.Time
	UpdatedAt time.Time
}

type entityHeader struct {
	ID        string    `json:"id"`
	WorldID   string    `json:"world_id"`
	Kind      Kind      `json:"kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarshalJSON flattens the payload next to the header fields.
func (e Entity) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(e.Payload)+len(reservedFields))
	for k, v := range e.Payload {
		doc[k] = v
	}
	doc["id"] = e.ID
	doc["world_id"] = e.WorldID
	if e.Kind != "" {
		doc["kind"] = e.Kind
	}
	doc["created_at"] = e.CreatedAt
	doc["updated_at"] = e.UpdatedAt
	return json.Marshal(doc)
}

// UnmarshalJSON splits a flat document into header fields and payload.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var hdr entityHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return fmt.Errorf("decoding entity header: %w", err)
	}
	var doc Payload
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding entity payload: %w", err)
	}
	*e = Entity{
		ID:        hdr.ID,
		WorldID:   hdr.WorldID,
		Kind:      hdr.Kind,
		Payload:   doc.WithoutReserved(),
		CreatedAt: hdr.CreatedAt,
		UpdatedAt: hdr.UpdatedAt,
	}
	return nil
}

// Name returns the entity's display name: "name", falling back to "title".
func (e Entity) Name() string {
	return e.Payload.String("name", "title")
}

// WithoutReserved returns a copy of the payload with store-assigned fields removed.
func (p Payload) WithoutReserved() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, f := range reservedFields {
		delete(out, f)
	}
	return out
}

// Merge returns a new payload with patch fields written over p.
func (p Payload) Merge(patch Payload) Payload {
	out := make(Payload, len(p)+len(patch))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range patch.WithoutReserved() {
		out[k] = v
	}
	return out
}

// String returns the first non-empty string value among keys.
func (p Payload) String(keys ...string) string {
	for _, k := range keys {
		if s, ok := p[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// Matches reports whether every field of want is present in p with an equal
// JSON encoding. Store-assigned fields in want are ignored.
func (p Payload) Matches(want Payload) bool {
	for k, v := range want.WithoutReserved() {
		got, ok := p[k]
		if !ok {
			return false
		}
		a, errA := json.Marshal(got)
		b, errB := json.Marshal(v)
		if errA != nil || errB != nil || string(a) != string(b) {
			return false
		}
	}
	return true
}

// Missing returns the fields that are absent from p or hold an empty string.
func (p Payload) Missing(fields ...string) []string {
	var out []string
	for _, f := range fields {
		v, ok := p[f]
		if !ok || v == nil {
			out = append(out, f)
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			out = append(out, f)
		}
	}
	return out
}

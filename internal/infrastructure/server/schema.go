package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// extraProperties holds the typed optional fields of each kind.
var extraProperties = map[entities.Kind]map[string]any{
	entities.KindCharacter: {
		"imageUrl": map[string]any{"type": "string"},
	},
	entities.KindMap: {
		"imageUrl": map[string]any{"type": "string"},
		"regions":  map[string]any{"type": "array"},
		"markers":  map[string]any{"type": "array"},
		"layers":   map[string]any{"type": "array"},
	},
	entities.KindLore: {
		"tags": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
}

type payloadSchemas struct {
	create map[entities.Kind]*jsonschema.Schema
	update map[entities.Kind]*jsonschema.Schema
}

// compilePayloadSchemas builds a create and an update schema per kind.
// Create requires world_id and the kind's required fields; update only
// checks the types of whatever fields are present.
func compilePayloadSchemas() (*payloadSchemas, error) {
	ps := &payloadSchemas{
		create: make(map[entities.Kind]*jsonschema.Schema),
		update: make(map[entities.Kind]*jsonschema.Schema),
	}
	for _, kind := range entities.AllKinds {
		create, err := compileSchema(kind, "create", schemaDocument(kind, true))
		if err != nil {
			return nil, err
		}
		update, err := compileSchema(kind, "update", schemaDocument(kind, false))
		if err != nil {
			return nil, err
		}
		ps.create[kind] = create
		ps.update[kind] = update
	}
	return ps, nil
}

func schemaDocument(kind entities.Kind, forCreate bool) map[string]any {
	nonEmpty := map[string]any{"type": "string", "minLength": 1}

	props := map[string]any{"world_id": nonEmpty}
	required := []string{}
	if forCreate {
		required = append(required, "world_id")
	}
	for _, field := range kind.RequiredFields() {
		props[field] = nonEmpty
		if forCreate {
			required = append(required, field)
		}
	}
	for field, def := range extraProperties[kind] {
		props[field] = def
	}

	return map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func compileSchema(kind entities.Kind, variant string, doc map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding %s schema for %s: %w", variant, kind, err)
	}
	url := fmt.Sprintf("mem://realm/%s/%s.json", kind, variant)

	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, strings.NewReader(string(raw))); err != nil {
		return nil, fmt.Errorf("adding %s schema for %s: %w", variant, kind, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling %s schema for %s: %w", variant, kind, err)
	}
	return s, nil
}

func (ps *payloadSchemas) validateCreate(kind entities.Kind, body entities.Payload) error {
	return validatePayload(ps.create[kind], kind, body)
}

func (ps *payloadSchemas) validateUpdate(kind entities.Kind, body entities.Payload) error {
	return validatePayload(ps.update[kind], kind, body)
}

func validatePayload(s *jsonschema.Schema, kind entities.Kind, body entities.Payload) error {
	if s == nil {
		return badRequest("unknown content kind %q", kind)
	}
	err := s.Validate(map[string]any(body))
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		return badRequest("invalid %s: %s", kind.Singular(), describe(verr))
	}
	return badRequest("invalid %s: %v", kind.Singular(), err)
}

// describe flattens a validation error tree into its leaf messages.
func describe(verr *jsonschema.ValidationError) string {
	var leaves []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			leaves = append(leaves, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	return strings.Join(leaves, "; ")
}

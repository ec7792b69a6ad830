package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a minimal JSON-schema-like tool descriptor: {name, description,
// input_schema}. It is generated on demand by the registry unless a custom
// loader or a hand-authored schema has been registered for the tool.
type Schema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Compile compiles the schema's InputSchema for payload validation. Returns an
// error if the schema is not well-formed JSON Schema.
func (s *Schema) Compile() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	raw, err := json.Marshal(s.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema for %q: %w", s.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode input schema for %q: %w", s.Name, err)
	}
	const resourceURL = "mem://tool-schema"
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, fmt.Errorf("add schema resource for %q: %w", s.Name, err)
	}
	return c.Compile(resourceURL)
}

// Validate compiles the schema and validates payload (a JSON object) against
// it. Used by the Agent Runner boundary before dispatching a tool call, giving
// the "schema-validation failure" tool-error kind (§7 kind 6) real teeth.
func (s *Schema) Validate(payload []byte) error {
	compiled, err := s.Compile()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("decode payload for %q: %w", s.Name, err)
	}
	return compiled.Validate(inst)
}

func emptyObjectSchema(name, description string) *Schema {
	return &Schema{
		Name:        name,
		Description: description,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

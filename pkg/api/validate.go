package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/dmaia/remora/internal/core/domain"
)

// RequestValidators holds one compiled JSON Schema per registered tool,
// built from the tool's declared parameters.
type RequestValidators struct {
	schemas map[string]*jsonschema.Schema
}

// NewRequestValidators compiles request schemas for every tool in the
// registry. Undeclared properties are allowed so invocation control keys
// pass through to the engine.
func NewRequestValidators(registry *domain.ToolRegistry) (*RequestValidators, error) {
	v := &RequestValidators{schemas: make(map[string]*jsonschema.Schema)}
	for _, tool := range registry.List() {
		schema, err := compileToolSchema(tool)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
		}
		v.schemas[tool.Name] = schema
	}
	return v, nil
}

// Validate checks an invocation body against the tool's schema. Tools
// without a compiled schema accept anything.
func (v *RequestValidators) Validate(toolName string, params map[string]any) error {
	schema, ok := v.schemas[toolName]
	if !ok {
		return nil
	}

	// Round-trip through the schema library's decoder for correct number
	// handling (json.Number instead of float64).
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("parameter validation failed: %s", err)
	}
	return nil
}

func compileToolSchema(tool *domain.Tool) (*jsonschema.Schema, error) {
	doc, err := json.Marshal(schemaForTool(tool))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema JSON: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", parsed); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// schemaForTool builds a JSON Schema object for the tool's parameters.
func schemaForTool(tool *domain.Tool) map[string]any {
	properties := map[string]any{}
	required := []string{}
	for _, p := range tool.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

package executor

import (
	"encoding/json"
	"fmt"
)

// schemaProperty is the subset of JSON Schema tool.BuildSchema emits for a
// single parameter: a type name, an optional enum, and a description we
// don't need here.
type schemaProperty struct {
	Type string   `json:"type"`
	Enum []string `json:"enum,omitempty"`
}

type toolSchema struct {
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required"`
}

// validateArgs checks rawArgs against a tool's declared schema: every
// required property must be present, and every property present with a
// declared type must match it. Implements only the minimal JSON Schema
// subset tool.BuildSchema actually produces, not the full standard.
// Unknown properties (e.g. "confirm", which most schemas don't declare) pass
// through unchecked — the executor's confirmation gate reads it directly,
// and handlers are free to accept fields their schema doesn't enumerate.
//
// Returns the re-marshaled, validated argument object for the handler.
func validateArgs(schema json.RawMessage, rawArgs json.RawMessage) (json.RawMessage, error) {
	var s toolSchema
	if len(schema) > 0 {
		if err := json.Unmarshal(schema, &s); err != nil {
			return nil, fmt.Errorf("invalid tool schema: %w", err)
		}
	}

	args := map[string]any{}
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	}

	for _, req := range s.Required {
		if _, ok := args[req]; !ok {
			return nil, fmt.Errorf("missing required field %q", req)
		}
	}

	for name, v := range args {
		prop, ok := s.Properties[name]
		if !ok {
			continue
		}
		if err := checkType(name, prop.Type, v); err != nil {
			return nil, err
		}
		if len(prop.Enum) > 0 {
			if sv, ok := v.(string); ok && !containsStr(prop.Enum, sv) {
				return nil, fmt.Errorf("field %q must be one of %v, got %q", name, prop.Enum, sv)
			}
		}
	}

	normalized, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("re-marshal validated arguments: %w", err)
	}
	return normalized, nil
}

func checkType(name, declared string, v any) error {
	switch declared {
	case "string":
		if _, ok := v.(string); !ok {
			return fmt.Errorf("field %q must be a string", name)
		}
	case "integer":
		n, ok := v.(float64)
		if !ok || n != float64(int64(n)) {
			return fmt.Errorf("field %q must be an integer", name)
		}
	case "number":
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("field %q must be a number", name)
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("field %q must be a boolean", name)
		}
	case "array":
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("field %q must be an array", name)
		}
	case "object":
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("field %q must be an object", name)
		}
	}
	return nil
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Package workflowdef validates workflow definitions before they are
// pushed to the automation engine. The engine rejects malformed graphs
// too, but late and with opaque errors; validating here turns them
// into 400s.
package workflowdef

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const definitionSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["nodes", "connections"],
	"properties": {
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "type"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"type": {"type": "string", "minLength": 1},
					"name": {"type": "string"},
					"parameters": {"type": "object"}
				}
			}
		},
		"connections": {"type": "object"}
	}
}`

var schema = gojsonschema.NewStringLoader(definitionSchema)

// Validate checks that definition is a well-formed workflow graph.
func Validate(definition map[string]any) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(definition))
	if err != nil {
		return fmt.Errorf("failed to validate workflow definition: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return fmt.Errorf("invalid workflow definition: %s", strings.Join(problems, "; "))
}

// internal/rules/schema.go
package rules

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ruleRecordSchema guards the rule persistence file. Records written by
// older builds or edited by hand must at least carry the identity and
// routing fields; anything else is dropped on load rather than allowed to
// poison evaluation.
const ruleRecordSchema = `{
	"type": "object",
	"required": ["id", "condition_type", "routing_team", "adjuster"],
	"properties": {
		"id":              {"type": "string", "minLength": 1},
		"name":            {"type": "string"},
		"description":     {"type": "string"},
		"enabled":         {"type": "boolean"},
		"priority":        {"type": "integer"},
		"condition_type":  {"type": "string", "minLength": 1},
		"condition_value": {"type": "string"},
		"claim_type":      {"type": "string"},
		"routing_team":    {"type": "string", "minLength": 1},
		"adjuster":        {"type": "string", "minLength": 1},
		"operator":        {"type": "string", "enum": [">=", ">", "<=", "<"]},
		"threshold":       {"type": "number"},
		"fraud_category":      {"type": "string"},
		"severity_category":   {"type": "string"},
		"complexity_category": {"type": "string"},
		"created_at":      {"type": "string"},
		"updated_at":      {"type": "string"}
	}
}`

var recordSchemaLoader = gojsonschema.NewStringLoader(ruleRecordSchema)

// validateRecord checks one raw rule record against the schema.
func validateRecord(raw []byte) error {
	result, err := gojsonschema.Validate(recordSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("rule record invalid: %v", errs)
	}
	return nil
}

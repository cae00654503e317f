package parse

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildApplicationJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. Serialized extraction payloads and reviewer-verified
// submissions are both validated against it before persistence.
func BuildApplicationJSONSchema() map[string]any {
	address := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"street":   map[string]any{"type": "string"},
			"city":     map[string]any{"type": "string"},
			"state":    map[string]any{"type": "string"},
			"zip_code": map[string]any{"type": "string", "pattern": `^$|^\d{5}(-\d{4})?$`},
		},
		"required": []string{"street", "city", "state", "zip_code"},
	}
	income := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"monthly_income":             map[string]any{"type": "number", "minimum": 0.0},
			"employer_name":              map[string]any{"type": "string"},
			"employment_duration_months": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"monthly_income", "employer_name", "employment_duration_months"},
	}
	ocr := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"raw_text":   map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 100.0},
		},
		"required": []string{"raw_text", "confidence"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"applicant_name": map[string]any{"type": "string"},
			"address":        address,
			"income_details": income,
			"loan_amount":    map[string]any{"type": "number", "minimum": 0.0},
			"ocr_data":       ocr,
		},
		"required": []string{"applicant_name", "address", "income_details", "loan_amount", "ocr_data"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// ValidateExtractedJSON checks a serialized extraction against the
// application schema.
func ValidateExtractedJSON(data []byte) error {
	return ValidateJSONAgainstSchema(BuildApplicationJSONSchema(), data)
}

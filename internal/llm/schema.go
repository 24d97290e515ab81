package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildBillJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. Every field is optional and may be an empty string: a bill
// with an unreadable field still validates (the export writes an empty cell).
func BuildBillJSONSchema() map[string]any {
	props := map[string]any{
		"Petrol Pump Name":  map[string]any{"type": "string"},
		"Date":              map[string]any{"type": "string", "pattern": `^$|^\d{2}/\d{2}/\d{4}$`},
		"Product":           map[string]any{"type": "string", "enum": []string{"", "Petrol", "Diesel"}},
		"Volume(L)":         decimalProp(),
		"Rate per Litre":    decimalProp(),
		"Total Amount (Rs)": decimalProp(),
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^$|^\d+(\.\d{1,2})?$`,
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

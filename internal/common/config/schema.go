// internal/common/config/schema.go
package config

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// sourceSchema constrains one sources[] entry. Enums here are the single
// source of truth for recognized delivery modes, channels and formats.
const sourceSchema = `{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id":               {"type": "string", "minLength": 1},
		"delivery_mode":    {"type": "string", "enum": ["notify", "export"]},
		"interval_seconds": {"type": "integer", "minimum": 1},
		"channel":          {"type": "string", "enum": ["discord", "email"]},
		"export_format":    {"type": "string", "enum": ["delimited-text", "spreadsheet-binary"]},
		"file_name":        {"type": "string"},
		"single_column":    {"type": "string"},
		"txt_file_name":    {"type": "string"},
		"column_mapping":   {"type": "object", "additionalProperties": {"type": "string"}}
	}
}`

func validateSourceSchema(src SourceConfig) error {
	doc := map[string]interface{}{
		"id":               src.ID,
		"delivery_mode":    src.DeliveryMode,
		"interval_seconds": src.IntervalSeconds,
		"channel":          src.Channel,
		"export_format":    src.ExportFormat,
	}
	if src.FileName != "" {
		doc["file_name"] = src.FileName
	}
	if src.SingleColumn != "" {
		doc["single_column"] = src.SingleColumn
	}
	if src.TxtFileName != "" {
		doc["txt_file_name"] = src.TxtFileName
	}
	if len(src.ColumnMapping) > 0 {
		mapping := make(map[string]interface{}, len(src.ColumnMapping))
		for k, v := range src.ColumnMapping {
			mapping[k] = v
		}
		doc["column_mapping"] = mapping
	}

	schemaLoader := gojsonschema.NewStringLoader(sourceSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("source validation failed: %v", errs)
	}

	// Cross-field constraints the schema cannot express.
	if src.DeliveryMode == DeliveryModeExport {
		if src.SingleColumn != "" && src.TxtFileName == "" {
			return fmt.Errorf("txt_file_name is required when single_column is set")
		}
		if src.SingleColumn == "" && src.FileName == "" {
			return fmt.Errorf("file_name is required for export delivery")
		}
	}

	return nil
}

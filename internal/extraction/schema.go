package extraction

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// pageRecordsSchema constrains the page classifier's response. It is
// deliberately loose on optionals — the aggregation core treats missing
// fields as absent — but strict on the two keys nothing downstream can
// work without.
const pageRecordsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["pageNumber", "pageType"],
    "properties": {
      "pageNumber": {"type": "integer", "minimum": 1},
      "pageType": {"type": "string", "minLength": 1},
      "confidence": {"type": "number"},
      "isSectionStart": {"type": "boolean"},
      "isUnitStart": {"type": "boolean"},
      "isUnitEnd": {"type": "boolean"},
      "startMarkerText": {"type": "string"},
      "images": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["imagePath"],
          "properties": {
            "imageId": {"type": "string"},
            "imagePath": {"type": "string", "minLength": 1},
            "category": {"type": "string"},
            "confidence": {"type": "number"},
            "shouldUse": {"type": "boolean"}
          }
        }
      }
    }
  }
}`

// bulkUnitsSchema constrains the bulk unit extractor's response.
const bulkUnitsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["unitTypeName"],
    "properties": {
      "unitTypeName": {"type": "string", "minLength": 1},
      "description": {"type": "string"},
      "specs": {"type": "object"}
    }
  }
}`

var (
	compiledPageRecordsSchema = jsonschema.MustCompileString("pageRecords.json", pageRecordsSchema)
	compiledBulkUnitsSchema   = jsonschema.MustCompileString("bulkUnits.json", bulkUnitsSchema)
)

// validateAgainst checks a raw JSON document against a compiled schema.
func validateAgainst(schema *jsonschema.Schema, doc []byte) error {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response failed schema validation: %w", err)
	}
	return nil
}

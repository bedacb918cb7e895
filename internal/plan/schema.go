package plan

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/sitescope/sitescope/internal/analysis"
)

// actionPlanSchema constrains synthesized plans: 8 to 12 items, closed
// enums for the qualitative fields, and at least one step per item. An
// item id is optional because sanitizeItems assigns missing ones.
const actionPlanSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "minItems": 8,
      "maxItems": 12,
      "items": {
        "type": "object",
        "required": [
          "title", "description", "priority", "impact", "effort",
          "category", "timeframe", "steps", "expectedImprovement"
        ],
        "properties": {
          "id": {"type": "string"},
          "title": {"type": "string", "minLength": 1},
          "description": {"type": "string", "minLength": 1},
          "priority": {"enum": ["critical", "high", "medium", "low"]},
          "impact": {"enum": ["high", "medium", "low"]},
          "effort": {"enum": ["high", "medium", "low"]},
          "category": {"enum": ["technical", "content", "keywords", "competitors", "user_experience", "local_seo"]},
          "timeframe": {"enum": ["immediate", "this_week", "this_month", "next_quarter"]},
          "steps": {
            "type": "array",
            "minItems": 1,
            "items": {"type": "string", "minLength": 1}
          },
          "expectedImprovement": {"type": "string"},
          "tools": {"type": "array", "items": {"type": "string"}},
          "dependsOn": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var planSchema = mustSchema(actionPlanSchema)

func mustSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("plan: embedded schema does not compile: %v", err))
	}
	return schema
}

// parseItems validates raw synthesized JSON against the plan schema and
// decodes the items.
func parseItems(raw []byte) ([]analysis.ActionItem, error) {
	result, err := planSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate plan: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("plan validation failed: %v", errs)
	}

	var doc struct {
		Items []analysis.ActionItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return sanitizeItems(doc.Items), nil
}

// sanitizeItems assigns missing or duplicate ids and drops dependencies
// that do not reference an earlier item, so the list stays acyclic by
// construction.
func sanitizeItems(items []analysis.ActionItem) []analysis.ActionItem {
	seen := make(map[string]bool, len(items))
	for i := range items {
		if items[i].ID == "" || seen[items[i].ID] {
			id := fmt.Sprintf("item-%d", i+1)
			for n := 2; seen[id]; n++ {
				id = fmt.Sprintf("item-%d-%d", i+1, n)
			}
			items[i].ID = id
		}
		var deps []string
		for _, dep := range items[i].DependsOn {
			if seen[dep] {
				deps = append(deps, dep)
			}
		}
		items[i].DependsOn = deps
		seen[items[i].ID] = true
	}
	return items
}

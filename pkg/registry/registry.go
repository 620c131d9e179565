// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

func LoadRegistry(path string) (*TemplateRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg TemplateRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Find returns the template with the given ID, nil when unknown.
func (r *TemplateRegistry) Find(id string) *ImportTemplate {
	for i := range r.Templates {
		if r.Templates[i].ID == id {
			return &r.Templates[i]
		}
	}
	return nil
}

// ForEntity returns the templates targeting one taxonomy entity.
func (r *TemplateRegistry) ForEntity(entity string) []ImportTemplate {
	var out []ImportTemplate
	for _, t := range r.Templates {
		if t.Entity == entity {
			out = append(out, t)
		}
	}
	return out
}

// ValidateRow checks one parsed workbook row against the template's JSON
// schema. The returned messages are suitable for showing next to the row
// number in the import report.
func (t *ImportTemplate) ValidateRow(row map[string]interface{}) []string {
	if t.RowSchema == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(t.RowSchema)
	documentLoader := gojsonschema.NewGoLoader(row)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return []string{fmt.Sprintf("schema validation error: %v", err)}
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return msgs
}

// Validate checks the registry's own consistency: unique IDs, known entities,
// and at least one column per template.
func (r *TemplateRegistry) Validate() error {
	seen := map[string]bool{}
	for _, t := range r.Templates {
		if t.ID == "" {
			return fmt.Errorf("template with empty id")
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate template id %q", t.ID)
		}
		seen[t.ID] = true

		switch t.Entity {
		case "domains", "controls", "specifications":
		default:
			return fmt.Errorf("template %q targets unknown entity %q", t.ID, t.Entity)
		}

		if len(t.Columns) == 0 {
			return fmt.Errorf("template %q has no columns", t.ID)
		}
		for _, c := range t.Columns {
			if strings.TrimSpace(c.Header) == "" || strings.TrimSpace(c.Field) == "" {
				return fmt.Errorf("template %q has a column with empty header or field", t.ID)
			}
		}
	}
	return nil
}

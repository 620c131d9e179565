// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRegistry() TemplateRegistry {
	return TemplateRegistry{
		Version: "1.0",
		Templates: []ImportTemplate{
			{
				ID:          "specifications-v1",
				DisplayName: "Specifications import",
				Entity:      "specifications",
				SheetName:   "Specifications",
				HeaderRow:   1,
				Columns: []TemplateColumn{
					{Header: "Code", Field: "code", Required: true},
					{Header: "Name (EN)", Field: "nameEn", Required: true},
					{Header: "Name (AR)", Field: "nameAr"},
					{Header: "Capability", Field: "capabilityLevel", Required: true},
				},
				RowSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"code", "capabilityLevel"},
					"properties": map[string]interface{}{
						"code": map[string]interface{}{"type": "string", "minLength": 1},
						"capabilityLevel": map[string]interface{}{
							"type": "string",
							"enum": []interface{}{"basic", "advanced", "optimal"},
						},
					},
				},
			},
			{
				ID:        "domains-v1",
				Entity:    "domains",
				SheetName: "Domains",
				Columns:   []TemplateColumn{{Header: "Code", Field: "code", Required: true}},
			},
		},
	}
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "1.0",
		"templates": [
			{"id": "domains-v1", "entity": "domains", "sheetName": "Domains",
			 "columns": [{"header": "Code", "field": "code", "required": true}]}
		]
	}`), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Templates, 1)
	assert.Equal(t, "domains-v1", reg.Templates[0].ID)
	assert.NoError(t, reg.Validate())
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry("/nonexistent/templates.json")
	assert.Error(t, err)
}

func TestFindAndForEntity(t *testing.T) {
	reg := sampleRegistry()

	assert.NotNil(t, reg.Find("specifications-v1"))
	assert.Nil(t, reg.Find("ghost"))

	specs := reg.ForEntity("specifications")
	require.Len(t, specs, 1)
	assert.Equal(t, "specifications-v1", specs[0].ID)
	assert.Empty(t, reg.ForEntity("controls"))
}

func TestValidateRow(t *testing.T) {
	reg := sampleRegistry()
	tpl := reg.Find("specifications-v1")
	require.NotNil(t, tpl)

	assert.Empty(t, tpl.ValidateRow(map[string]interface{}{
		"code":            "1-1-1",
		"capabilityLevel": "basic",
	}))

	msgs := tpl.ValidateRow(map[string]interface{}{
		"code":            "1-1-1",
		"capabilityLevel": "extreme",
	})
	require.NotEmpty(t, msgs)

	msgs = tpl.ValidateRow(map[string]interface{}{"capabilityLevel": "basic"})
	require.NotEmpty(t, msgs)
}

func TestRegistryValidate(t *testing.T) {
	reg := sampleRegistry()
	assert.NoError(t, reg.Validate())

	dup := sampleRegistry()
	dup.Templates = append(dup.Templates, dup.Templates[0])
	assert.Error(t, dup.Validate())

	bad := sampleRegistry()
	bad.Templates[0].Entity = "widgets"
	assert.Error(t, bad.Validate())

	empty := sampleRegistry()
	empty.Templates[1].Columns = nil
	assert.Error(t, empty.Validate())
}

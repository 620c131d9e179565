// pkg/registry/schema.go
package registry

// TemplateRegistry is the catalog of Excel import templates the admin app
// accepts. Each template binds a workbook layout to a taxonomy entity and
// carries a JSON schema every parsed row must satisfy.
type TemplateRegistry struct {
	Version     string           `json:"version"`
	LastUpdated string           `json:"lastUpdated"`
	Templates   []ImportTemplate `json:"templates"`
}

// ImportTemplate describes one accepted workbook layout.
type ImportTemplate struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"displayName"`
	Description string          `json:"description"`
	Entity      string          `json:"entity"` // "domains", "controls", or "specifications"
	Version     string          `json:"version"`
	SheetName   string          `json:"sheetName"`
	HeaderRow   int             `json:"headerRow"`
	Columns     []TemplateColumn `json:"columns"`
	RowSchema   map[string]interface{} `json:"rowSchema"`
	MaxRows     int             `json:"maxRows"`
	Tags        []string        `json:"tags"`
}

// TemplateColumn maps a workbook header to a row field.
type TemplateColumn struct {
	Header   string `json:"header"`
	Field    string `json:"field"`
	Required bool   `json:"required"`
}

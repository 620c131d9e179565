// Package excel implements the workbook import/export pipeline: bulk-loading
// taxonomy rows from .xlsx files against registered templates, and exporting a
// framework's full hierarchy back out.
package excel

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"taqyim/internal/common/config"
	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/logger"
	"taqyim/internal/common/metrics"
	"taqyim/internal/models"
	"taqyim/internal/taxonomy"
	"taqyim/pkg/registry"
)

// RowError ties validation messages to a 1-based workbook row number.
type RowError struct {
	Row      int      `json:"row"`
	Messages []string `json:"messages"`
}

// Report summarizes one import run. Rows that fail validation are skipped and
// reported; valid rows are imported regardless of failures elsewhere in the
// sheet.
type Report struct {
	TemplateID string     `json:"templateId"`
	Total      int        `json:"total"`
	Imported   int        `json:"imported"`
	Skipped    int        `json:"skipped"`
	Errors     []RowError `json:"errors,omitempty"`
}

// Importer parses workbooks against the template registry and writes the
// resulting taxonomy records.
type Importer struct {
	taxonomy *taxonomy.Service
	registry *registry.TemplateRegistry
	cfg      config.ImportConfig
	logger   logger.Logger
}

func NewImporter(svc *taxonomy.Service, reg *registry.TemplateRegistry, cfg config.ImportConfig, log logger.Logger) *Importer {
	return &Importer{
		taxonomy: svc,
		registry: reg,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "excel-importer"}),
	}
}

// parsedRow is one workbook row mapped to template fields.
type parsedRow struct {
	number int
	fields map[string]interface{}
}

// Import runs a full import: parse, per-row schema validation, then
// entity-specific writes. The framework must already exist; imports never
// create frameworks.
func (im *Importer) Import(ctx context.Context, templateID, frameworkID string, r io.Reader) (*Report, error) {
	tpl := im.registry.Find(templateID)
	if tpl == nil {
		return nil, apperrors.NewTemplateNotFoundError(templateID)
	}

	rows, err := im.parseWorkbook(r, tpl)
	if err != nil {
		return nil, err
	}

	report := &Report{TemplateID: templateID, Total: len(rows)}
	for _, row := range rows {
		if msgs := tpl.ValidateRow(row.fields); len(msgs) > 0 {
			report.Skipped++
			report.Errors = append(report.Errors, RowError{Row: row.number, Messages: msgs})
			metrics.ImportRowsProcessed.WithLabelValues(templateID, "invalid").Inc()
			continue
		}

		if err := im.importRow(ctx, tpl.Entity, frameworkID, row.fields); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, RowError{Row: row.number, Messages: []string{err.Error()}})
			metrics.ImportRowsProcessed.WithLabelValues(templateID, "failed").Inc()
			continue
		}

		report.Imported++
		metrics.ImportRowsProcessed.WithLabelValues(templateID, "imported").Inc()
	}

	im.logger.Info("import finished", map[string]interface{}{
		"templateId":  templateID,
		"frameworkId": frameworkID,
		"total":       report.Total,
		"imported":    report.Imported,
		"skipped":     report.Skipped,
	})
	return report, nil
}

// parseWorkbook reads the template's sheet and maps header columns to fields.
func (im *Importer) parseWorkbook(r io.Reader, tpl *registry.ImportTemplate) ([]parsedRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewImportParseFailedError(err)
	}
	defer f.Close()

	sheetRows, err := f.GetRows(tpl.SheetName)
	if err != nil {
		return nil, apperrors.NewImportParseFailedError(fmt.Errorf("sheet %q: %w", tpl.SheetName, err))
	}

	headerRow := tpl.HeaderRow
	if headerRow <= 0 {
		headerRow = 1
	}
	if len(sheetRows) < headerRow {
		return nil, apperrors.NewImportParseFailedError(fmt.Errorf("sheet %q has no header row", tpl.SheetName))
	}

	// Map column index -> field name from the header text.
	fieldByCol := map[int]string{}
	for i, header := range sheetRows[headerRow-1] {
		for _, col := range tpl.Columns {
			if strings.EqualFold(strings.TrimSpace(header), col.Header) {
				fieldByCol[i] = col.Field
			}
		}
	}
	for _, col := range tpl.Columns {
		if !col.Required {
			continue
		}
		found := false
		for _, field := range fieldByCol {
			if field == col.Field {
				found = true
				break
			}
		}
		if !found {
			return nil, apperrors.NewImportParseFailedError(fmt.Errorf("required column %q missing", col.Header))
		}
	}

	maxRows := tpl.MaxRows
	if maxRows <= 0 {
		maxRows = im.cfg.MaxRows
	}

	var rows []parsedRow
	for i := headerRow; i < len(sheetRows); i++ {
		if maxRows > 0 && len(rows) >= maxRows {
			return nil, apperrors.NewImportParseFailedError(fmt.Errorf("sheet exceeds %d rows", maxRows))
		}

		fields := map[string]interface{}{}
		empty := true
		for colIdx, field := range fieldByCol {
			value := ""
			if colIdx < len(sheetRows[i]) {
				value = strings.TrimSpace(sheetRows[i][colIdx])
			}
			if value == "" {
				continue
			}
			empty = false
			fields[field] = value
		}
		if empty {
			continue
		}
		rows = append(rows, parsedRow{number: i + 1, fields: fields})
	}
	return rows, nil
}

func (im *Importer) importRow(ctx context.Context, entity, frameworkID string, fields map[string]interface{}) error {
	switch entity {
	case "domains":
		return im.importDomain(ctx, frameworkID, fields)
	case "controls":
		return im.importControl(ctx, frameworkID, fields)
	case "specifications":
		return im.importSpecification(ctx, frameworkID, fields)
	default:
		return fmt.Errorf("unsupported entity %q", entity)
	}
}

func (im *Importer) importDomain(ctx context.Context, frameworkID string, fields map[string]interface{}) error {
	_, err := im.taxonomy.CreateDomain(ctx, models.Domain{
		FrameworkID: frameworkID,
		Code:        str(fields, "code"),
		Name:        models.LocalizedText{En: str(fields, "nameEn"), Ar: str(fields, "nameAr")},
		Description: models.LocalizedText{En: str(fields, "descriptionEn"), Ar: str(fields, "descriptionAr")},
		Order:       num(fields, "order"),
	})
	return err
}

func (im *Importer) importControl(ctx context.Context, frameworkID string, fields map[string]interface{}) error {
	domain, err := im.findDomainByCode(ctx, frameworkID, str(fields, "domainCode"))
	if err != nil {
		return err
	}

	_, err = im.taxonomy.CreateControl(ctx, models.Control{
		FrameworkID: frameworkID,
		DomainID:    domain.ID,
		Code:        str(fields, "code"),
		Name:        models.LocalizedText{En: str(fields, "nameEn"), Ar: str(fields, "nameAr")},
		Description: models.LocalizedText{En: str(fields, "descriptionEn"), Ar: str(fields, "descriptionAr")},
		Order:       num(fields, "order"),
	})
	return err
}

func (im *Importer) importSpecification(ctx context.Context, frameworkID string, fields map[string]interface{}) error {
	domain, err := im.findDomainByCode(ctx, frameworkID, str(fields, "domainCode"))
	if err != nil {
		return err
	}

	controls, err := im.taxonomy.ListControls(ctx, frameworkID, domain.ID)
	if err != nil {
		return err
	}
	controlCode := str(fields, "controlCode")
	var control *models.Control
	for i := range controls {
		if controls[i].Code == controlCode {
			control = &controls[i]
			break
		}
	}
	if control == nil {
		return fmt.Errorf("control with code %q not found in domain %q", controlCode, domain.Code)
	}

	_, err = im.taxonomy.CreateSpecification(ctx, models.Specification{
		FrameworkID:     frameworkID,
		DomainID:        domain.ID,
		ControlID:       control.ID,
		Code:            str(fields, "code"),
		Name:            models.LocalizedText{En: str(fields, "nameEn"), Ar: str(fields, "nameAr")},
		Description:     models.LocalizedText{En: str(fields, "descriptionEn"), Ar: str(fields, "descriptionAr")},
		CapabilityLevel: str(fields, "capabilityLevel"),
		Order:           num(fields, "order"),
	}, "import")
	return err
}

func (im *Importer) findDomainByCode(ctx context.Context, frameworkID, code string) (*models.Domain, error) {
	domains, err := im.taxonomy.ListDomains(ctx, frameworkID)
	if err != nil {
		return nil, err
	}
	for i := range domains {
		if domains[i].Code == code {
			return &domains[i], nil
		}
	}
	return nil, fmt.Errorf("domain with code %q not found", code)
}

func str(fields map[string]interface{}, key string) string {
	v, _ := fields[key].(string)
	return v
}

func num(fields map[string]interface{}, key string) int {
	s, _ := fields[key].(string)
	n, _ := strconv.Atoi(s)
	return n
}

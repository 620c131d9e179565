// internal/excel/export.go
package excel

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/logger"
	"taqyim/internal/criteria"
	"taqyim/internal/models"
	"taqyim/internal/taxonomy"
)

// Exporter writes a framework's full hierarchy into a styled workbook with
// one sheet per level.
type Exporter struct {
	taxonomy *taxonomy.Service
	criteria *criteria.Service
	logger   logger.Logger
}

// NewExporter builds an exporter. crit may be nil; the Criteria sheet is then
// omitted.
func NewExporter(svc *taxonomy.Service, crit *criteria.Service, log logger.Logger) *Exporter {
	return &Exporter{
		taxonomy: svc,
		criteria: crit,
		logger:   log.WithFields(map[string]interface{}{"component": "excel-exporter"}),
	}
}

const (
	sheetDomains        = "Domains"
	sheetControls       = "Controls"
	sheetSpecifications = "Specifications"
	sheetCriteria       = "Criteria"
)

// ExportFramework writes the framework's domains, controls, and specifications
// as an .xlsx workbook. The output round-trips through the matching import
// templates.
func (ex *Exporter) ExportFramework(ctx context.Context, frameworkID string, w io.Writer) error {
	fw, err := ex.taxonomy.GetFramework(ctx, frameworkID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E79"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return apperrors.NewExportFailedError(err)
	}

	if err := ex.writeDomainsSheet(ctx, f, headerStyle, frameworkID); err != nil {
		return err
	}
	if err := ex.writeControlSheets(ctx, f, headerStyle, frameworkID); err != nil {
		return err
	}
	if err := ex.writeCriteriaSheet(ctx, f, headerStyle, frameworkID); err != nil {
		return err
	}

	// Drop the default sheet and lead with domains.
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(sheetDomains); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.Write(w); err != nil {
		return apperrors.NewExportFailedError(err)
	}

	ex.logger.Info("framework exported", map[string]interface{}{"frameworkId": frameworkID, "code": fw.Code})
	return nil
}

func (ex *Exporter) writeDomainsSheet(ctx context.Context, f *excelize.File, headerStyle int, frameworkID string) error {
	if _, err := f.NewSheet(sheetDomains); err != nil {
		return apperrors.NewExportFailedError(err)
	}

	headers := []string{"Code", "Name (EN)", "Name (AR)", "Description (EN)", "Description (AR)", "Order"}
	if err := writeHeader(f, sheetDomains, headerStyle, headers); err != nil {
		return err
	}

	domains, err := ex.taxonomy.ListDomains(ctx, frameworkID)
	if err != nil {
		return err
	}
	for i, d := range domains {
		row := i + 2
		cells := []interface{}{d.Code, d.Name.En, d.Name.Ar, d.Description.En, d.Description.Ar, d.Order}
		if err := writeRow(f, sheetDomains, row, cells); err != nil {
			return err
		}
	}
	return nil
}

func (ex *Exporter) writeControlSheets(ctx context.Context, f *excelize.File, headerStyle int, frameworkID string) error {
	for _, sheet := range []string{sheetControls, sheetSpecifications} {
		if _, err := f.NewSheet(sheet); err != nil {
			return apperrors.NewExportFailedError(err)
		}
	}

	controlHeaders := []string{"Domain Code", "Code", "Name (EN)", "Name (AR)", "Description (EN)", "Description (AR)", "Order"}
	if err := writeHeader(f, sheetControls, headerStyle, controlHeaders); err != nil {
		return err
	}
	specHeaders := []string{"Domain Code", "Control Code", "Code", "Name (EN)", "Name (AR)", "Capability", "Order"}
	if err := writeHeader(f, sheetSpecifications, headerStyle, specHeaders); err != nil {
		return err
	}

	domains, err := ex.taxonomy.ListDomains(ctx, frameworkID)
	if err != nil {
		return err
	}

	controlRow, specRow := 2, 2
	for _, d := range domains {
		controls, err := ex.taxonomy.ListControls(ctx, frameworkID, d.ID)
		if err != nil {
			return err
		}
		for _, c := range controls {
			cells := []interface{}{d.Code, c.Code, c.Name.En, c.Name.Ar, c.Description.En, c.Description.Ar, c.Order}
			if err := writeRow(f, sheetControls, controlRow, cells); err != nil {
				return err
			}
			controlRow++

			specs, err := ex.taxonomy.ListSpecifications(ctx, frameworkID, d.ID, c.ID, models.ListFilter{})
			if err != nil {
				return err
			}
			for _, sp := range specs {
				cells := []interface{}{d.Code, c.Code, sp.Code, sp.Name.En, sp.Name.Ar, sp.CapabilityLevel, sp.Order}
				if err := writeRow(f, sheetSpecifications, specRow, cells); err != nil {
					return err
				}
				specRow++
			}
		}
	}
	return nil
}

// writeCriteriaSheet appends the scoring scheme: the type row, one row per
// domain weight, then the level scale. Skipped when no criteria is saved.
func (ex *Exporter) writeCriteriaSheet(ctx context.Context, f *excelize.File, headerStyle int, frameworkID string) error {
	if ex.criteria == nil {
		return nil
	}
	c, err := ex.criteria.Get(ctx, frameworkID)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	if _, err := f.NewSheet(sheetCriteria); err != nil {
		return apperrors.NewExportFailedError(err)
	}

	headers := []string{"Type", "Domain Code", "Weight", "Level (EN)", "Level (AR)", "Value"}
	if err := writeHeader(f, sheetCriteria, headerStyle, headers); err != nil {
		return err
	}

	domains, err := ex.taxonomy.ListDomains(ctx, frameworkID)
	if err != nil {
		return err
	}
	codeByID := make(map[string]string, len(domains))
	for _, d := range domains {
		codeByID[d.ID] = d.Code
	}

	row := 2
	for i, w := range c.DomainWeights {
		cells := []interface{}{"", codeByID[w.DomainID], w.Weight, "", "", ""}
		if i == 0 {
			cells[0] = string(c.Type)
		}
		if err := writeRow(f, sheetCriteria, row, cells); err != nil {
			return err
		}
		row++
	}
	for _, lvl := range c.Levels {
		cells := []interface{}{"", "", "", lvl.Label.En, lvl.Label.Ar, lvl.Value}
		if err := writeRow(f, sheetCriteria, row, cells); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, style int, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return apperrors.NewExportFailedError(err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return apperrors.NewExportFailedError(err)
		}
	}
	endCell, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return apperrors.NewExportFailedError(err)
	}
	if err := f.SetCellStyle(sheet, "A1", endCell, style); err != nil {
		return apperrors.NewExportFailedError(err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return apperrors.NewExportFailedError(err)
	}
	if err := f.SetSheetRow(sheet, start, &cells); err != nil {
		return apperrors.NewExportFailedError(err)
	}
	return nil
}

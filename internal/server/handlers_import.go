// internal/server/handlers_import.go
package server

import (
	"fmt"
	"net/http"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/models"
)

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		s.writeJSON(w, http.StatusOK, []interface{}{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.registry.Templates)
}

// handleImport accepts a multipart upload under the "file" field and runs the
// template import against the framework. The report is returned even when
// rows failed; only workbook-level errors abort.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	if s.importer == nil {
		s.responder.Write(w, r, apperrors.NewImportParseFailedError(fmt.Errorf("import pipeline not configured")))
		return
	}

	maxBytes := s.cfg.Import.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		s.responder.Write(w, r, apperrors.NewImportParseFailedError(err))
		return
	}
	defer file.Close()

	report, err := s.importer.Import(r.Context(), r.PathValue("templateID"), r.PathValue("fwID"), file)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleExport streams the framework's hierarchy as an .xlsx attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		s.responder.Write(w, r, apperrors.NewExportFailedError(fmt.Errorf("export pipeline not configured")))
		return
	}

	fwID := r.PathValue("fwID")
	fw, err := s.taxonomy.GetFramework(r.Context(), fwID)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fw.Code+".xlsx"))
	if err := s.exporter.ExportFramework(r.Context(), fwID, w); err != nil {
		// Headers are already out; all we can do is log.
		s.logger.Error("export failed mid-stream", map[string]interface{}{"frameworkId": fwID, "error": err.Error()})
	}
}

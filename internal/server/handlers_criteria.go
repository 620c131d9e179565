// internal/server/handlers_criteria.go
package server

import (
	"net/http"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/criteria"
	"taqyim/internal/models"
)

// criteriaResponse wraps the stored criteria with derived state the builder UI
// needs: the weight sum and the domains without a weight entry.
type criteriaResponse struct {
	Criteria         *models.AssessmentCriteria `json:"criteria"`
	WeightSum        float64                    `json:"weightSum"`
	WeightsComplete  bool                       `json:"weightsComplete"`
	UncoveredDomains []models.Domain            `json:"uncoveredDomains,omitempty"`
}

// handleGetCriteria returns the framework's criteria, with criteria null when
// none has been saved yet.
func (s *Server) handleGetCriteria(w http.ResponseWriter, r *http.Request) {
	fwID := r.PathValue("fwID")

	c, err := s.criteria.Get(r.Context(), fwID)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}

	resp := criteriaResponse{Criteria: c}
	if c != nil {
		resp.WeightSum = c.WeightSum()
		resp.WeightsComplete = c.WeightsComplete()
		resp.UncoveredDomains = s.uncoveredDomains(r, fwID, c.DomainWeights)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleSaveCriteria upserts the framework's criteria. The weight-sum and
// level gates are enforced by the service; a failed gate comes back as 400.
func (s *Server) handleSaveCriteria(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}

	var c models.AssessmentCriteria
	if err := s.readJSON(r, &c); err != nil {
		s.responder.Write(w, r, err)
		return
	}

	fwID := r.PathValue("fwID")
	if ok, err := s.frameworkExists(r, fwID); err != nil {
		s.responder.Write(w, r, err)
		return
	} else if !ok {
		s.responder.Write(w, r, apperrors.NewDocumentNotFoundError("frameworks/"+fwID))
		return
	}

	if err := s.criteria.Save(r.Context(), fwID, c); err != nil {
		s.responder.Write(w, r, err)
		return
	}

	saved, err := s.criteria.Get(r.Context(), fwID)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, criteriaResponse{
		Criteria:         saved,
		WeightSum:        saved.WeightSum(),
		WeightsComplete:  saved.WeightsComplete(),
		UncoveredDomains: s.uncoveredDomains(r, fwID, saved.DomainWeights),
	})
}

func (s *Server) handleDeleteCriteria(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	if err := s.criteria.Delete(r.Context(), r.PathValue("fwID")); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDistributeWeights returns an even weight split over the framework's
// domains without persisting anything; the client applies it to the form.
func (s *Server) handleDistributeWeights(w http.ResponseWriter, r *http.Request) {
	domains, err := s.criteria.FrameworkDomains(r.Context(), r.PathValue("fwID"))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}

	var form criteria.FormState
	form.DistributeEvenly(domains)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"domainWeights": form.DomainWeights,
		"weightSum":     form.WeightSum(),
	})
}

func (s *Server) uncoveredDomains(r *http.Request, fwID string, weights []models.DomainWeight) []models.Domain {
	domains, err := s.criteria.FrameworkDomains(r.Context(), fwID)
	if err != nil {
		s.logger.Warn("domain coverage check failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	covered := make(map[string]bool, len(weights))
	for _, w := range weights {
		covered[w.DomainID] = true
	}
	var missing []models.Domain
	for _, d := range domains {
		if !covered[d.ID] {
			missing = append(missing, d)
		}
	}
	return missing
}

func (s *Server) frameworkExists(r *http.Request, fwID string) (bool, error) {
	_, err := s.taxonomy.GetFramework(r.Context(), fwID)
	if apperrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

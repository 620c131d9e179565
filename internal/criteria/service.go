// internal/criteria/service.go
package criteria

import (
	"context"
	"encoding/json"
	"sort"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/logger"
	"taqyim/internal/common/metrics"
	"taqyim/internal/models"
	"taqyim/internal/store"
)

// ChangeFunc is notified after a framework's criteria is saved or deleted.
// It replaces the ambient dashboard-refresh context: the owning page registers
// a callback and sibling consumers refresh through it.
type ChangeFunc func(frameworkID string)

// Service is the persistence boundary for assessment criteria.
type Service struct {
	docs     store.DocumentStore
	logger   logger.Logger
	onChange ChangeFunc
}

func NewService(docs store.DocumentStore, log logger.Logger) *Service {
	return &Service{
		docs:   docs,
		logger: log.WithFields(map[string]interface{}{"component": "criteria-service"}),
	}
}

// OnChange registers the change callback. Passing nil clears it.
func (s *Service) OnChange(fn ChangeFunc) {
	s.onChange = fn
}

// Get returns the framework's criteria, or nil when none has been saved.
func (s *Service) Get(ctx context.Context, frameworkID string) (*models.AssessmentCriteria, error) {
	var c models.AssessmentCriteria
	err := s.docs.Get(ctx, store.CriteriaPath(frameworkID), &c)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Save validates and upserts the framework's single criteria document, then
// notifies the change callback.
func (s *Service) Save(ctx context.Context, frameworkID string, c models.AssessmentCriteria) error {
	c.FrameworkID = frameworkID

	if err := c.Validate(); err != nil {
		metrics.CriteriaSavesTotal.WithLabelValues(string(c.Type), "invalid").Inc()
		return apperrors.NewValidationFailedError(err.Error())
	}

	if err := s.docs.Set(ctx, store.CriteriaPath(frameworkID), c); err != nil {
		metrics.CriteriaSavesTotal.WithLabelValues(string(c.Type), "error").Inc()
		return err
	}

	metrics.CriteriaSavesTotal.WithLabelValues(string(c.Type), "ok").Inc()
	s.logger.Info("criteria saved", map[string]interface{}{
		"frameworkId": frameworkID,
		"type":        string(c.Type),
		"domains":     len(c.DomainWeights),
		"levels":      len(c.Levels),
	})

	if s.onChange != nil {
		s.onChange(frameworkID)
	}
	return nil
}

// Delete removes the framework's criteria. Deleting a framework with no
// criteria is not an error.
func (s *Service) Delete(ctx context.Context, frameworkID string) error {
	err := s.docs.Delete(ctx, store.CriteriaPath(frameworkID))
	if err != nil && !apperrors.IsNotFound(err) {
		return err
	}

	s.logger.Info("criteria deleted", map[string]interface{}{"frameworkId": frameworkID})
	if s.onChange != nil {
		s.onChange(frameworkID)
	}
	return nil
}

// FrameworkDomains lists the framework's domains in display order.
func (s *Service) FrameworkDomains(ctx context.Context, frameworkID string) ([]models.Domain, error) {
	docs, err := s.docs.List(ctx, store.JoinPath(store.CollFrameworks, frameworkID, store.CollDomains))
	if err != nil {
		return nil, err
	}

	domains := make([]models.Domain, 0, len(docs))
	for _, d := range docs {
		var dom models.Domain
		if err := json.Unmarshal(d.Body, &dom); err != nil {
			s.logger.Warn("skipping undecodable domain document", map[string]interface{}{
				"path": d.Path, "error": err.Error(),
			})
			continue
		}
		domains = append(domains, dom)
	}

	sort.SliceStable(domains, func(i, j int) bool {
		if domains[i].Order != domains[j].Order {
			return domains[i].Order < domains[j].Order
		}
		return domains[i].Code < domains[j].Code
	})
	return domains, nil
}

// internal/taxonomy/frameworks.go
package taxonomy

import (
	"context"
	"sort"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/models"
	"taqyim/internal/store"
)

// CreateFramework inserts a new framework. A missing ID gets a generated one;
// supplying an existing ID fails with a duplicate error.
func (s *Service) CreateFramework(ctx context.Context, f models.Framework) (*models.Framework, error) {
	if f.ID == "" {
		f.ID = newID()
	}
	f.CreatedAt = s.now()
	f.UpdatedAt = f.CreatedAt

	if err := f.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	if err := s.docs.Create(ctx, store.FrameworkPath(f.ID), f); err != nil {
		return nil, err
	}

	s.logger.Info("framework created", map[string]interface{}{"frameworkId": f.ID, "code": f.Code})
	return &f, nil
}

// GetFramework loads one framework.
func (s *Service) GetFramework(ctx context.Context, id string) (*models.Framework, error) {
	var f models.Framework
	if err := s.docs.Get(ctx, store.FrameworkPath(id), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFrameworks returns all frameworks sorted by code.
func (s *Service) ListFrameworks(ctx context.Context, filter models.ListFilter) ([]models.Framework, error) {
	filter = filter.Normalize()

	docs, err := s.docs.List(ctx, store.CollFrameworks)
	if err != nil {
		return nil, err
	}

	all := decodeAll[models.Framework](docs, s.logger)
	filtered := all[:0]
	for _, f := range all {
		if matchesText(filter, f.Code, f.Name, f.Description) {
			filtered = append(filtered, f)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Code < filtered[j].Code })
	lo, hi := page(filter, len(filtered))
	return filtered[lo:hi], nil
}

// UpdateFramework applies the mutable fields onto the stored record.
func (s *Service) UpdateFramework(ctx context.Context, f models.Framework) (*models.Framework, error) {
	var current models.Framework
	if err := s.docs.Get(ctx, store.FrameworkPath(f.ID), &current); err != nil {
		return nil, err
	}

	current.Code = f.Code
	current.Name = f.Name
	current.Description = f.Description
	current.Version = f.Version
	current.IssuedBy = f.IssuedBy
	current.UpdatedAt = s.now()

	if err := current.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	if err := s.docs.Set(ctx, store.FrameworkPath(f.ID), current); err != nil {
		return nil, err
	}
	return &current, nil
}

// DeleteFramework removes the framework and everything beneath it: domains,
// controls, specifications, and the assessment criteria. Mirrored search
// documents are removed best-effort before the store cascade.
func (s *Service) DeleteFramework(ctx context.Context, id string) error {
	if s.search != nil {
		s.unindexFrameworkTree(ctx, id)
	}
	if err := s.docs.Delete(ctx, store.FrameworkPath(id)); err != nil {
		return err
	}
	s.logger.Info("framework deleted", map[string]interface{}{"frameworkId": id})
	return nil
}

// unindexFrameworkTree walks the framework's controls and specifications and
// drops their search mirrors. Store errors during the walk are logged; the
// delete proceeds regardless.
func (s *Service) unindexFrameworkTree(ctx context.Context, frameworkID string) {
	domains, err := s.ListDomains(ctx, frameworkID)
	if err != nil {
		s.logger.Warn("index cleanup: domain listing failed", map[string]interface{}{
			"frameworkId": frameworkID, "error": err.Error(),
		})
		return
	}
	for _, d := range domains {
		s.unindexDomainTree(ctx, frameworkID, d.ID)
	}
}

func (s *Service) unindexDomainTree(ctx context.Context, frameworkID, domainID string) {
	controls, err := s.ListControls(ctx, frameworkID, domainID)
	if err != nil {
		s.logger.Warn("index cleanup: control listing failed", map[string]interface{}{
			"domainId": domainID, "error": err.Error(),
		})
		return
	}
	for _, c := range controls {
		s.unindexControlTree(ctx, frameworkID, domainID, c.ID)
	}
}

func (s *Service) unindexControlTree(ctx context.Context, frameworkID, domainID, controlID string) {
	specs, err := s.ListSpecifications(ctx, frameworkID, domainID, controlID, models.ListFilter{})
	if err != nil {
		s.logger.Warn("index cleanup: specification listing failed", map[string]interface{}{
			"controlId": controlID, "error": err.Error(),
		})
	}
	for _, sp := range specs {
		s.removeFromIndex(ctx, "specification", sp.ID)
	}
	s.removeFromIndex(ctx, "control", controlID)
}

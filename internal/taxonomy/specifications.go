// internal/taxonomy/specifications.go
package taxonomy

import (
	"context"
	"sort"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/models"
	"taqyim/internal/store"
)

// CreateSpecification inserts a specification under an existing control. The
// initial state is recorded as version 1 of its history.
func (s *Service) CreateSpecification(ctx context.Context, sp models.Specification, changedBy string) (*models.Specification, error) {
	controlPath := store.ControlPath(sp.FrameworkID, sp.DomainID, sp.ControlID)
	ok, err := s.docs.Exists(ctx, controlPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewDocumentNotFoundError(controlPath)
	}

	if sp.ID == "" {
		sp.ID = newID()
	}
	sp.CreatedAt = s.now()
	sp.UpdatedAt = sp.CreatedAt
	sp.History = []models.SpecificationVersion{{
		Version:         1,
		Name:            sp.Name,
		Description:     sp.Description,
		CapabilityLevel: sp.CapabilityLevel,
		ChangedBy:       changedBy,
		ChangedAt:       sp.CreatedAt,
	}}

	if err := sp.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	path := store.SpecificationPath(sp.FrameworkID, sp.DomainID, sp.ControlID, sp.ID)
	if err := s.docs.Create(ctx, path, sp); err != nil {
		return nil, err
	}

	s.indexSpecification(ctx, sp)
	s.logger.Info("specification created", map[string]interface{}{"controlId": sp.ControlID, "specificationId": sp.ID})
	return &sp, nil
}

// GetSpecification loads one specification with its full history.
func (s *Service) GetSpecification(ctx context.Context, frameworkID, domainID, controlID, id string) (*models.Specification, error) {
	var sp models.Specification
	if err := s.docs.Get(ctx, store.SpecificationPath(frameworkID, domainID, controlID, id), &sp); err != nil {
		return nil, err
	}
	return &sp, nil
}

// ListSpecifications returns the control's specifications in display order,
// narrowed by the filter's capability level and search text.
func (s *Service) ListSpecifications(ctx context.Context, frameworkID, domainID, controlID string, filter models.ListFilter) ([]models.Specification, error) {
	filter = filter.Normalize()

	collection := store.JoinPath(
		store.CollFrameworks, frameworkID,
		store.CollDomains, domainID,
		store.CollControls, controlID,
		store.CollSpecifications,
	)
	docs, err := s.docs.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	all := decodeAll[models.Specification](docs, s.logger)
	filtered := all[:0]
	for _, sp := range all {
		if filter.CapabilityLevel != "" && sp.CapabilityLevel != filter.CapabilityLevel {
			continue
		}
		if !matchesText(filter, sp.Code, sp.Name, sp.Description) {
			continue
		}
		filtered = append(filtered, sp)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Order != filtered[j].Order {
			return filtered[i].Order < filtered[j].Order
		}
		return filtered[i].Code < filtered[j].Code
	})
	lo, hi := page(filter, len(filtered))
	return filtered[lo:hi], nil
}

// UpdateSpecification applies the mutable fields, appends the new state to the
// version history, and reindexes. The history is append-only; prior versions
// are never rewritten.
func (s *Service) UpdateSpecification(ctx context.Context, sp models.Specification, changedBy string) (*models.Specification, error) {
	path := store.SpecificationPath(sp.FrameworkID, sp.DomainID, sp.ControlID, sp.ID)

	var current models.Specification
	if err := s.docs.Get(ctx, path, &current); err != nil {
		return nil, err
	}

	current.Code = sp.Code
	current.Name = sp.Name
	current.Description = sp.Description
	current.CapabilityLevel = sp.CapabilityLevel
	current.Order = sp.Order
	current.UpdatedAt = s.now()
	current.History = append(current.History, models.SpecificationVersion{
		Version:         current.CurrentVersion() + 1,
		Name:            current.Name,
		Description:     current.Description,
		CapabilityLevel: current.CapabilityLevel,
		ChangedBy:       changedBy,
		ChangedAt:       current.UpdatedAt,
	})

	if err := current.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	if err := s.docs.Set(ctx, path, current); err != nil {
		return nil, err
	}

	s.indexSpecification(ctx, current)
	return &current, nil
}

// DeleteSpecification removes the specification and its search mirror.
func (s *Service) DeleteSpecification(ctx context.Context, frameworkID, domainID, controlID, id string) error {
	s.removeFromIndex(ctx, "specification", id)
	if err := s.docs.Delete(ctx, store.SpecificationPath(frameworkID, domainID, controlID, id)); err != nil {
		return err
	}
	s.logger.Info("specification deleted", map[string]interface{}{"controlId": controlID, "specificationId": id})
	return nil
}

// internal/taxonomy/controls.go
package taxonomy

import (
	"context"
	"sort"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/models"
	"taqyim/internal/store"
)

// CreateControl inserts a control under an existing domain and mirrors it into
// search.
func (s *Service) CreateControl(ctx context.Context, c models.Control) (*models.Control, error) {
	ok, err := s.docs.Exists(ctx, store.DomainPath(c.FrameworkID, c.DomainID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewDocumentNotFoundError(store.DomainPath(c.FrameworkID, c.DomainID))
	}

	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt

	if err := c.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	if err := s.docs.Create(ctx, store.ControlPath(c.FrameworkID, c.DomainID, c.ID), c); err != nil {
		return nil, err
	}

	s.indexControl(ctx, c)
	s.logger.Info("control created", map[string]interface{}{"domainId": c.DomainID, "controlId": c.ID})
	return &c, nil
}

// GetControl loads one control.
func (s *Service) GetControl(ctx context.Context, frameworkID, domainID, id string) (*models.Control, error) {
	var c models.Control
	if err := s.docs.Get(ctx, store.ControlPath(frameworkID, domainID, id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListControls returns the domain's controls in display order.
func (s *Service) ListControls(ctx context.Context, frameworkID, domainID string) ([]models.Control, error) {
	collection := store.JoinPath(store.CollFrameworks, frameworkID, store.CollDomains, domainID, store.CollControls)
	docs, err := s.docs.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	controls := decodeAll[models.Control](docs, s.logger)
	sort.SliceStable(controls, func(i, j int) bool {
		if controls[i].Order != controls[j].Order {
			return controls[i].Order < controls[j].Order
		}
		return controls[i].Code < controls[j].Code
	})
	return controls, nil
}

// UpdateControl applies the mutable fields and reindexes.
func (s *Service) UpdateControl(ctx context.Context, c models.Control) (*models.Control, error) {
	path := store.ControlPath(c.FrameworkID, c.DomainID, c.ID)

	var current models.Control
	if err := s.docs.Get(ctx, path, &current); err != nil {
		return nil, err
	}

	current.Code = c.Code
	current.Name = c.Name
	current.Description = c.Description
	current.Order = c.Order
	current.UpdatedAt = s.now()

	if err := current.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	if err := s.docs.Set(ctx, path, current); err != nil {
		return nil, err
	}

	s.indexControl(ctx, current)
	return &current, nil
}

// DeleteControl removes the control and its specifications, plus their search
// mirrors.
func (s *Service) DeleteControl(ctx context.Context, frameworkID, domainID, id string) error {
	if s.search != nil {
		s.unindexControlTree(ctx, frameworkID, domainID, id)
	}
	if err := s.docs.Delete(ctx, store.ControlPath(frameworkID, domainID, id)); err != nil {
		return err
	}
	s.logger.Info("control deleted", map[string]interface{}{"domainId": domainID, "controlId": id})
	return nil
}

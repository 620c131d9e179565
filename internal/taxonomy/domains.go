// internal/taxonomy/domains.go
package taxonomy

import (
	"context"
	"sort"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/models"
	"taqyim/internal/store"
)

// CreateDomain inserts a domain under an existing framework.
func (s *Service) CreateDomain(ctx context.Context, d models.Domain) (*models.Domain, error) {
	ok, err := s.docs.Exists(ctx, store.FrameworkPath(d.FrameworkID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewDocumentNotFoundError(store.FrameworkPath(d.FrameworkID))
	}

	if d.ID == "" {
		d.ID = newID()
	}
	d.CreatedAt = s.now()
	d.UpdatedAt = d.CreatedAt

	if err := d.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	if err := s.docs.Create(ctx, store.DomainPath(d.FrameworkID, d.ID), d); err != nil {
		return nil, err
	}

	s.logger.Info("domain created", map[string]interface{}{"frameworkId": d.FrameworkID, "domainId": d.ID})
	return &d, nil
}

// GetDomain loads one domain.
func (s *Service) GetDomain(ctx context.Context, frameworkID, id string) (*models.Domain, error) {
	var d models.Domain
	if err := s.docs.Get(ctx, store.DomainPath(frameworkID, id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDomains returns the framework's domains in display order.
func (s *Service) ListDomains(ctx context.Context, frameworkID string) ([]models.Domain, error) {
	docs, err := s.docs.List(ctx, store.JoinPath(store.CollFrameworks, frameworkID, store.CollDomains))
	if err != nil {
		return nil, err
	}

	domains := decodeAll[models.Domain](docs, s.logger)
	sort.SliceStable(domains, func(i, j int) bool {
		if domains[i].Order != domains[j].Order {
			return domains[i].Order < domains[j].Order
		}
		return domains[i].Code < domains[j].Code
	})
	return domains, nil
}

// UpdateDomain applies the mutable fields onto the stored record.
func (s *Service) UpdateDomain(ctx context.Context, d models.Domain) (*models.Domain, error) {
	path := store.DomainPath(d.FrameworkID, d.ID)

	var current models.Domain
	if err := s.docs.Get(ctx, path, &current); err != nil {
		return nil, err
	}

	current.Code = d.Code
	current.Name = d.Name
	current.Description = d.Description
	current.Order = d.Order
	current.UpdatedAt = s.now()

	if err := current.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	if err := s.docs.Set(ctx, path, current); err != nil {
		return nil, err
	}
	return &current, nil
}

// DeleteDomain removes the domain and its controls and specifications. The
// framework's criteria may be left referencing a gone domain; the wizard
// surfaces that as an uncovered-weight warning on next open.
func (s *Service) DeleteDomain(ctx context.Context, frameworkID, id string) error {
	if s.search != nil {
		s.unindexDomainTree(ctx, frameworkID, id)
	}
	if err := s.docs.Delete(ctx, store.DomainPath(frameworkID, id)); err != nil {
		return err
	}
	s.logger.Info("domain deleted", map[string]interface{}{"frameworkId": frameworkID, "domainId": id})
	return nil
}

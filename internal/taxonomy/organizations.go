// internal/taxonomy/organizations.go
package taxonomy

import (
	"context"
	"sort"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/models"
	"taqyim/internal/store"
)

// CreateOrganization inserts a new tenant organization.
func (s *Service) CreateOrganization(ctx context.Context, o models.Organization) (*models.Organization, error) {
	if o.ID == "" {
		o.ID = newID()
	}
	o.CreatedAt = s.now()
	o.UpdatedAt = o.CreatedAt

	if err := o.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	if err := s.docs.Create(ctx, store.OrganizationPath(o.ID), o); err != nil {
		return nil, err
	}

	s.logger.Info("organization created", map[string]interface{}{"organizationId": o.ID})
	return &o, nil
}

// GetOrganization loads one organization.
func (s *Service) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	var o models.Organization
	if err := s.docs.Get(ctx, store.OrganizationPath(id), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrganizations returns all organizations sorted by English name.
func (s *Service) ListOrganizations(ctx context.Context, filter models.ListFilter) ([]models.Organization, error) {
	filter = filter.Normalize()

	docs, err := s.docs.List(ctx, store.CollOrganizations)
	if err != nil {
		return nil, err
	}

	all := decodeAll[models.Organization](docs, s.logger)
	filtered := all[:0]
	for _, o := range all {
		if matchesText(filter, o.Sector, o.Name, models.LocalizedText{}) {
			filtered = append(filtered, o)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Name.En < filtered[j].Name.En })
	lo, hi := page(filter, len(filtered))
	return filtered[lo:hi], nil
}

// UpdateOrganization applies the mutable fields onto the stored record.
func (s *Service) UpdateOrganization(ctx context.Context, o models.Organization) (*models.Organization, error) {
	var current models.Organization
	if err := s.docs.Get(ctx, store.OrganizationPath(o.ID), &current); err != nil {
		return nil, err
	}

	current.Name = o.Name
	current.Sector = o.Sector
	current.ContactEmail = o.ContactEmail
	current.UpdatedAt = s.now()

	if err := current.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	if err := s.docs.Set(ctx, store.OrganizationPath(o.ID), current); err != nil {
		return nil, err
	}
	return &current, nil
}

// DeleteOrganization removes the organization and its projects.
func (s *Service) DeleteOrganization(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, store.OrganizationPath(id)); err != nil {
		return err
	}
	s.logger.Info("organization deleted", map[string]interface{}{"organizationId": id})
	return nil
}

// CreateProject inserts a project under an existing organization. The project
// must reference an existing framework.
func (s *Service) CreateProject(ctx context.Context, p models.Project) (*models.Project, error) {
	ok, err := s.docs.Exists(ctx, store.OrganizationPath(p.OrganizationID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewDocumentNotFoundError(store.OrganizationPath(p.OrganizationID))
	}

	ok, err = s.docs.Exists(ctx, store.FrameworkPath(p.FrameworkID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewDocumentNotFoundError(store.FrameworkPath(p.FrameworkID))
	}

	if p.ID == "" {
		p.ID = newID()
	}
	if p.Status == "" {
		p.Status = models.ProjectStatusDraft
	}
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt

	if err := p.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	if err := s.docs.Create(ctx, store.ProjectPath(p.OrganizationID, p.ID), p); err != nil {
		return nil, err
	}

	s.logger.Info("project created", map[string]interface{}{"organizationId": p.OrganizationID, "projectId": p.ID})
	return &p, nil
}

// GetProject loads one project.
func (s *Service) GetProject(ctx context.Context, orgID, id string) (*models.Project, error) {
	var p models.Project
	if err := s.docs.Get(ctx, store.ProjectPath(orgID, id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns the organization's projects, optionally narrowed by
// status.
func (s *Service) ListProjects(ctx context.Context, orgID string, filter models.ListFilter) ([]models.Project, error) {
	filter = filter.Normalize()

	docs, err := s.docs.List(ctx, store.JoinPath(store.CollOrganizations, orgID, store.CollProjects))
	if err != nil {
		return nil, err
	}

	all := decodeAll[models.Project](docs, s.logger)
	filtered := all[:0]
	for _, p := range all {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if !matchesText(filter, "", p.Name, p.Description) {
			continue
		}
		filtered = append(filtered, p)
	}

	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Name.En < filtered[j].Name.En })
	lo, hi := page(filter, len(filtered))
	return filtered[lo:hi], nil
}

// UpdateProject applies the mutable fields onto the stored record. The owning
// organization and framework bindings are immutable after creation.
func (s *Service) UpdateProject(ctx context.Context, p models.Project) (*models.Project, error) {
	path := store.ProjectPath(p.OrganizationID, p.ID)

	var current models.Project
	if err := s.docs.Get(ctx, path, &current); err != nil {
		return nil, err
	}

	current.Name = p.Name
	current.Description = p.Description
	current.Status = p.Status
	current.UpdatedAt = s.now()

	if err := current.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	if err := s.docs.Set(ctx, path, current); err != nil {
		return nil, err
	}
	return &current, nil
}

// DeleteProject removes one project.
func (s *Service) DeleteProject(ctx context.Context, orgID, id string) error {
	if err := s.docs.Delete(ctx, store.ProjectPath(orgID, id)); err != nil {
		return err
	}
	s.logger.Info("project deleted", map[string]interface{}{"organizationId": orgID, "projectId": id})
	return nil
}

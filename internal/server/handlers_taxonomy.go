// internal/server/handlers_taxonomy.go
package server

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/models"
)

var errSearchDisabled = errors.New("search backend not configured")

// listFilterFrom builds the common filter from query parameters.
func listFilterFrom(r *http.Request) models.ListFilter {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return models.ListFilter{
		Search:          q.Get("q"),
		Language:        q.Get("lang"),
		CapabilityLevel: q.Get("capability"),
		Status:          q.Get("status"),
		Limit:           limit,
		Offset:          offset,
	}
}

// --- Organizations ---

func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.taxonomy.ListOrganizations(r.Context(), listFilterFrom(r))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orgs)
}

func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	var org models.Organization
	if err := s.readJSON(r, &org); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	created, err := s.taxonomy.CreateOrganization(r.Context(), org)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := s.taxonomy.GetOrganization(r.Context(), r.PathValue("orgID"))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, org)
}

func (s *Server) handleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	var org models.Organization
	if err := s.readJSON(r, &org); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	org.ID = r.PathValue("orgID")
	updated, err := s.taxonomy.UpdateOrganization(r.Context(), org)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r) {
		return
	}
	if err := s.taxonomy.DeleteOrganization(r.Context(), r.PathValue("orgID")); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Projects ---

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.taxonomy.ListProjects(r.Context(), r.PathValue("orgID"), listFilterFrom(r))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	var p models.Project
	if err := s.readJSON(r, &p); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	p.OrganizationID = r.PathValue("orgID")
	created, err := s.taxonomy.CreateProject(r.Context(), p)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.taxonomy.GetProject(r.Context(), r.PathValue("orgID"), r.PathValue("projectID"))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	var p models.Project
	if err := s.readJSON(r, &p); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	p.OrganizationID = r.PathValue("orgID")
	p.ID = r.PathValue("projectID")
	updated, err := s.taxonomy.UpdateProject(r.Context(), p)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	if err := s.taxonomy.DeleteProject(r.Context(), r.PathValue("orgID"), r.PathValue("projectID")); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Frameworks ---

func (s *Server) handleListFrameworks(w http.ResponseWriter, r *http.Request) {
	frameworks, err := s.taxonomy.ListFrameworks(r.Context(), listFilterFrom(r))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, frameworks)
}

func (s *Server) handleCreateFramework(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	var f models.Framework
	if err := s.readJSON(r, &f); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	created, err := s.taxonomy.CreateFramework(r.Context(), f)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetFramework(w http.ResponseWriter, r *http.Request) {
	f, err := s.taxonomy.GetFramework(r.Context(), r.PathValue("fwID"))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleUpdateFramework(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	var f models.Framework
	if err := s.readJSON(r, &f); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	f.ID = r.PathValue("fwID")
	updated, err := s.taxonomy.UpdateFramework(r.Context(), f)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

// Deleting a framework is admin-only: it cascades over the whole hierarchy.
func (s *Server) handleDeleteFramework(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r) {
		return
	}
	if err := s.taxonomy.DeleteFramework(r.Context(), r.PathValue("fwID")); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Domains ---

func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := s.taxonomy.ListDomains(r.Context(), r.PathValue("fwID"))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, domains)
}

func (s *Server) handleCreateDomain(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	var d models.Domain
	if err := s.readJSON(r, &d); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	d.FrameworkID = r.PathValue("fwID")
	created, err := s.taxonomy.CreateDomain(r.Context(), d)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateDomain(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	var d models.Domain
	if err := s.readJSON(r, &d); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	d.FrameworkID = r.PathValue("fwID")
	d.ID = r.PathValue("domainID")
	updated, err := s.taxonomy.UpdateDomain(r.Context(), d)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteDomain(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	if err := s.taxonomy.DeleteDomain(r.Context(), r.PathValue("fwID"), r.PathValue("domainID")); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Controls ---

func (s *Server) handleListControls(w http.ResponseWriter, r *http.Request) {
	controls, err := s.taxonomy.ListControls(r.Context(), r.PathValue("fwID"), r.PathValue("domainID"))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, controls)
}

func (s *Server) handleCreateControl(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	var c models.Control
	if err := s.readJSON(r, &c); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	c.FrameworkID = r.PathValue("fwID")
	c.DomainID = r.PathValue("domainID")
	created, err := s.taxonomy.CreateControl(r.Context(), c)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateControl(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	var c models.Control
	if err := s.readJSON(r, &c); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	c.FrameworkID = r.PathValue("fwID")
	c.DomainID = r.PathValue("domainID")
	c.ID = r.PathValue("controlID")
	updated, err := s.taxonomy.UpdateControl(r.Context(), c)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteControl(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	err := s.taxonomy.DeleteControl(r.Context(), r.PathValue("fwID"), r.PathValue("domainID"), r.PathValue("controlID"))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Specifications ---

func (s *Server) handleListSpecifications(w http.ResponseWriter, r *http.Request) {
	specs, err := s.taxonomy.ListSpecifications(
		r.Context(),
		r.PathValue("fwID"), r.PathValue("domainID"), r.PathValue("controlID"),
		listFilterFrom(r),
	)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, specs)
}

func (s *Server) handleCreateSpecification(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	var sp models.Specification
	if err := s.readJSON(r, &sp); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	sp.FrameworkID = r.PathValue("fwID")
	sp.DomainID = r.PathValue("domainID")
	sp.ControlID = r.PathValue("controlID")
	created, err := s.taxonomy.CreateSpecification(r.Context(), sp, changedByFrom(r))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetSpecification(w http.ResponseWriter, r *http.Request) {
	sp, err := s.taxonomy.GetSpecification(
		r.Context(),
		r.PathValue("fwID"), r.PathValue("domainID"), r.PathValue("controlID"), r.PathValue("specID"),
	)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sp)
}

func (s *Server) handleUpdateSpecification(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	var sp models.Specification
	if err := s.readJSON(r, &sp); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	sp.FrameworkID = r.PathValue("fwID")
	sp.DomainID = r.PathValue("domainID")
	sp.ControlID = r.PathValue("controlID")
	sp.ID = r.PathValue("specID")
	updated, err := s.taxonomy.UpdateSpecification(r.Context(), sp, changedByFrom(r))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSpecification(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, models.RoleEditor) {
		return
	}
	err := s.taxonomy.DeleteSpecification(
		r.Context(),
		r.PathValue("fwID"), r.PathValue("domainID"), r.PathValue("controlID"), r.PathValue("specID"),
	)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// changedByFrom attributes a taxonomy edit to the session user.
func changedByFrom(r *http.Request) string {
	if session := sessionFrom(r.Context()); session != nil {
		return session.UserID
	}
	return ""
}

// --- Search ---

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		s.responder.Write(w, r, apperrors.NewSearchQueryFailedError(errSearchDisabled))
		return
	}

	q := r.URL.Query()
	text := q.Get("q")
	if text == "" {
		s.responder.Write(w, r, apperrors.NewValidationFailedError("query parameter q is required"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	hits, err := s.search.Search(r.Context(), q.Get("frameworkId"), text, limit)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hits)
}

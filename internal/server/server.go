// Package server exposes the admin HTTP API: taxonomy CRUD, the assessment
// criteria endpoints, workbook import/export, user management, and session
// auth. Routing uses net/http method patterns; every response body is JSON.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taqyim/internal/auth"
	"taqyim/internal/common/config"
	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/logger"
	"taqyim/internal/criteria"
	"taqyim/internal/excel"
	"taqyim/internal/models"
	"taqyim/internal/notify"
	"taqyim/internal/store"
	"taqyim/internal/taxonomy"
	"taqyim/pkg/registry"
)

// SessionMinter is the session backend: persistence plus minting new sessions
// for authenticated users.
type SessionMinter interface {
	models.SessionStore
	NewSession(user models.User, ip, userAgent string) *models.Session
}

// Server wires the HTTP layer over the application services.
type Server struct {
	cfg       config.Config
	logger    logger.Logger
	responder *apperrors.Responder

	taxonomy *taxonomy.Service
	criteria *criteria.Service
	search   *store.SearchIndexer
	importer *excel.Importer
	exporter *excel.Exporter
	registry *registry.TemplateRegistry
	sessions SessionMinter
	identity *auth.IdentityClient
	notifier *notify.Notifier

	httpServer *http.Server
}

// Deps carries the constructed services into the server. Search, importer,
// exporter, identity, and notifier may be nil; the matching endpoints then
// respond with 404 or degrade.
type Deps struct {
	Taxonomy *taxonomy.Service
	Criteria *criteria.Service
	Search   *store.SearchIndexer
	Importer *excel.Importer
	Exporter *excel.Exporter
	Registry *registry.TemplateRegistry
	Sessions SessionMinter
	Identity *auth.IdentityClient
	Notifier *notify.Notifier
}

func New(cfg config.Config, deps Deps, log logger.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "http-server"}),
		responder: apperrors.NewResponder(log),
		taxonomy:  deps.Taxonomy,
		criteria:  deps.Criteria,
		search:    deps.Search,
		importer:  deps.Importer,
		exporter:  deps.Exporter,
		registry:  deps.Registry,
		sessions:  deps.Sessions,
		identity:  deps.Identity,
		notifier:  deps.Notifier,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      s.routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}
	return s
}

// routes builds the full mux. Everything under /api/v1 except the login
// endpoint sits behind the session middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	api := http.NewServeMux()
	api.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)
	api.HandleFunc("GET /api/v1/auth/me", s.handleMe)

	api.HandleFunc("GET /api/v1/organizations", s.handleListOrganizations)
	api.HandleFunc("POST /api/v1/organizations", s.handleCreateOrganization)
	api.HandleFunc("GET /api/v1/organizations/{orgID}", s.handleGetOrganization)
	api.HandleFunc("PUT /api/v1/organizations/{orgID}", s.handleUpdateOrganization)
	api.HandleFunc("DELETE /api/v1/organizations/{orgID}", s.handleDeleteOrganization)

	api.HandleFunc("GET /api/v1/organizations/{orgID}/projects", s.handleListProjects)
	api.HandleFunc("POST /api/v1/organizations/{orgID}/projects", s.handleCreateProject)
	api.HandleFunc("GET /api/v1/organizations/{orgID}/projects/{projectID}", s.handleGetProject)
	api.HandleFunc("PUT /api/v1/organizations/{orgID}/projects/{projectID}", s.handleUpdateProject)
	api.HandleFunc("DELETE /api/v1/organizations/{orgID}/projects/{projectID}", s.handleDeleteProject)

	api.HandleFunc("GET /api/v1/frameworks", s.handleListFrameworks)
	api.HandleFunc("POST /api/v1/frameworks", s.handleCreateFramework)
	api.HandleFunc("GET /api/v1/frameworks/{fwID}", s.handleGetFramework)
	api.HandleFunc("PUT /api/v1/frameworks/{fwID}", s.handleUpdateFramework)
	api.HandleFunc("DELETE /api/v1/frameworks/{fwID}", s.handleDeleteFramework)

	api.HandleFunc("GET /api/v1/frameworks/{fwID}/domains", s.handleListDomains)
	api.HandleFunc("POST /api/v1/frameworks/{fwID}/domains", s.handleCreateDomain)
	api.HandleFunc("PUT /api/v1/frameworks/{fwID}/domains/{domainID}", s.handleUpdateDomain)
	api.HandleFunc("DELETE /api/v1/frameworks/{fwID}/domains/{domainID}", s.handleDeleteDomain)

	api.HandleFunc("GET /api/v1/frameworks/{fwID}/domains/{domainID}/controls", s.handleListControls)
	api.HandleFunc("POST /api/v1/frameworks/{fwID}/domains/{domainID}/controls", s.handleCreateControl)
	api.HandleFunc("PUT /api/v1/frameworks/{fwID}/domains/{domainID}/controls/{controlID}", s.handleUpdateControl)
	api.HandleFunc("DELETE /api/v1/frameworks/{fwID}/domains/{domainID}/controls/{controlID}", s.handleDeleteControl)

	api.HandleFunc("GET /api/v1/frameworks/{fwID}/domains/{domainID}/controls/{controlID}/specifications", s.handleListSpecifications)
	api.HandleFunc("POST /api/v1/frameworks/{fwID}/domains/{domainID}/controls/{controlID}/specifications", s.handleCreateSpecification)
	api.HandleFunc("GET /api/v1/frameworks/{fwID}/domains/{domainID}/controls/{controlID}/specifications/{specID}", s.handleGetSpecification)
	api.HandleFunc("PUT /api/v1/frameworks/{fwID}/domains/{domainID}/controls/{controlID}/specifications/{specID}", s.handleUpdateSpecification)
	api.HandleFunc("DELETE /api/v1/frameworks/{fwID}/domains/{domainID}/controls/{controlID}/specifications/{specID}", s.handleDeleteSpecification)

	api.HandleFunc("GET /api/v1/frameworks/{fwID}/criteria", s.handleGetCriteria)
	api.HandleFunc("PUT /api/v1/frameworks/{fwID}/criteria", s.handleSaveCriteria)
	api.HandleFunc("DELETE /api/v1/frameworks/{fwID}/criteria", s.handleDeleteCriteria)
	api.HandleFunc("POST /api/v1/frameworks/{fwID}/criteria/distribute", s.handleDistributeWeights)

	api.HandleFunc("GET /api/v1/search", s.handleSearch)

	api.HandleFunc("GET /api/v1/import/templates", s.handleListTemplates)
	api.HandleFunc("POST /api/v1/frameworks/{fwID}/import/{templateID}", s.handleImport)
	api.HandleFunc("GET /api/v1/frameworks/{fwID}/export", s.handleExport)

	api.HandleFunc("GET /api/v1/users", s.handleListUsers)
	api.HandleFunc("POST /api/v1/users", s.handleCreateUser)
	api.HandleFunc("GET /api/v1/users/{userID}", s.handleGetUser)
	api.HandleFunc("PUT /api/v1/users/{userID}", s.handleUpdateUser)
	api.HandleFunc("DELETE /api/v1/users/{userID}", s.handleDeleteUser)

	mux.Handle("/api/v1/", s.withSession(api))

	return s.withObservability(mux)
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("http server starting", map[string]interface{}{"address": s.cfg.Server.Address})
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			s.logger.Error("response encoding failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// readJSON decodes the request body, rejecting unknown fields.
func (s *Server) readJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.NewValidationFailedError("invalid JSON body: " + err.Error())
	}
	return nil
}

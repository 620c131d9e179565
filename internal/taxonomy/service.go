// Package taxonomy implements the administrative CRUD over the compliance
// hierarchy: organizations and their projects, frameworks, domains, controls,
// and specifications, plus the user directory. All records live in the
// document store; controls and specifications are additionally mirrored into
// the search index.
package taxonomy

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"taqyim/internal/common/logger"
	"taqyim/internal/models"
	"taqyim/internal/store"
)

// Indexer mirrors taxonomy records into the search backend. A nil Indexer
// disables search mirroring entirely.
type Indexer interface {
	IndexControl(ctx context.Context, c models.Control) error
	IndexSpecification(ctx context.Context, sp models.Specification) error
	Remove(ctx context.Context, kind, id string) error
}

// Service is the taxonomy CRUD layer. Index failures are logged and swallowed:
// the document store is the source of truth and search lags behind it.
type Service struct {
	docs   store.DocumentStore
	search Indexer
	logger logger.Logger
	now    func() time.Time
}

func NewService(docs store.DocumentStore, search Indexer, log logger.Logger) *Service {
	return &Service{
		docs:   docs,
		search: search,
		logger: log.WithFields(map[string]interface{}{"component": "taxonomy-service"}),
		now:    time.Now,
	}
}

func newID() string {
	return uuid.NewString()
}

// decodeAll unmarshals every listed document into T, skipping records that no
// longer match the schema instead of failing the whole listing.
func decodeAll[T any](docs []store.Document, log logger.Logger) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Body, &v); err != nil {
			log.Warn("skipping undecodable document", map[string]interface{}{
				"path": d.Path, "error": err.Error(),
			})
			continue
		}
		out = append(out, v)
	}
	return out
}

// indexControl mirrors a control into search, best-effort.
func (s *Service) indexControl(ctx context.Context, c models.Control) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexControl(ctx, c); err != nil {
		s.logger.Warn("control index failed", map[string]interface{}{"controlId": c.ID, "error": err.Error()})
	}
}

// indexSpecification mirrors a specification into search, best-effort.
func (s *Service) indexSpecification(ctx context.Context, sp models.Specification) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexSpecification(ctx, sp); err != nil {
		s.logger.Warn("specification index failed", map[string]interface{}{"specificationId": sp.ID, "error": err.Error()})
	}
}

// removeFromIndex drops one mirrored document, best-effort.
func (s *Service) removeFromIndex(ctx context.Context, kind, id string) {
	if s.search == nil {
		return
	}
	if err := s.search.Remove(ctx, kind, id); err != nil {
		s.logger.Warn("index removal failed", map[string]interface{}{"kind": kind, "id": id, "error": err.Error()})
	}
}

// matchesText reports whether the filter's search text appears in the code or
// either language of the name or description. Empty search matches everything.
func matchesText(filter models.ListFilter, code string, name, description models.LocalizedText) bool {
	if filter.Search == "" {
		return true
	}
	needle := filter.Search
	for _, hay := range []string{code, name.En, name.Ar, description.En, description.Ar} {
		if containsFold(hay, needle) {
			return true
		}
	}
	return false
}

// containsFold is a case-insensitive substring match. Arabic text has no case,
// so folding only affects the Latin half.
func containsFold(hay, needle string) bool {
	return strings.Contains(strings.ToLower(hay), strings.ToLower(needle))
}

// page applies the filter's offset/limit to a slice length, returning the
// bounds to keep.
func page(filter models.ListFilter, n int) (int, int) {
	lo := filter.Offset
	if lo > n {
		lo = n
	}
	hi := lo + filter.Limit
	if hi > n {
		hi = n
	}
	return lo, hi
}

// internal/store/search.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"taqyim/internal/common/database"
	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/logger"
	"taqyim/internal/models"
)

// Index holding controls and specifications for bilingual text search.
const TaxonomyIndex = "taxonomy"

// SearchIndexer mirrors controls and specifications into Elasticsearch so the
// admin list views can filter by free text in either language. Indexing is
// best-effort: failures are logged by callers, never surfaced to the request.
type SearchIndexer struct {
	es     *database.ElasticsearchClient
	logger logger.Logger
}

func NewSearchIndexer(es *database.ElasticsearchClient, log logger.Logger) *SearchIndexer {
	return &SearchIndexer{
		es:     es,
		logger: log.WithFields(map[string]interface{}{"component": "search-indexer"}),
	}
}

// taxonomyDoc is the indexed shape shared by controls and specifications.
type taxonomyDoc struct {
	Kind            string `json:"kind"` // "control" or "specification"
	FrameworkID     string `json:"frameworkId"`
	DomainID        string `json:"domainId"`
	ControlID       string `json:"controlId,omitempty"`
	Code            string `json:"code"`
	NameEn          string `json:"nameEn"`
	NameAr          string `json:"nameAr"`
	DescriptionEn   string `json:"descriptionEn,omitempty"`
	DescriptionAr   string `json:"descriptionAr,omitempty"`
	CapabilityLevel string `json:"capabilityLevel,omitempty"`
}

// IndexControl indexes or reindexes one control.
func (s *SearchIndexer) IndexControl(ctx context.Context, c models.Control) error {
	doc := taxonomyDoc{
		Kind:          "control",
		FrameworkID:   c.FrameworkID,
		DomainID:      c.DomainID,
		Code:          c.Code,
		NameEn:        c.Name.En,
		NameAr:        c.Name.Ar,
		DescriptionEn: c.Description.En,
		DescriptionAr: c.Description.Ar,
	}
	return s.index(ctx, "control-"+c.ID, doc)
}

// IndexSpecification indexes or reindexes one specification.
func (s *SearchIndexer) IndexSpecification(ctx context.Context, sp models.Specification) error {
	doc := taxonomyDoc{
		Kind:            "specification",
		FrameworkID:     sp.FrameworkID,
		DomainID:        sp.DomainID,
		ControlID:       sp.ControlID,
		Code:            sp.Code,
		NameEn:          sp.Name.En,
		NameAr:          sp.Name.Ar,
		DescriptionEn:   sp.Description.En,
		DescriptionAr:   sp.Description.Ar,
		CapabilityLevel: sp.CapabilityLevel,
	}
	return s.index(ctx, "specification-"+sp.ID, doc)
}

// Remove deletes an indexed document; missing documents are not an error.
func (s *SearchIndexer) Remove(ctx context.Context, kind, id string) error {
	res, err := s.es.Client.Delete(
		TaxonomyIndex,
		kind+"-"+id,
		s.es.Client.Delete.WithContext(ctx),
	)
	if err != nil {
		return apperrors.NewSearchIndexFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return apperrors.NewSearchIndexFailedError(fmt.Errorf("delete status: %s", res.Status()))
	}
	return nil
}

// SearchHit is one search result.
type SearchHit struct {
	Kind        string  `json:"kind"`
	ID          string  `json:"id"`
	FrameworkID string  `json:"frameworkId"`
	Code        string  `json:"code"`
	Score       float64 `json:"score"`
}

// Search runs a bilingual multi-match over names, descriptions, and codes,
// optionally scoped to one framework.
func (s *SearchIndexer) Search(ctx context.Context, frameworkID, text string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 25
	}

	must := []map[string]interface{}{
		{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"nameEn", "nameAr", "descriptionEn", "descriptionAr", "code^2"},
			},
		},
	}
	if frameworkID != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"frameworkId": frameworkID},
		})
	}

	query := map[string]interface{}{
		"size":  limit,
		"query": map[string]interface{}{"bool": map[string]interface{}{"must": must}},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}

	res, err := s.es.Client.Search(
		s.es.Client.Search.WithContext(ctx),
		s.es.Client.Search.WithIndex(TaxonomyIndex),
		s.es.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(fmt.Errorf("search status: %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string      `json:"_id"`
				Score  float64     `json:"_score"`
				Source taxonomyDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}

	hits := make([]SearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, SearchHit{
			Kind:        h.Source.Kind,
			ID:          h.ID,
			FrameworkID: h.Source.FrameworkID,
			Code:        h.Source.Code,
			Score:       h.Score,
		})
	}
	return hits, nil
}

func (s *SearchIndexer) index(ctx context.Context, docID string, doc taxonomyDoc) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return apperrors.NewSearchIndexFailedError(err)
	}

	res, err := s.es.Client.Index(
		TaxonomyIndex,
		bytes.NewReader(body),
		s.es.Client.Index.WithDocumentID(docID),
		s.es.Client.Index.WithContext(ctx),
	)
	if err != nil {
		return apperrors.NewSearchIndexFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewSearchIndexFailedError(fmt.Errorf("index status: %s", res.Status()))
	}

	s.logger.Debug("document indexed", map[string]interface{}{"docId": docID})
	return nil
}

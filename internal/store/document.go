// Package store implements the hosted-document-store contract the admin app
// persists through: documents addressed by nested collection paths like
// frameworks/{id}/domains/{id}/controls/{id}/specifications/{id}.
package store

import (
	"context"
	"fmt"
	"strings"
)

// Document is one stored record: its full path and raw JSON body.
type Document struct {
	Path string
	ID   string
	Body []byte
}

// DocumentStore is the persistence contract. Writes are last-write-wins; there
// are no cross-document transactions.
type DocumentStore interface {
	// Get unmarshals the document at path into out. Returns a
	// DOCUMENT_NOT_FOUND StandardError when absent.
	Get(ctx context.Context, path string, out interface{}) error
	// Set upserts the document at path.
	Set(ctx context.Context, path string, doc interface{}) error
	// Create inserts the document at path, failing with DUPLICATE_DOCUMENT if
	// it already exists.
	Create(ctx context.Context, path string, doc interface{}) error
	// Delete removes the document at path and every descendant under it.
	Delete(ctx context.Context, path string) error
	// List returns all documents directly inside the given collection path.
	List(ctx context.Context, collection string) ([]Document, error)
	// Exists reports whether a document is present at path.
	Exists(ctx context.Context, path string) (bool, error)
}

// Top-level collections.
const (
	CollOrganizations  = "organizations"
	CollProjects       = "projects"
	CollFrameworks     = "frameworks"
	CollDomains        = "domains"
	CollControls       = "controls"
	CollSpecifications = "specifications"
	CollUsers          = "users"
)

// JoinPath builds a slash-separated document or collection path.
func JoinPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// ValidatePath checks the segment structure: non-empty segments, no slashes
// inside a segment. Document paths have an even segment count, collection
// paths an odd one.
func ValidatePath(path string, wantDocument bool) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("path %q has an empty segment", path)
		}
	}
	isDocument := len(segments)%2 == 0
	if wantDocument && !isDocument {
		return fmt.Errorf("path %q is a collection path, not a document path", path)
	}
	if !wantDocument && isDocument {
		return fmt.Errorf("path %q is a document path, not a collection path", path)
	}
	return nil
}

// DocumentID returns the final segment of a document path.
func DocumentID(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// ParentCollection returns the collection path holding the document.
func ParentCollection(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// Canonical paths for the taxonomy hierarchy.

func FrameworkPath(frameworkID string) string {
	return JoinPath(CollFrameworks, frameworkID)
}

func DomainPath(frameworkID, domainID string) string {
	return JoinPath(CollFrameworks, frameworkID, CollDomains, domainID)
}

func ControlPath(frameworkID, domainID, controlID string) string {
	return JoinPath(CollFrameworks, frameworkID, CollDomains, domainID, CollControls, controlID)
}

func SpecificationPath(frameworkID, domainID, controlID, specID string) string {
	return JoinPath(CollFrameworks, frameworkID, CollDomains, domainID, CollControls, controlID, CollSpecifications, specID)
}

// CriteriaPath addresses a framework's single assessment criteria document.
// The fixed child ID enforces at-most-one criteria per framework.
func CriteriaPath(frameworkID string) string {
	return JoinPath(CollFrameworks, frameworkID, "criteria", "current")
}

func OrganizationPath(orgID string) string {
	return JoinPath(CollOrganizations, orgID)
}

func ProjectPath(orgID, projectID string) string {
	return JoinPath(CollOrganizations, orgID, CollProjects, projectID)
}

func UserPath(userID string) string {
	return JoinPath(CollUsers, userID)
}

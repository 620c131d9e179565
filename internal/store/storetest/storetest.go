// Package storetest provides an in-memory DocumentStore for package tests.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/store"
)

// Store is a map-backed DocumentStore. FailWrites makes Set and Create return
// a store-write error, simulating a backend outage.
type Store struct {
	mu         sync.Mutex
	docs       map[string][]byte
	FailWrites bool
}

func New() *Store {
	return &Store{docs: map[string][]byte{}}
}

// Put seeds a document, failing the test on marshal errors.
func (s *Store) Put(t *testing.T, path string, doc interface{}) {
	t.Helper()
	body, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal seed document %s: %v", path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = body
}

// Has reports whether a document is stored at path.
func (s *Store) Has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[path]
	return ok
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *Store) Get(_ context.Context, path string, out interface{}) error {
	s.mu.Lock()
	body, ok := s.docs[path]
	s.mu.Unlock()
	if !ok {
		return apperrors.NewDocumentNotFoundError(path)
	}
	return json.Unmarshal(body, out)
}

func (s *Store) Set(_ context.Context, path string, doc interface{}) error {
	if s.FailWrites {
		return apperrors.NewStoreWriteFailedError(path, fmt.Errorf("connection refused"))
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = body
	return nil
}

func (s *Store) Create(ctx context.Context, path string, doc interface{}) error {
	if s.Has(path) {
		return apperrors.NewDuplicateDocumentError(path)
	}
	return s.Set(ctx, path, doc)
}

func (s *Store) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	prefix := path + "/"
	for p := range s.docs {
		if len(p) > len(prefix) && p[:len(prefix)] == prefix {
			delete(s.docs, p)
		}
	}
	return nil
}

func (s *Store) List(_ context.Context, collection string) ([]store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Document
	for path, body := range s.docs {
		if store.ParentCollection(path) == collection {
			out = append(out, store.Document{Path: path, ID: store.DocumentID(path), Body: body})
		}
	}
	return out, nil
}

func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	return s.Has(path), nil
}

// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"taqyim/internal/common/database"
	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/metrics"

	"github.com/lib/pq"
)

// PostgresStore keeps every document in a single table keyed by its full
// path, body as JSONB. Collection membership is a stored column so listing
// needs no path parsing in SQL.
type PostgresStore struct {
	pg *database.PostgresClient
}

// Schema is applied by migrations; kept here as the authoritative shape.
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
    path        TEXT PRIMARY KEY,
    collection  TEXT NOT NULL,
    body        JSONB NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
`

func NewPostgresStore(pg *database.PostgresClient) *PostgresStore {
	return &PostgresStore{pg: pg}
}

// Migrate creates the documents table if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pg.Exec(ctx, SchemaDDL); err != nil {
		return apperrors.NewStoreConnectionFailedError(err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, path string, out interface{}) error {
	if err := ValidatePath(path, true); err != nil {
		return apperrors.NewStoreQueryFailedError(path, err)
	}

	var body []byte
	row := s.pg.QueryRow(ctx, `SELECT body FROM documents WHERE path = $1`, path)
	if err := row.Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			s.record("get", path, "miss")
			return apperrors.NewDocumentNotFoundError(path)
		}
		s.record("get", path, "error")
		return apperrors.NewStoreQueryFailedError(path, err)
	}

	s.record("get", path, "ok")
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewStoreQueryFailedError(path, err)
	}
	return nil
}

func (s *PostgresStore) Set(ctx context.Context, path string, doc interface{}) error {
	if err := ValidatePath(path, true); err != nil {
		return apperrors.NewStoreWriteFailedError(path, err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return apperrors.NewStoreWriteFailedError(path, err)
	}

	_, err = s.pg.Exec(ctx, `
		INSERT INTO documents (path, collection, body, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (path) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		path, ParentCollection(path), body, time.Now().UTC())
	if err != nil {
		s.record("set", path, "error")
		return apperrors.NewStoreWriteFailedError(path, err)
	}
	s.record("set", path, "ok")
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, path string, doc interface{}) error {
	if err := ValidatePath(path, true); err != nil {
		return apperrors.NewStoreWriteFailedError(path, err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return apperrors.NewStoreWriteFailedError(path, err)
	}

	_, err = s.pg.Exec(ctx, `
		INSERT INTO documents (path, collection, body, updated_at)
		VALUES ($1, $2, $3, $4)`,
		path, ParentCollection(path), body, time.Now().UTC())
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			s.record("create", path, "duplicate")
			return apperrors.NewDuplicateDocumentError(path)
		}
		s.record("create", path, "error")
		return apperrors.NewStoreWriteFailedError(path, err)
	}
	s.record("create", path, "ok")
	return nil
}

// Delete removes the document and, mirroring the hosted store's recursive
// delete helper, everything nested beneath it.
func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	if err := ValidatePath(path, true); err != nil {
		return apperrors.NewStoreWriteFailedError(path, err)
	}

	_, err := s.pg.Exec(ctx,
		`DELETE FROM documents WHERE path = $1 OR path LIKE $2`,
		path, path+"/%")
	if err != nil {
		s.record("delete", path, "error")
		return apperrors.NewStoreWriteFailedError(path, err)
	}
	s.record("delete", path, "ok")
	return nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	if err := ValidatePath(collection, false); err != nil {
		return nil, apperrors.NewStoreQueryFailedError(collection, err)
	}

	rows, err := s.pg.Query(ctx,
		`SELECT path, body FROM documents WHERE collection = $1 ORDER BY path`,
		collection)
	if err != nil {
		s.record("list", collection, "error")
		return nil, apperrors.NewStoreQueryFailedError(collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Path, &d.Body); err != nil {
			return nil, apperrors.NewStoreQueryFailedError(collection, err)
		}
		d.ID = DocumentID(d.Path)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreQueryFailedError(collection, err)
	}

	s.record("list", collection, "ok")
	return docs, nil
}

func (s *PostgresStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := ValidatePath(path, true); err != nil {
		return false, apperrors.NewStoreQueryFailedError(path, err)
	}

	var one int
	row := s.pg.QueryRow(ctx, `SELECT 1 FROM documents WHERE path = $1`, path)
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, apperrors.NewStoreQueryFailedError(path, err)
	}
	return true, nil
}

func (s *PostgresStore) record(op, path, result string) {
	collection := ParentCollection(path)
	if collection == "" {
		collection = path
	}
	// Label by top-level collection only to keep cardinality bounded.
	if idx := strings.IndexByte(collection, '/'); idx > 0 {
		collection = collection[:idx]
	}
	metrics.StoreOperationsTotal.WithLabelValues(op, collection, result).Inc()
}

package extractions

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, e Extraction) error {
	const query = `
INSERT INTO extractions (id, document_id, type, data, source, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (document_id, type) DO UPDATE SET
  data = EXCLUDED.data,
  source = EXCLUDED.source,
  updated_at = EXCLUDED.updated_at`
	_, err := r.DB.ExecContext(ctx, query, e.ID, e.DocumentID, e.Type, []byte(e.Data), e.Source, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, documentID, typ string) (Extraction, error) {
	const query = `
SELECT id, document_id, type, data, source, created_at, updated_at
FROM extractions
WHERE document_id = $1 AND type = $2`
	var e Extraction
	var data []byte
	err := r.DB.QueryRowContext(ctx, query, documentID, typ).Scan(&e.ID, &e.DocumentID, &e.Type, &data, &e.Source, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Extraction{}, ErrNotFound
		}
		return Extraction{}, err
	}
	e.Data = data
	return e, nil
}

func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Extraction, error) {
	const query = `
SELECT id, document_id, type, data, source, created_at, updated_at
FROM extractions
WHERE document_id = $1
ORDER BY type ASC`
	return r.list(ctx, query, documentID)
}

func (r *PGRepo) ListByDocuments(ctx context.Context, documentIDs []string, typ string) ([]Extraction, error) {
	if len(documentIDs) == 0 {
		return []Extraction{}, nil
	}
	const query = `
SELECT id, document_id, type, data, source, created_at, updated_at
FROM extractions
WHERE document_id = ANY($1) AND type = $2`
	return r.list(ctx, query, documentIDs, typ)
}

func (r *PGRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM extractions WHERE document_id = $1`, documentID)
	return err
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Extraction, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Extraction{}
	for rows.Next() {
		var e Extraction
		var data []byte
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Type, &data, &e.Source, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Data = data
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)

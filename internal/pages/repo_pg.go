package pages

import (
	"context"
	"database/sql"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// ReplaceForDocument deletes and re-inserts the pages in one transaction.
func (r *PGRepo) ReplaceForDocument(ctx context.Context, documentID string, pages []Page) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM pages WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}

	const insert = `
INSERT INTO pages (id, document_id, page_number, text, char_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	for _, p := range pages {
		if _, err = tx.ExecContext(ctx, insert, p.ID, documentID, p.PageNumber, p.Text, p.CharCount, p.CreatedAt); err != nil {
			return fmt.Errorf("insert page %d: %w", p.PageNumber, err)
		}
	}
	return tx.Commit()
}

func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Page, error) {
	const query = `
SELECT id, document_id, page_number, text, char_count, created_at
FROM pages
WHERE document_id = $1
ORDER BY page_number ASC`
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Page{}
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.PageNumber, &p.Text, &p.CharCount, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) CountByDocuments(ctx context.Context, documentIDs []string) (int, error) {
	if len(documentIDs) == 0 {
		return 0, nil
	}
	var total int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages WHERE document_id = ANY($1)`, documentIDs).Scan(&total)
	return total, err
}

func (r *PGRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM pages WHERE document_id = $1`, documentID)
	return err
}

var _ Repo = (*PGRepo)(nil)

package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, user_id, file_name, mime_type, size_bytes, storage_provider, storage_key, status, progress, page_count, error_message, processing_started_at, completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    user_id,
    file_name,
    mime_type,
    size_bytes,
    storage_provider,
    storage_key,
    status,
    progress,
    page_count,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`

	storageProvider := doc.StorageProvider
	if storageProvider == "" {
		storageProvider = "local"
	}
	status := doc.Status
	if status == "" {
		status = StatusPending
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		storageProvider,
		doc.StorageKey,
		status,
		doc.Progress,
		doc.PageCount,
		doc.CreatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, documentID string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// GetByID fetches a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE user_id = $1 AND id = $2`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, userID, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// ListByUser lists documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Document, error) {
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	var limit sql.NullInt64
	if filter.Limit > 0 {
		limit = sql.NullInt64{Int64: int64(filter.Limit), Valid: true}
	}
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND ($2 = '' OR status = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`

	rows, err := r.DB.QueryContext(ctx, query, userID, filter.Status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *PGRepo) UpdateStatus(ctx context.Context, documentID string, update StatusUpdate) error {
	const query = `
UPDATE documents
SET status = $2,
    progress = $3,
    error_message = $4,
    processing_started_at = COALESCE($5, CASE WHEN $7 THEN NULL ELSE processing_started_at END),
    completed_at = COALESCE($6, CASE WHEN $7 THEN NULL ELSE completed_at END),
    updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(
		ctx,
		query,
		documentID,
		update.Status,
		update.Progress,
		nullString(update.ErrorMessage),
		nullTime(update.ProcessingStartedAt),
		nullTime(update.CompletedAt),
		update.ClearTimestamps,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PGRepo) SetPageCount(ctx context.Context, documentID string, pageCount int) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE documents SET page_count = $2, updated_at = now() WHERE id = $1`, documentID, pageCount)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PGRepo) Delete(ctx context.Context, documentID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, documentID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PGRepo) ListStale(ctx context.Context, status string, olderThan time.Time) ([]Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE status = $1 AND COALESCE(processing_started_at, updated_at) < $2
ORDER BY created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, status, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *PGRepo) ClaimStale(ctx context.Context, documentID string, olderThan time.Time) (bool, error) {
	query := `UPDATE documents
SET processing_started_at = now(), updated_at = now()
WHERE id = $1 AND status = 'processing' AND COALESCE(processing_started_at, updated_at) < $2`
	res, err := r.DB.ExecContext(ctx, query, documentID, olderThan)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func collect(rows *sql.Rows) ([]Document, error) {
	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var errorMessage sql.NullString
	var startedAt sql.NullTime
	var completedAt sql.NullTime
	if err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageProvider,
		&doc.StorageKey,
		&doc.Status,
		&doc.Progress,
		&doc.PageCount,
		&errorMessage,
		&startedAt,
		&completedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return Document{}, err
	}
	if errorMessage.Valid {
		doc.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		doc.ProcessingStartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		doc.CompletedAt = &t
	}
	return doc, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)

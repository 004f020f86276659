package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, msg Message) error {
	citations := msg.Citations
	if citations == nil {
		citations = []Citation{}
	}
	raw, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("encode citations: %w", err)
	}
	const query = `
INSERT INTO chat_messages (id, document_id, user_id, role, content, citations, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.DB.ExecContext(ctx, query, msg.ID, msg.DocumentID, msg.UserID, msg.Role, msg.Content, raw, msg.CreatedAt)
	return err
}

// ListByDocument selects the newest limit rows and returns them oldest first.
func (r *PGRepo) ListByDocument(ctx context.Context, documentID string, limit int) ([]Message, error) {
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	const query = `
SELECT id, document_id, user_id, role, content, citations, created_at
FROM (
  SELECT id, document_id, user_id, role, content, citations, created_at
  FROM chat_messages
  WHERE document_id = $1
  ORDER BY created_at DESC, id DESC
  LIMIT $2
) recent
ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, documentID, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		var raw []byte
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.UserID, &m.Role, &m.Content, &raw, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Citations = []Citation{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &m.Citations); err != nil {
				return nil, fmt.Errorf("decode citations %s: %w", m.ID, err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PGRepo) CountByDocuments(ctx context.Context, documentIDs []string) (int, error) {
	if len(documentIDs) == 0 {
		return 0, nil
	}
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_messages WHERE document_id = ANY($1)`, documentIDs).Scan(&n)
	return n, err
}

func (r *PGRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM chat_messages WHERE document_id = $1`, documentID)
	return err
}

var _ Repo = (*PGRepo)(nil)

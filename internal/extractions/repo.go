package extractions

import "context"

// Repo persists extractions keyed by (documentId, type).
type Repo interface {
	// Upsert inserts the extraction or replaces data and source of the existing
	// one with the same document and type. The stored ID and CreatedAt are kept.
	Upsert(ctx context.Context, e Extraction) error
	Get(ctx context.Context, documentID, typ string) (Extraction, error)
	ListByDocument(ctx context.Context, documentID string) ([]Extraction, error)
	// ListByDocuments returns extractions of one type across many documents.
	ListByDocuments(ctx context.Context, documentIDs []string, typ string) ([]Extraction, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

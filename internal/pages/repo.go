package pages

import "context"

// Repo persists page texts.
type Repo interface {
	// ReplaceForDocument swaps all pages of a document for the given set.
	ReplaceForDocument(ctx context.Context, documentID string, pages []Page) error
	ListByDocument(ctx context.Context, documentID string) ([]Page, error)
	CountByDocuments(ctx context.Context, documentIDs []string) (int, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

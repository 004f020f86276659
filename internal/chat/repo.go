package chat

import "context"

// Repo persists chat messages.
type Repo interface {
	Create(ctx context.Context, msg Message) error
	// ListByDocument returns messages oldest first. A positive limit keeps
	// only the most recent limit messages.
	ListByDocument(ctx context.Context, documentID string, limit int) ([]Message, error)
	CountByDocuments(ctx context.Context, documentIDs []string) (int, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

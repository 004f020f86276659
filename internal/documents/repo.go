package documents

import (
	"context"
	"time"
)

// ListFilter narrows ListByUser. Limit 0 means no limit.
type ListFilter struct {
	Limit  int
	Offset int
	Status string
}

// StatusUpdate moves a document through the processing state machine.
// Nil timestamps are left untouched unless ClearTimestamps is set.
type StatusUpdate struct {
	Status              string
	Progress            int
	ErrorMessage        string
	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time
	ClearTimestamps     bool
}

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	// Get loads a document regardless of owner. Background tasks use it.
	Get(ctx context.Context, documentID string) (Document, error)
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Document, error)
	UpdateStatus(ctx context.Context, documentID string, update StatusUpdate) error
	SetPageCount(ctx context.Context, documentID string, pageCount int) error
	Delete(ctx context.Context, documentID string) error
	// ListStale returns documents in status whose processing started (or, when
	// unset, whose last update happened) before olderThan.
	ListStale(ctx context.Context, status string, olderThan time.Time) ([]Document, error)
	// ClaimStale restamps processing_started_at of a document that is still
	// processing and stale. It reports false when another worker got there
	// first or the document moved on.
	ClaimStale(ctx context.Context, documentID string, olderThan time.Time) (bool, error)
}

package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // documentId -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Document)}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	r.data[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	doc, err := r.Get(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListByUser returns documents for a user, newest first, honoring the filter.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	docs := make([]Document, 0)
	for _, doc := range r.data {
		if doc.UserID != userID {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		docs = append(docs, doc)
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if filter.Limit > 0 && offset+filter.Limit < end {
		end = offset + filter.Limit
	}
	return docs[offset:end], nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, documentID string, update StatusUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	doc.Status = update.Status
	doc.Progress = update.Progress
	doc.ErrorMessage = update.ErrorMessage
	if update.ClearTimestamps {
		doc.ProcessingStartedAt = nil
		doc.CompletedAt = nil
	}
	if update.ProcessingStartedAt != nil {
		t := *update.ProcessingStartedAt
		doc.ProcessingStartedAt = &t
	}
	if update.CompletedAt != nil {
		t := *update.CompletedAt
		doc.CompletedAt = &t
	}
	doc.UpdatedAt = time.Now().UTC()
	r.data[documentID] = doc
	return nil
}

func (r *MemoryRepo) SetPageCount(ctx context.Context, documentID string, pageCount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	doc.PageCount = pageCount
	doc.UpdatedAt = time.Now().UTC()
	r.data[documentID] = doc
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[documentID]; !ok {
		return ErrNotFound
	}
	delete(r.data, documentID)
	return nil
}

func (r *MemoryRepo) ListStale(ctx context.Context, status string, olderThan time.Time) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Document{}
	for _, doc := range r.data {
		if doc.Status != status {
			continue
		}
		ref := doc.UpdatedAt
		if doc.ProcessingStartedAt != nil {
			ref = *doc.ProcessingStartedAt
		}
		if ref.Before(olderThan) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) ClaimStale(ctx context.Context, documentID string, olderThan time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok || doc.Status != StatusProcessing {
		return false, nil
	}
	ref := doc.UpdatedAt
	if doc.ProcessingStartedAt != nil {
		ref = *doc.ProcessingStartedAt
	}
	if !ref.Before(olderThan) {
		return false, nil
	}
	now := time.Now().UTC()
	doc.ProcessingStartedAt = &now
	doc.UpdatedAt = now
	r.data[documentID] = doc
	return true, nil
}

var _ Repo = (*MemoryRepo)(nil)

package pages

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Page // documentId -> pages
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string][]Page)}
}

func (r *MemoryRepo) ReplaceForDocument(ctx context.Context, documentID string, pages []Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]Page, len(pages))
	copy(cp, pages)
	sort.Slice(cp, func(i, j int) bool { return cp[i].PageNumber < cp[j].PageNumber })

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(cp) == 0 {
		delete(r.data, documentID)
		return nil
	}
	r.data[documentID] = cp
	return nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Page, len(r.data[documentID]))
	copy(out, r.data[documentID])
	return out, nil
}

func (r *MemoryRepo) CountByDocuments(ctx context.Context, documentIDs []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, id := range documentIDs {
		total += len(r.data[id])
	}
	return total, nil
}

func (r *MemoryRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, documentID)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)

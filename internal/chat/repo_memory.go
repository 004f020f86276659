package chat

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Message // documentId -> messages in insert order
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string][]Message)}
}

func (r *MemoryRepo) Create(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg.Citations = append([]Citation(nil), msg.Citations...)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[msg.DocumentID] = append(r.data[msg.DocumentID], msg)
	return nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.data[documentID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]Message, len(all))
	copy(out, all)
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

package extractions

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]map[string]Extraction // documentId -> type -> extraction
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]map[string]Extraction)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, e Extraction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byType, ok := r.data[e.DocumentID]
	if !ok {
		byType = make(map[string]Extraction)
		r.data[e.DocumentID] = byType
	}
	if existing, ok := byType[e.Type]; ok {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	}
	byType[e.Type] = e
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, documentID, typ string) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.data[documentID][typ]
	if !ok {
		return Extraction{}, ErrNotFound
	}
	return e, nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Extraction, 0, len(r.data[documentID]))
	for _, e := range r.data[documentID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (r *MemoryRepo) ListByDocuments(ctx context.Context, documentIDs []string, typ string) ([]Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Extraction{}
	for _, id := range documentIDs {
		if e, ok := r.data[id][typ]; ok {
			out = append(out, e)
		}
	}
	return out, nil
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

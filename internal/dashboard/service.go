package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/patrickmn/go-cache"

	"docinsight-backend/internal/chat"
	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/pages"
)

const (
	DefaultTTL  = 30 * time.Second
	recentCount = 5
)

// Stats summarizes a user's documents.
type Stats struct {
	TotalDocuments    int                          `json:"totalDocuments"`
	TotalPages        int                          `json:"totalPages"`
	TotalBytes        int64                        `json:"totalBytes"`
	TotalChatMessages int                          `json:"totalChatMessages"`
	ByStatus          map[string]int               `json:"byStatus"`
	Recent            []documents.DocumentResponse `json:"recentDocuments"`
	// SuccessRate is completed / (completed + error), 0 when nothing finished.
	SuccessRate float64   `json:"successRate"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Service computes per-user stats and caches them for a short TTL.
type Service struct {
	Docs  documents.Repo
	Pages pages.Repo
	Chat  chat.Repo
	cache *cache.Cache
}

func NewService(docs documents.Repo, pg pages.Repo, chatRepo chat.Repo, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		Docs:  docs,
		Pages: pg,
		Chat:  chatRepo,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Stats returns the cached stats for userID, computing them on a miss.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	if v, ok := s.cache.Get(userID); ok {
		if st, ok := v.(Stats); ok {
			return st, nil
		}
	}
	st, err := s.compute(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	s.cache.SetDefault(userID, st)
	return st, nil
}

// Invalidate drops the cached stats of userID.
func (s *Service) Invalidate(userID string) {
	if s == nil || s.cache == nil {
		return
	}
	s.cache.Delete(userID)
}

func (s *Service) compute(ctx context.Context, userID string) (Stats, error) {
	docs, err := s.Docs.ListByUser(ctx, userID, documents.ListFilter{})
	if err != nil {
		return Stats{}, fmt.Errorf("list documents: %w", err)
	}
	st := Stats{
		TotalDocuments: len(docs),
		ByStatus: map[string]int{
			documents.StatusPending:    0,
			documents.StatusProcessing: 0,
			documents.StatusCompleted:  0,
			documents.StatusError:      0,
		},
		Recent:      make([]documents.DocumentResponse, 0, recentCount),
		GeneratedAt: time.Now().UTC(),
	}
	ids := make([]string, 0, len(docs))
	for i, doc := range docs {
		ids = append(ids, doc.ID)
		st.TotalBytes += doc.SizeBytes
		st.ByStatus[doc.Status]++
		if i < recentCount {
			st.Recent = append(st.Recent, documents.ToResponse(doc))
		}
	}
	if st.TotalPages, err = s.Pages.CountByDocuments(ctx, ids); err != nil {
		return Stats{}, fmt.Errorf("count pages: %w", err)
	}
	if s.Chat != nil {
		if st.TotalChatMessages, err = s.Chat.CountByDocuments(ctx, ids); err != nil {
			return Stats{}, fmt.Errorf("count chat messages: %w", err)
		}
	}
	finished := st.ByStatus[documents.StatusCompleted] + st.ByStatus[documents.StatusError]
	if finished > 0 {
		rate := float64(st.ByStatus[documents.StatusCompleted]) / float64(finished)
		st.SuccessRate = math.Round(rate*10000) / 10000
	}
	return st, nil
}

package dashboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docinsight-backend/internal/chat"
	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/pages"
)

func seed(t *testing.T) (*Service, *documents.MemoryRepo) {
	t.Helper()
	ctx := context.Background()
	docs := documents.NewMemoryRepo()
	pg := pages.NewMemoryRepo()
	msgs := chat.NewMemoryRepo()

	base := time.Now().UTC().Add(-time.Hour)
	statuses := []string{
		documents.StatusCompleted, documents.StatusCompleted, documents.StatusCompleted,
		documents.StatusError, documents.StatusProcessing, documents.StatusPending,
	}
	for i, status := range statuses {
		id := fmt.Sprintf("doc-%d", i)
		created := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, docs.Create(ctx, documents.Document{
			ID: id, UserID: "user-1", FileName: id + ".pdf", SizeBytes: 100,
			Status: status, CreatedAt: created, UpdatedAt: created,
		}))
		if status == documents.StatusCompleted {
			require.NoError(t, pg.ReplaceForDocument(ctx, id, pages.Build(id, []string{"a", "b"}, uuid.NewString, created)))
		}
	}
	require.NoError(t, msgs.Create(ctx, chat.Message{ID: "m1", DocumentID: "doc-0", UserID: "user-1", Role: chat.RoleUser}))
	require.NoError(t, docs.Create(ctx, documents.Document{ID: "other", UserID: "user-2", Status: documents.StatusCompleted, CreatedAt: base, UpdatedAt: base}))

	return NewService(docs, pg, msgs, time.Minute), docs
}

func TestStatsAggregatesUserDocuments(t *testing.T) {
	svc, _ := seed(t)

	st, err := svc.Stats(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 6, st.TotalDocuments)
	assert.Equal(t, 6, st.TotalPages)
	assert.Equal(t, int64(600), st.TotalBytes)
	assert.Equal(t, 1, st.TotalChatMessages)
	assert.Equal(t, 3, st.ByStatus[documents.StatusCompleted])
	assert.Equal(t, 1, st.ByStatus[documents.StatusError])
	assert.Equal(t, 0.75, st.SuccessRate)
	require.Len(t, st.Recent, 5)
	assert.Equal(t, "doc-5", st.Recent[0].DocumentID)
}

func TestStatsCachedUntilInvalidated(t *testing.T) {
	svc, docs := seed(t)
	ctx := context.Background()

	first, err := svc.Stats(ctx, "user-1")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, docs.Create(ctx, documents.Document{ID: "doc-new", UserID: "user-1", Status: documents.StatusPending, CreatedAt: now, UpdatedAt: now}))

	cached, err := svc.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.TotalDocuments, cached.TotalDocuments)

	svc.Invalidate("user-1")
	fresh, err := svc.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.TotalDocuments+1, fresh.TotalDocuments)
}

func TestStatsEmptyUser(t *testing.T) {
	svc, _ := seed(t)
	st, err := svc.Stats(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, st.TotalDocuments)
	assert.Zero(t, st.SuccessRate)
	assert.NotNil(t, st.Recent)
}

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/extractions"
	"docinsight-backend/internal/llm"
	"docinsight-backend/internal/pages"
)

type stubClient struct {
	reply string
	err   error
	got   []llm.Message
}

func (c *stubClient) Provider() string { return "stub" }

func (c *stubClient) Complete(_ context.Context, messages []llm.Message) (string, error) {
	c.got = messages
	return c.reply, c.err
}

func newService(t *testing.T, status string) (*Service, *stubClient) {
	t.Helper()
	ctx := context.Background()
	docs := documents.NewMemoryRepo()
	now := time.Now().UTC()
	require.NoError(t, docs.Create(ctx, documents.Document{
		ID: "doc-1", UserID: "user-1", FileName: "q3.pdf", StorageKey: "k",
		Status: status, CreatedAt: now, UpdatedAt: now,
	}))

	pg := pages.NewMemoryRepo()
	require.NoError(t, pg.ReplaceForDocument(ctx, "doc-1", pages.Build("doc-1", []string{
		"Quarterly overview and team changes.",
		"Revenue for the quarter reached $4.2M, driven by enterprise renewals.",
		"Appendix: revenue by region.",
	}, uuid.NewString, now)))

	exts := extractions.NewMemoryRepo()
	sum, err := extractions.Encode("ext-1", "doc-1", extractions.TypeSummary, extractions.SourceNLP, extractions.Summary{Text: "A quarterly report."}, now)
	require.NoError(t, err)
	require.NoError(t, exts.Upsert(ctx, sum))

	client := &stubClient{}
	return &Service{
		Repo:        NewMemoryRepo(),
		Docs:        docs,
		Pages:       pg,
		Extractions: exts,
		Assistant:   &llm.Assistant{Client: client},
	}, client
}

func TestSendUsesLLMAnswer(t *testing.T) {
	svc, client := newService(t, documents.StatusCompleted)
	client.reply = "Revenue reached $4.2M (p. 2)."

	ex, err := svc.Send(context.Background(), "user-1", "doc-1", "What was the revenue?")
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, ex.Source)
	assert.Equal(t, "Revenue reached $4.2M (p. 2).", ex.Answer.Content)
	require.NotEmpty(t, ex.Answer.Citations)
	assert.Equal(t, 2, ex.Answer.Citations[0].Page)

	require.GreaterOrEqual(t, len(client.got), 3)
	assert.Contains(t, client.got[1].Content, "A quarterly report.")
	assert.Contains(t, client.got[1].Content, "[2] Revenue")
}

func TestSendFallsBackToCitationsOnLLMError(t *testing.T) {
	svc, client := newService(t, documents.StatusCompleted)
	client.err = errors.New("openai http status 503: unavailable")

	ex, err := svc.Send(context.Background(), "user-1", "doc-1", "revenue")
	require.NoError(t, err)
	assert.Equal(t, SourceCitations, ex.Source)
	assert.Contains(t, ex.Answer.Content, "(p. 2)")
	assert.Contains(t, ex.Answer.Content, "(p. 3)")
	assert.Len(t, ex.Answer.Citations, 2)
}

func TestSendWithoutLLMAndNoMatchApologizes(t *testing.T) {
	svc, _ := newService(t, documents.StatusCompleted)
	svc.Assistant = nil

	ex, err := svc.Send(context.Background(), "user-1", "doc-1", "Who is the ceo of Globex?")
	require.NoError(t, err)
	assert.Equal(t, SourceApology, ex.Source)
	assert.Equal(t, Apology, ex.Answer.Content)
	assert.Empty(t, ex.Answer.Citations)
}

func TestSendRejectsUnfinishedDocument(t *testing.T) {
	svc, _ := newService(t, documents.StatusProcessing)
	_, err := svc.Send(context.Background(), "user-1", "doc-1", "revenue?")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestSendValidatesMessage(t *testing.T) {
	svc, _ := newService(t, documents.StatusCompleted)
	_, err := svc.Send(context.Background(), "user-1", "doc-1", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Send(context.Background(), "user-1", "doc-1", strings.Repeat("a", MaxMessageChars+1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Send(context.Background(), "someone-else", "doc-1", "revenue")
	assert.ErrorIs(t, err, documents.ErrNotFound)
}

func TestHistoryOldestFirstAndClear(t *testing.T) {
	svc, client := newService(t, documents.StatusCompleted)
	client.reply = "first answer"
	ctx := context.Background()

	_, err := svc.Send(ctx, "user-1", "doc-1", "first question")
	require.NoError(t, err)
	client.reply = "second answer"
	_, err = svc.Send(ctx, "user-1", "doc-1", "second question")
	require.NoError(t, err)

	// the second request carries the first exchange as history
	require.Len(t, client.got, 5)
	assert.Equal(t, "first question", client.got[2].Content)
	assert.Equal(t, llm.RoleAssistant, client.got[3].Role)

	msgs, err := svc.History(ctx, "user-1", "doc-1")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "first question", msgs[0].Content)
	assert.Equal(t, "second answer", msgs[3].Content)

	require.NoError(t, svc.Clear(ctx, "user-1", "doc-1"))
	msgs, err = svc.History(ctx, "user-1", "doc-1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestCiteRanksByDistinctTerms(t *testing.T) {
	now := time.Now()
	list := pages.Build("d", []string{
		"revenue revenue revenue",
		"enterprise revenue grew",
		"nothing relevant here",
	}, uuid.NewString, now)

	got := Cite(list, "enterprise revenue", 3)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Page)
	assert.Equal(t, 1, got[1].Page)

	assert.Empty(t, Cite(list, "the and of", 3))
}

func TestExcerptTrimsToWords(t *testing.T) {
	text := strings.Repeat("alpha ", 60) + "needle " + strings.Repeat("omega ", 60)
	at := strings.Index(text, "needle")
	out := excerpt(text, at)
	assert.Contains(t, out, "needle")
	assert.True(t, strings.HasPrefix(out, "..."))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.NotContains(t, out, "alph ")
}

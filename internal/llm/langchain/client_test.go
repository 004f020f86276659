package langchain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"docinsight-backend/internal/llm"
)

type fakeModel struct {
	got   []llms.MessageContent
	reply string
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = messages
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func textOf(t *testing.T, m llms.MessageContent) string {
	t.Helper()
	require.Len(t, m.Parts, 1)
	part, ok := m.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestCompleteKeepsRoles(t *testing.T) {
	model := &fakeModel{reply: " answer "}
	c := New(model, "ollama", false)

	out, err := c.Complete(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "rules"},
		{Role: llm.RoleUser, Content: "q1"},
		{Role: llm.RoleAssistant, Content: "a1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	require.Len(t, model.got, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.got[0].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, model.got[2].Role)
}

func TestCompleteFoldsSystemIntoFirstUserTurn(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	c := New(model, "gemini", true)

	_, err := c.Complete(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "rules"},
		{Role: llm.RoleUser, Content: "question"},
	})
	require.NoError(t, err)
	require.Len(t, model.got, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.got[0].Role)
	assert.Equal(t, "rules\n\nquestion", textOf(t, model.got[0]))
}

func TestCompleteEmptyReply(t *testing.T) {
	c := New(&fakeModel{reply: ""}, "ollama", false)
	_, err := c.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "q"}})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

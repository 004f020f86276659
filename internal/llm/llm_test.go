package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docinsight-backend/internal/shared/resilience"
)

type scriptedClient struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	calls    int
	messages [][]Message
}

func (c *scriptedClient) Provider() string { return "test" }

func (c *scriptedClient) Complete(ctx context.Context, messages []Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	c.messages = append(c.messages, messages)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.replies) {
		return c.replies[i], nil
	}
	return "", nil
}

func fastPolicy() resilience.Policy {
	return resilience.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func TestResilientRetriesTransientErrors(t *testing.T) {
	base := &scriptedClient{
		errs:    []error{fmt.Errorf("openai http status 503: unavailable"), nil},
		replies: []string{"", "ok"},
	}
	r := NewResilient(base, fastPolicy(), time.Second)

	out, err := r.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, base.calls)
}

func TestResilientDoesNotRetryClientErrors(t *testing.T) {
	base := &scriptedClient{errs: []error{errors.New("openai http status 400: bad request")}}
	r := NewResilient(base, fastPolicy(), time.Second)

	_, err := r.Complete(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, base.calls)
}

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
		{errors.New("openai http status 429: slow down"), true},
		{errors.New("openai http status 500: oops"), true},
		{errors.New("read tcp: connection reset by peer"), true},
		{errors.New("openai http status 401: bad key"), false},
		{nil, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ShouldRetry(tc.err), "err=%v", tc.err)
	}
}

func TestAssistantKeywordsParsesFencedJSON(t *testing.T) {
	base := &scriptedClient{replies: []string{"```json\n[\"Revenue\", \"cloud costs\", \"revenue\", \"2024 budget\"]\n```"}}
	a := &Assistant{Client: base}

	got, err := a.Keywords(context.Background(), "some text", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Revenue", "cloud costs", "2024 budget"}, got)
	require.Len(t, base.messages, 1)
	assert.Equal(t, RoleSystem, base.messages[0][0].Role)
}

func TestParseListFallsBackToLines(t *testing.T) {
	got, err := ParseList("1. alpha\n- beta\n* gamma")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, got)

	_, err = ParseList("   ")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAssistantAnswerBuildsContext(t *testing.T) {
	base := &scriptedClient{replies: []string{"Revenue was $5M (p. 2)."}}
	a := &Assistant{Client: base, MaxContextTokens: 500}

	out, err := a.Answer(context.Background(), AnswerInput{
		Question: "What was revenue?",
		Summary:  "A financial report.",
		Pages:    []PageContext{{Number: 1, Text: "Intro"}, {Number: 2, Text: "Revenue was $5M."}},
		History:  []Message{{Role: RoleUser, Content: "hello"}, {Role: RoleAssistant, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Revenue was $5M (p. 2).", out)

	sent := base.messages[0]
	require.Len(t, sent, 5)
	assert.Contains(t, sent[1].Content, "[2] Revenue was $5M.")
	assert.Contains(t, sent[1].Content, "A financial report.")
	assert.Equal(t, "What was revenue?", sent[4].Content)
}

func TestAssistantWithoutClient(t *testing.T) {
	var a *Assistant
	_, err := a.Summarize(context.Background(), "text", 3)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestTruncateToTokens(t *testing.T) {
	text := strings.Repeat("word ", 400)
	cut := TruncateToTokens(text, 10)
	assert.Less(t, len(cut), len(text))
	assert.LessOrEqual(t, CountTokens(cut), 10)
	assert.Equal(t, "short", TruncateToTokens("short", 100))
	assert.Equal(t, "", TruncateToTokens("anything", 0))
}

func TestBudgetStopsWhenSpent(t *testing.T) {
	b := NewBudget(5)
	first := b.Take(strings.Repeat("token ", 50))
	assert.NotEmpty(t, first)
	assert.Equal(t, 0, b.Remaining())
	assert.Equal(t, "", b.Take("more"))
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "q"},
		{Role: RoleSystem, Content: "b"},
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "q"}}, rest)
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s*`)

// DefaultMaxContextTokens bounds the document text sent with one request.
const DefaultMaxContextTokens = 6000

// Assistant turns document tasks into prompts for a Client.
type Assistant struct {
	Client           Client
	MaxContextTokens int
}

// PageContext is one page of document text offered to the model.
type PageContext struct {
	Number int
	Text   string
}

// AnswerInput carries everything the chat prompt is built from.
type AnswerInput struct {
	Question string
	Summary  string
	Pages    []PageContext
	History  []Message
}

func (a *Assistant) ready() error {
	if a == nil || a.Client == nil {
		return ErrNotConfigured
	}
	return nil
}

func (a *Assistant) budget() int {
	if a.MaxContextTokens > 0 {
		return a.MaxContextTokens
	}
	return DefaultMaxContextTokens
}

// Summarize asks for an abstractive summary of text.
func (a *Assistant) Summarize(ctx context.Context, text string, sentences int) (string, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	if sentences <= 0 {
		sentences = 5
	}
	out, err := a.Client.Complete(WithOperation(ctx, "summary"), []Message{
		{Role: RoleSystem, Content: summaryPrompt(sentences)},
		{Role: RoleUser, Content: TruncateToTokens(text, a.budget())},
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// Keywords asks for up to count keywords and parses the JSON array reply.
func (a *Assistant) Keywords(ctx context.Context, text string, count int) ([]string, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 10
	}
	out, err := a.Client.Complete(WithOperation(ctx, "keywords"), []Message{
		{Role: RoleSystem, Content: keywordsPrompt(count)},
		{Role: RoleUser, Content: TruncateToTokens(text, a.budget())},
	})
	if err != nil {
		return nil, err
	}
	keywords, err := ParseList(out)
	if err != nil {
		return nil, err
	}
	if len(keywords) > count {
		keywords = keywords[:count]
	}
	return keywords, nil
}

// Answer asks the model to answer a question about a document. Pages are
// added in order until the context budget is spent.
func (a *Assistant) Answer(ctx context.Context, in AnswerInput) (string, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	budget := NewBudget(a.budget())

	var doc strings.Builder
	if s := budget.Take(strings.TrimSpace(in.Summary)); s != "" {
		doc.WriteString("Summary:\n")
		doc.WriteString(s)
		doc.WriteString("\n\n")
	}
	doc.WriteString("Excerpts:\n")
	for _, p := range in.Pages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		cut := budget.Take("[" + strconv.Itoa(p.Number) + "] " + text)
		if cut == "" {
			break
		}
		doc.WriteString(cut)
		doc.WriteString("\n\n")
	}

	messages := []Message{
		{Role: RoleSystem, Content: chatPrompt()},
		{Role: RoleSystem, Content: strings.TrimSpace(doc.String())},
	}
	messages = append(messages, in.History...)
	messages = append(messages, Message{Role: RoleUser, Content: in.Question})

	out, err := a.Client.Complete(WithOperation(ctx, "chat"), messages)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// ParseList reads a JSON string array, tolerating markdown fences. A reply
// that is not JSON is split on newlines and commas instead.
func ParseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyResponse
	}

	var items []string
	if start, end := strings.Index(raw, "["), strings.LastIndex(raw, "]"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
			return nil, fmt.Errorf("llm output parse: %w", err)
		}
	} else {
		for _, line := range strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == ',' }) {
			items = append(items, listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		}
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil, ErrEmptyResponse
	}
	return out, nil
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/extractions"
	"docinsight-backend/internal/llm"
	"docinsight-backend/internal/pages"
	"docinsight-backend/internal/shared/metrics"
	"docinsight-backend/internal/shared/telemetry"
)

const (
	DefaultHistoryLimit = 10
	MaxMessageChars     = 4000
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotReady is returned for documents that have not finished processing.
	ErrNotReady = errors.New("document is not ready for chat")
)

// Answer sources recorded on metrics.
const (
	SourceLLM       = "llm"
	SourceCitations = "citations"
	SourceApology   = "apology"
)

// Service answers questions about a user's completed documents.
type Service struct {
	Repo        Repo
	Docs        documents.Repo
	Pages       pages.Repo
	Extractions extractions.Repo
	// Assistant is optional; without it every answer comes from page search.
	Assistant    *llm.Assistant
	HistoryLimit int
	OnChange     func(userID string)
}

// Exchange is the stored question and its answer.
type Exchange struct {
	Question Message `json:"question"`
	Answer   Message `json:"answer"`
	Source   string  `json:"source"`
}

// Send stores the question, answers it and stores the answer.
func (s *Service) Send(ctx context.Context, userID, documentID, text string) (Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Exchange{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxMessageChars {
		return Exchange{}, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, MaxMessageChars)
	}
	doc, err := s.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		return Exchange{}, err
	}
	if doc.Status != documents.StatusCompleted {
		return Exchange{}, ErrNotReady
	}

	history, err := s.Repo.ListByDocument(ctx, doc.ID, s.historyLimit())
	if err != nil {
		return Exchange{}, fmt.Errorf("load history: %w", err)
	}
	question := Message{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		UserID:     userID,
		Role:       RoleUser,
		Content:    text,
		Citations:  []Citation{},
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, question); err != nil {
		return Exchange{}, fmt.Errorf("save question: %w", err)
	}

	list, err := s.Pages.ListByDocument(ctx, doc.ID)
	if err != nil {
		return Exchange{}, fmt.Errorf("load pages: %w", err)
	}
	citations := Cite(list, text, MaxCitations)

	content, source := s.answer(ctx, doc, text, list, citations, history)
	answer := Message{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		UserID:     userID,
		Role:       RoleAssistant,
		Content:    content,
		Citations:  citations,
		CreatedAt:  time.Now().UTC(),
	}
	if !answer.CreatedAt.After(question.CreatedAt) {
		answer.CreatedAt = question.CreatedAt.Add(time.Microsecond)
	}
	if err := s.Repo.Create(ctx, answer); err != nil {
		return Exchange{}, fmt.Errorf("save answer: %w", err)
	}
	metrics.IncChatAnswer(source)
	if s.OnChange != nil {
		s.OnChange(userID)
	}
	return Exchange{Question: question, Answer: answer, Source: source}, nil
}

func (s *Service) answer(ctx context.Context, doc documents.Document, question string, list []pages.Page, citations []Citation, history []Message) (string, string) {
	if s.Assistant != nil && s.Assistant.Client != nil {
		out, err := s.Assistant.Answer(ctx, llm.AnswerInput{
			Question: question,
			Summary:  s.summary(ctx, doc.ID),
			Pages:    orderPages(list, citations),
			History:  toLLMHistory(history),
		})
		if err == nil {
			return out, SourceLLM
		}
		telemetry.Warn("chat.llm_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
	if len(citations) > 0 {
		return FallbackAnswer(citations), SourceCitations
	}
	return Apology, SourceApology
}

func (s *Service) summary(ctx context.Context, documentID string) string {
	if s.Extractions == nil {
		return ""
	}
	ext, err := s.Extractions.Get(ctx, documentID, extractions.TypeSummary)
	if err != nil {
		return ""
	}
	var sum extractions.Summary
	if err := ext.Decode(&sum); err != nil {
		return ""
	}
	return sum.Text
}

// orderPages puts cited pages first so they survive the context budget.
func orderPages(list []pages.Page, citations []Citation) []llm.PageContext {
	cited := make(map[int]struct{}, len(citations))
	out := make([]llm.PageContext, 0, len(list))
	for _, c := range citations {
		cited[c.Page] = struct{}{}
		for _, p := range list {
			if p.PageNumber == c.Page {
				out = append(out, llm.PageContext{Number: p.PageNumber, Text: p.Text})
				break
			}
		}
	}
	for _, p := range list {
		if _, ok := cited[p.PageNumber]; ok {
			continue
		}
		out = append(out, llm.PageContext{Number: p.PageNumber, Text: p.Text})
	}
	return out
}

func toLLMHistory(history []Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

// History returns the conversation about a document, oldest first.
func (s *Service) History(ctx context.Context, userID, documentID string) ([]Message, error) {
	doc, err := s.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListByDocument(ctx, doc.ID, 0)
}

// Clear deletes the conversation about a document.
func (s *Service) Clear(ctx context.Context, userID, documentID string) error {
	doc, err := s.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteByDocument(ctx, doc.ID); err != nil {
		return err
	}
	if s.OnChange != nil {
		s.OnChange(userID)
	}
	return nil
}

// DeleteByDocument removes chat history during a document delete.
func (s *Service) DeleteByDocument(ctx context.Context, documentID string) error {
	return s.Repo.DeleteByDocument(ctx, documentID)
}

func (s *Service) historyLimit() int {
	if s.HistoryLimit > 0 {
		return s.HistoryLimit
	}
	return DefaultHistoryLimit
}

var _ documents.ChatCleaner = (*Service)(nil)

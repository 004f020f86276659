package processing

import (
	"context"
	"errors"
	"strings"
	"time"

	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/extractions"
	"docinsight-backend/internal/nlp"
	"docinsight-backend/internal/shared/telemetry"
)

const (
	defaultEnhanceTimeout = 2 * time.Minute
	enhanceKeywordCount   = 15
	enhanceSummaryLength  = 5
)

func (p *Processor) enhancementEnabled() bool {
	return p.Assistant != nil && p.Assistant.Client != nil
}

// enhance replaces the summary and augments the keywords of a completed
// document with LLM output. Failures are logged and leave the NLP results.
func (p *Processor) enhance(ctx context.Context, doc documents.Document) {
	defer func() {
		if r := recover(); r != nil {
			p.logEnhance(ctx, doc.ID, "panic", errors.New("recovered panic"))
		}
	}()
	timeout := p.EnhanceTimeout
	if timeout <= 0 {
		timeout = defaultEnhanceTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	list, err := p.Pages.ListByDocument(ctx, doc.ID)
	if err != nil {
		if enhanceAborted(ctx, err) {
			p.logAbort(ctx, doc, err)
			return
		}
		p.logEnhance(ctx, doc.ID, "load_pages", err)
		return
	}
	texts := make([]string, 0, len(list))
	for _, pg := range list {
		texts = append(texts, nlp.Normalize(pg.Text))
	}
	text := strings.TrimSpace(strings.Join(texts, "\n\n"))
	if text == "" {
		return
	}

	enhanced := 0
	steps := []struct {
		typ string
		run func(context.Context, string, string) error
	}{
		{extractions.TypeSummary, p.enhanceSummary},
		{extractions.TypeKeywords, p.enhanceKeywords},
	}
	for _, step := range steps {
		err := step.run(ctx, doc.ID, text)
		if err == nil {
			enhanced++
			continue
		}
		if enhanceAborted(ctx, err) {
			p.logAbort(ctx, doc, err)
			return
		}
		p.logEnhance(ctx, doc.ID, step.typ, err)
	}
	if enhanced > 0 {
		telemetry.Info("processing.enhanced", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"document_id": doc.ID,
			"provider":    p.Assistant.Client.Provider(),
			"enhanced":    enhanced,
		})
		p.changed(doc.UserID)
	}
}

// enhanceAborted reports whether the enhancement was cancelled or its
// document deleted. A timeout is a failure, not an abort.
func enhanceAborted(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, documents.ErrNotFound)
}

func (p *Processor) enhanceSummary(ctx context.Context, documentID, text string) error {
	summary, err := p.Assistant.Summarize(ctx, text, enhanceSummaryLength)
	if err != nil {
		return err
	}
	var prev extractions.Summary
	existing, err := p.Extractions.Get(ctx, documentID, extractions.TypeSummary)
	if err != nil && !errors.Is(err, extractions.ErrNotFound) {
		return err
	}
	if err == nil {
		_ = existing.Decode(&prev)
	}
	extractive := prev.Extractive
	if extractive == "" {
		extractive = prev.Text
	}
	return p.upsertLLM(ctx, existing, documentID, extractions.TypeSummary, extractions.Summary{
		Text:       summary,
		Extractive: extractive,
	})
}

func (p *Processor) enhanceKeywords(ctx context.Context, documentID, text string) error {
	terms, err := p.Assistant.Keywords(ctx, text, enhanceKeywordCount)
	if err != nil {
		return err
	}
	var current []nlp.Keyword
	existing, err := p.Extractions.Get(ctx, documentID, extractions.TypeKeywords)
	if err != nil && !errors.Is(err, extractions.ErrNotFound) {
		return err
	}
	if err == nil {
		_ = existing.Decode(&current)
	}
	return p.upsertLLM(ctx, existing, documentID, extractions.TypeKeywords, mergeKeywords(current, terms, text))
}

func (p *Processor) upsertLLM(ctx context.Context, existing extractions.Extraction, documentID, typ string, v any) error {
	if err := p.ensureExists(ctx, documentID); err != nil {
		return err
	}
	id := existing.ID
	if id == "" {
		id = newID()
	}
	ext, err := extractions.Encode(id, documentID, typ, extractions.SourceLLM, v, time.Now().UTC())
	if err != nil {
		return err
	}
	if !existing.CreatedAt.IsZero() {
		ext.CreatedAt = existing.CreatedAt
	}
	return p.Extractions.Upsert(ctx, ext)
}

// mergeKeywords keeps the scored NLP keywords and appends LLM terms that the
// NLP pass missed, counted against the document text.
func mergeKeywords(current []nlp.Keyword, terms []string, text string) []nlp.Keyword {
	out := make([]nlp.Keyword, 0, len(current)+len(terms))
	seen := make(map[string]struct{}, len(current)+len(terms))
	out = append(out, current...)
	for _, k := range current {
		seen[strings.ToLower(k.Term)] = struct{}{}
	}
	lower := strings.ToLower(text)
	for _, term := range terms {
		key := strings.ToLower(strings.TrimSpace(term))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, nlp.Keyword{Term: key, Count: strings.Count(lower, key)})
	}
	return out
}

func (p *Processor) logEnhance(ctx context.Context, documentID, step string, err error) {
	telemetry.Warn("processing.enhance_failed", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"document_id": documentID,
		"step":        step,
		"error":       sanitizeError(err),
	})
}

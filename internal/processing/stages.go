package processing

import (
	"context"
	"fmt"
	"strings"

	"docinsight-backend/internal/extractions"
	"docinsight-backend/internal/nlp"
	"docinsight-backend/internal/shared/telemetry"
)

// Input is the normalized text an analysis stage works on.
type Input struct {
	Pages []string
	Text  string
}

// Stage produces one extraction type from a document's text.
type Stage struct {
	Type  string
	Run   func(in Input) (any, error)
	Empty func() any
}

// DefaultStages runs the rule-based NLP analyses.
func DefaultStages() []Stage {
	return []Stage{
		{
			Type:  extractions.TypeEntities,
			Run:   func(in Input) (any, error) { return nlp.Entities(in.Text), nil },
			Empty: func() any { return []nlp.Entity{} },
		},
		{
			Type:  extractions.TypeKeywords,
			Run:   func(in Input) (any, error) { return nlp.Keywords(in.Text, nlp.DefaultKeywordCount), nil },
			Empty: func() any { return []nlp.Keyword{} },
		},
		{
			Type:  extractions.TypeTables,
			Run:   func(in Input) (any, error) { return nlp.Tables(in.Pages), nil },
			Empty: func() any { return []nlp.Table{} },
		},
		{
			Type: extractions.TypeSummary,
			Run: func(in Input) (any, error) {
				return extractions.Summary{Text: nlp.Summary(in.Text, nlp.DefaultSummarySentences)}, nil
			},
			Empty: func() any { return extractions.Summary{} },
		},
	}
}

// NewInput normalizes page texts and joins them into the document text.
func NewInput(texts []string) Input {
	in := Input{Pages: make([]string, len(texts))}
	for i, t := range texts {
		in.Pages[i] = nlp.Normalize(t)
	}
	in.Text = strings.Join(in.Pages, "\n\n")
	return in
}

// Analyze runs every stage over the page texts, keyed by extraction type.
func Analyze(ctx context.Context, documentID string, stages []Stage, texts []string) map[string]any {
	in := NewInput(texts)
	results := make(map[string]any, len(stages))
	for _, stage := range stages {
		results[stage.Type] = runStage(ctx, documentID, stage, in)
	}
	return results
}

// runStage never fails: a stage error or panic yields the stage's empty result.
func runStage(ctx context.Context, documentID string, stage Stage, in Input) (out any) {
	defer func() {
		if r := recover(); r != nil {
			logStageFailure(ctx, documentID, stage.Type, fmt.Errorf("panic: %v", r))
			out = stage.Empty()
		}
	}()
	res, err := stage.Run(in)
	if err != nil {
		logStageFailure(ctx, documentID, stage.Type, err)
		return stage.Empty()
	}
	if res == nil {
		return stage.Empty()
	}
	return res
}

func logStageFailure(ctx context.Context, documentID, stage string, err error) {
	telemetry.Warn("processing.stage_failed", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"document_id": documentID,
		"stage":       stage,
		"error":       sanitizeError(err),
	})
}

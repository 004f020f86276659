package reports

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/extractions"
	"docinsight-backend/internal/nlp"
	"docinsight-backend/internal/shared/telemetry"
)

const (
	uploadWindowDays  = 30
	topEntitiesByType = 10
	topKeywords       = 20
)

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type EntityCount struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// KeywordCount sums a term over documents. Documents is how many documents
// listed it among their keywords.
type KeywordCount struct {
	Term      string `json:"term"`
	Count     int    `json:"count"`
	Documents int    `json:"documents"`
}

// Report aggregates the analysis results of all of a user's documents.
type Report struct {
	UploadsPerDay   []DayCount               `json:"uploadsPerDay"`
	StatusBreakdown map[string]int           `json:"statusBreakdown"`
	TopEntities     map[string][]EntityCount `json:"topEntities"`
	TopKeywords     []KeywordCount           `json:"topKeywords"`
	TablesDetected  int                      `json:"tablesDetected"`
	AveragePages    float64                  `json:"averagePages"`
	TotalDocuments  int                      `json:"totalDocuments"`
	GeneratedAt     time.Time                `json:"generatedAt"`
}

type Service struct {
	Docs        documents.Repo
	Extractions extractions.Repo
	// Now is overridable in tests.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Build computes the report for userID.
func (s *Service) Build(ctx context.Context, userID string) (Report, error) {
	docs, err := s.Docs.ListByUser(ctx, userID, documents.ListFilter{})
	if err != nil {
		return Report{}, fmt.Errorf("list documents: %w", err)
	}
	now := s.now()
	r := Report{
		UploadsPerDay:   uploadsPerDay(docs, now),
		StatusBreakdown: map[string]int{},
		TopEntities:     map[string][]EntityCount{},
		TopKeywords:     []KeywordCount{},
		TotalDocuments:  len(docs),
		GeneratedAt:     now,
	}

	ids := make([]string, 0, len(docs))
	pagesTotal, withPages := 0, 0
	for _, doc := range docs {
		r.StatusBreakdown[doc.Status]++
		if doc.Status == documents.StatusCompleted {
			ids = append(ids, doc.ID)
			pagesTotal += doc.PageCount
			withPages++
		}
	}
	if withPages > 0 {
		r.AveragePages = math.Round(float64(pagesTotal)/float64(withPages)*100) / 100
	}
	if len(ids) == 0 {
		return r, nil
	}

	entities, err := s.Extractions.ListByDocuments(ctx, ids, extractions.TypeEntities)
	if err != nil {
		return Report{}, fmt.Errorf("list entities: %w", err)
	}
	r.TopEntities = topEntities(ctx, entities)

	keywords, err := s.Extractions.ListByDocuments(ctx, ids, extractions.TypeKeywords)
	if err != nil {
		return Report{}, fmt.Errorf("list keywords: %w", err)
	}
	r.TopKeywords = topKeywordCounts(ctx, keywords)

	tables, err := s.Extractions.ListByDocuments(ctx, ids, extractions.TypeTables)
	if err != nil {
		return Report{}, fmt.Errorf("list tables: %w", err)
	}
	for _, ext := range tables {
		var list []nlp.Table
		if err := ext.Decode(&list); err != nil {
			logDecode(ctx, ext, err)
			continue
		}
		r.TablesDetected += len(list)
	}
	return r, nil
}

func uploadsPerDay(docs []documents.Document, now time.Time) []DayCount {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(uploadWindowDays - 1))
	counts := make(map[string]int, uploadWindowDays)
	for _, doc := range docs {
		created := doc.CreatedAt.UTC()
		if created.Before(start) {
			continue
		}
		counts[created.Format(time.DateOnly)]++
	}
	out := make([]DayCount, 0, uploadWindowDays)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		out = append(out, DayCount{Date: key, Count: counts[key]})
	}
	return out
}

func topEntities(ctx context.Context, exts []extractions.Extraction) map[string][]EntityCount {
	byType := map[string]map[string]*EntityCount{}
	for _, ext := range exts {
		var list []nlp.Entity
		if err := ext.Decode(&list); err != nil {
			logDecode(ctx, ext, err)
			continue
		}
		for _, e := range list {
			key := strings.ToLower(e.Text)
			if byType[e.Type] == nil {
				byType[e.Type] = map[string]*EntityCount{}
			}
			if agg, ok := byType[e.Type][key]; ok {
				agg.Count += e.Count
				continue
			}
			byType[e.Type][key] = &EntityCount{Text: e.Text, Count: e.Count}
		}
	}
	out := make(map[string][]EntityCount, len(byType))
	for typ, m := range byType {
		list := make([]EntityCount, 0, len(m))
		for _, e := range m {
			list = append(list, *e)
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].Count != list[j].Count {
				return list[i].Count > list[j].Count
			}
			return list[i].Text < list[j].Text
		})
		if len(list) > topEntitiesByType {
			list = list[:topEntitiesByType]
		}
		out[typ] = list
	}
	return out
}

func topKeywordCounts(ctx context.Context, exts []extractions.Extraction) []KeywordCount {
	agg := map[string]*KeywordCount{}
	for _, ext := range exts {
		var list []nlp.Keyword
		if err := ext.Decode(&list); err != nil {
			logDecode(ctx, ext, err)
			continue
		}
		for _, k := range list {
			term := strings.ToLower(k.Term)
			kc, ok := agg[term]
			if !ok {
				kc = &KeywordCount{Term: term}
				agg[term] = kc
			}
			kc.Count += k.Count
			kc.Documents++
		}
	}
	out := make([]KeywordCount, 0, len(agg))
	for _, kc := range agg {
		out = append(out, *kc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Documents != out[j].Documents {
			return out[i].Documents > out[j].Documents
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > topKeywords {
		out = out[:topKeywords]
	}
	return out
}

func logDecode(ctx context.Context, ext extractions.Extraction, err error) {
	telemetry.Warn("reports.decode_failed", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"document_id": ext.DocumentID,
		"type":        ext.Type,
		"error":       err.Error(),
	})
}

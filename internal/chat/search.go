package chat

import (
	"sort"
	"strconv"
	"strings"

	"docinsight-backend/internal/nlp"
	"docinsight-backend/internal/pages"
)

const (
	// MaxCitations caps the pages quoted in one answer.
	MaxCitations  = 3
	excerptRadius = 120
)

// Apology is returned when neither the model nor the page search found anything.
const Apology = "Sorry, I couldn't find anything in this document that answers your question."

// Cite finds the pages whose text contains the question's terms, best match
// first. Pages are ranked by distinct terms matched, then occurrences.
func Cite(list []pages.Page, question string, limit int) []Citation {
	terms := nlp.Terms(question)
	out := []Citation{}
	if len(terms) == 0 || len(list) == 0 {
		return out
	}
	if limit <= 0 {
		limit = MaxCitations
	}

	type hit struct {
		page     pages.Page
		distinct int
		total    int
		first    int
	}
	var hits []hit
	for _, p := range list {
		lower := strings.ToLower(nlp.Normalize(p.Text))
		h := hit{page: p, first: -1}
		for _, term := range terms {
			n := strings.Count(lower, term)
			if n == 0 {
				continue
			}
			h.distinct++
			h.total += n
			if idx := strings.Index(lower, term); h.first < 0 || idx < h.first {
				h.first = idx
			}
		}
		if h.distinct > 0 {
			hits = append(hits, h)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].distinct != hits[j].distinct {
			return hits[i].distinct > hits[j].distinct
		}
		if hits[i].total != hits[j].total {
			return hits[i].total > hits[j].total
		}
		return hits[i].page.PageNumber < hits[j].page.PageNumber
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	for _, h := range hits {
		out = append(out, Citation{
			Page:    h.page.PageNumber,
			Excerpt: excerpt(nlp.Normalize(h.page.Text), h.first),
		})
	}
	return out
}

// excerpt cuts a window around byte offset at, widened to word boundaries.
// at indexes the lowercased text, which has the same length for the scripts
// PDFs commonly carry; it is clamped either way.
func excerpt(text string, at int) string {
	if at < 0 {
		at = 0
	}
	if at > len(text) {
		at = len(text)
	}
	start := max(at-excerptRadius, 0)
	end := min(at+excerptRadius, len(text))
	for start > 0 && !isSpace(text[start-1]) {
		start--
	}
	for end < len(text) && !isSpace(text[end]) {
		end++
	}
	out := strings.Join(strings.Fields(text[start:end]), " ")
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// FallbackAnswer quotes the cited excerpts.
func FallbackAnswer(citations []Citation) string {
	if len(citations) == 0 {
		return Apology
	}
	var b strings.Builder
	b.WriteString("I couldn't reach the language model, but these passages from the document look relevant:\n")
	for _, c := range citations {
		b.WriteString("\n(p. ")
		b.WriteString(strconv.Itoa(c.Page))
		b.WriteString(") \"")
		b.WriteString(c.Excerpt)
		b.WriteString("\"")
	}
	return b.String()
}

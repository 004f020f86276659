// Package nlp holds the text analysis run on extracted pages: entities,
// keywords, table detection and an extractive summary. Sentence segmentation
// and named entities come from prose; the rest is pattern rules. Every
// function is pure and returns empty, non-nil results for empty input.
package nlp

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	"golang.org/x/text/unicode/norm"
)

var (
	sentenceBreak  = regexp.MustCompile(`([.!?]+["')\]]*)\s+|\n{2,}`)
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	spaceRun       = regexp.MustCompile(`[ \t\f\v]+`)
)

// Normalize applies NFKC (PDF ligatures, full-width forms, non-breaking
// spaces) and unifies line endings.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	out := norm.NFKC.String(text)
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	return out
}

// Sentences splits text into trimmed sentences with collapsed whitespace.
// A blank line always ends a sentence.
func Sentences(text string) []string {
	text = Normalize(text)
	out := []string{}
	if strings.TrimSpace(text) == "" {
		return out
	}
	for _, sentence := range segment(text) {
		for _, part := range paragraphBreak.Split(sentence, -1) {
			part = strings.Join(strings.Fields(part), " ")
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// segment runs the prose sentence segmenter, falling back to punctuation
// rules when it cannot be built.
func segment(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return strings.Split(sentenceBreak.ReplaceAllString(text, "$1\x00"), "\x00")
	}
	sentences := doc.Sentences()
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		out = append(out, s.Text)
	}
	return out
}

// Words returns the lowercased word tokens of text in order.
func Words(text string) []string {
	fields := strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'-")
		if f == "" {
			continue
		}
		out = append(out, strings.ToLower(f))
	}
	return out
}

// Terms returns the distinct content words of text: stopwords, numbers and
// words shorter than three letters are dropped.
func Terms(text string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, w := range Words(text) {
		if !isContentWord(w) {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func isContentWord(w string) bool {
	if len([]rune(w)) < 3 {
		return false
	}
	if _, stop := stopwords[w]; stop {
		return false
	}
	hasLetter := false
	for _, r := range w {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	return hasLetter
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

package nlp

import (
	"sort"
	"strings"
)

// DefaultSummarySentences is used when Summary is called with sentences <= 0.
const DefaultSummarySentences = 3

// Summary picks the sentences with the highest keyword density and returns
// them in their original order.
func Summary(text string, sentences int) string {
	if sentences <= 0 {
		sentences = DefaultSummarySentences
	}
	all := Sentences(text)
	if len(all) == 0 {
		return ""
	}
	if len(all) <= sentences {
		return strings.Join(all, " ")
	}

	weights := termWeights(text)
	type ranked struct {
		idx   int
		score float64
	}
	scored := make([]ranked, 0, len(all))
	for i, s := range all {
		scored = append(scored, ranked{idx: i, score: sentenceScore(s, weights)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	picked := scored[:sentences]
	sort.Slice(picked, func(i, j int) bool { return picked[i].idx < picked[j].idx })
	parts := make([]string, 0, len(picked))
	for _, p := range picked {
		parts = append(parts, all[p.idx])
	}
	return strings.Join(parts, " ")
}

// sentenceScore averages term weights over the sentence's words. Very short
// fragments (headings, page furniture) are damped.
func sentenceScore(sentence string, weights map[string]float64) float64 {
	words := Words(sentence)
	if len(words) == 0 {
		return 0
	}
	total := 0.0
	for _, w := range words {
		total += weights[w]
	}
	score := total / float64(len(words))
	if len(words) < 5 {
		score *= float64(len(words)) / 5
	}
	return score
}

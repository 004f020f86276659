package nlp

import (
	"math"
	"sort"
	"strings"
)

// DefaultKeywordCount is used when Keywords is called with n <= 0.
const DefaultKeywordCount = 20

// Keyword is a term or two-word phrase with its frequency and a score
// normalized to 0..1 against the strongest term.
type Keyword struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
	Count int     `json:"count"`
}

// bigramWeight favors repeated phrases over their single words.
const bigramWeight = 1.5

// Keywords ranks stopword-filtered words and repeated bigrams by frequency.
func Keywords(text string, n int) []Keyword {
	if n <= 0 {
		n = DefaultKeywordCount
	}
	counts := termCounts(text)
	if len(counts) == 0 {
		return []Keyword{}
	}

	type scored struct {
		term  string
		count int
		raw   float64
	}
	all := make([]scored, 0, len(counts))
	best := 0.0
	for term, count := range counts {
		raw := float64(count)
		if strings.Contains(term, " ") {
			if count < 2 {
				continue
			}
			raw *= bigramWeight
		}
		if raw > best {
			best = raw
		}
		all = append(all, scored{term: term, count: count, raw: raw})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].raw != all[j].raw {
			return all[i].raw > all[j].raw
		}
		return all[i].term < all[j].term
	})
	if len(all) > n {
		all = all[:n]
	}

	out := make([]Keyword, 0, len(all))
	for _, s := range all {
		out = append(out, Keyword{
			Term:  s.term,
			Count: s.count,
			Score: math.Round(s.raw/best*10000) / 10000,
		})
	}
	return out
}

// termCounts counts content words and bigrams of adjacent content words.
// A stopword or sentence boundary breaks a bigram.
func termCounts(text string) map[string]int {
	counts := map[string]int{}
	for _, sentence := range Sentences(text) {
		prev := ""
		for _, w := range Words(sentence) {
			if !isContentWord(w) {
				prev = ""
				continue
			}
			counts[w]++
			if prev != "" {
				counts[prev+" "+w]++
			}
			prev = w
		}
	}
	return counts
}

// termWeights maps each content word to its normalized frequency.
func termWeights(text string) map[string]float64 {
	counts := termCounts(text)
	best := 0
	for term, c := range counts {
		if !strings.Contains(term, " ") && c > best {
			best = c
		}
	}
	out := make(map[string]float64, len(counts))
	if best == 0 {
		return out
	}
	for term, c := range counts {
		if strings.Contains(term, " ") {
			continue
		}
		out[term] = float64(c) / float64(best)
	}
	return out
}

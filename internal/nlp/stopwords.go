package nlp

var stopwords = toSet(
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and", "any", "are",
	"aren't", "as", "at", "be", "because", "been", "before", "being", "below", "between", "both", "but",
	"by", "can", "cannot", "could", "did", "do", "does", "doing", "done", "down", "during", "each", "either",
	"etc", "even", "ever", "every", "few", "for", "from", "further", "get", "gets", "got", "had", "has",
	"have", "having", "he", "her", "here", "hers", "herself", "him", "himself", "his", "how", "however",
	"i", "if", "in", "into", "is", "isn't", "it", "it's", "its", "itself", "just", "let", "like", "made",
	"make", "many", "may", "me", "might", "more", "most", "much", "must", "my", "myself", "near", "need",
	"no", "nor", "not", "now", "of", "off", "on", "once", "one", "only", "or", "other", "others", "our",
	"ours", "ourselves", "out", "over", "own", "per", "same", "see", "shall", "she", "should", "since",
	"so", "some", "such", "than", "that", "the", "their", "theirs", "them", "themselves", "then", "there",
	"these", "they", "this", "those", "through", "thus", "to", "too", "two", "under", "until", "up",
	"upon", "us", "use", "used", "using", "very", "via", "was", "we", "well", "were", "what", "when",
	"where", "whether", "which", "while", "who", "whom", "whose", "why", "will", "with", "within",
	"without", "would", "yet", "you", "your", "yours", "yourself", "yourselves", "page", "pages",
)

func toSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

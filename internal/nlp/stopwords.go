package nlp

var stopWords = NewSet(
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to",
	"for", "of", "with", "by", "from", "is", "are", "was", "were", "be",
	"been", "being", "have", "has", "had", "do", "does", "did", "will", "would",
	"could", "should", "may", "might", "shall", "can", "this", "that", "these", "those",
	"i", "me", "my", "we", "our", "you", "your", "he", "she", "it",
	"its", "they", "them", "their", "what", "which", "who", "whom", "when", "where",
	"why", "how", "all", "each", "every", "both", "few", "more", "most", "other",
	"some", "such", "no", "nor", "not", "only", "own", "same", "so", "than",
	"too", "very", "just", "because", "as", "until", "while", "about", "into", "also",
	"there", "here", "then", "again", "any", "please", "sir", "madam",
)

// IsStopWord reports whether token is in the fixed English stop-word set.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// Set is an immutable string set. The zero value is empty.
type Set map[string]struct{}

// NewSet builds a Set from words. Callers keep the result read-only.
func NewSet(words ...string) Set {
	s := make(Set, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(word string) bool {
	_, ok := s[word]
	return ok
}

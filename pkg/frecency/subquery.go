package frecency

import (
	"slices"
	"strings"
)

// IsSubQuery performs a by-word prefix match: every word of candidate must be
// a prefix of a distinct word of query, in any order and ignoring case.
// For example "de tea" and "team desi" are both sub-queries of "design team".
//
// Matching is greedy. Both word lists are walked in reverse lexical order and
// each candidate word consumes the first unused query word it prefixes.
// An empty candidate matches nothing; one made only of whitespace has no
// words to check and matches every query.
func IsSubQuery(candidate, query string) bool {
	if candidate == "" {
		return false
	}
	searchWords := splitWords(candidate)
	queryWords := splitWords(query)

	for _, word := range searchWords {
		idx := slices.IndexFunc(queryWords, func(q string) bool {
			return strings.HasPrefix(q, word)
		})
		if idx < 0 {
			return false
		}
		queryWords = slices.Delete(queryWords, idx, idx+1)
	}
	return true
}

// splitWords lower-cases s and returns its whitespace separated words in
// reverse lexical order.
func splitWords(s string) []string {
	words := strings.Fields(strings.ToLower(s))
	slices.SortFunc(words, func(a, b string) int {
		return strings.Compare(b, a)
	})
	return words
}

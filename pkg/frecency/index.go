package frecency

import (
	"slices"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
)

// queryIndex maps every lower-cased word of the stored queries to the queries
// containing it. A sub-query's words must each prefix some word of a stored
// query, so the subtree under any single candidate word bounds the matches.
type queryIndex struct {
	words *patricia.Trie
	// all stored queries, sorted
	queries []string
}

func newQueryIndex(rec *Record) *queryIndex {
	idx := &queryIndex{words: patricia.NewTrie()}
	for query := range rec.Queries {
		idx.queries = append(idx.queries, query)
		for _, word := range strings.Fields(strings.ToLower(query)) {
			key := patricia.Prefix(word)
			if item := idx.words.Get(key); item != nil {
				item.(map[string]struct{})[query] = struct{}{}
				continue
			}
			idx.words.Insert(key, map[string]struct{}{query: {}})
		}
	}
	slices.Sort(idx.queries)
	return idx
}

// subQueries returns the stored queries that candidate is a sub-query of,
// in lexical order.
func (idx *queryIndex) subQueries(candidate string) []string {
	if candidate == "" {
		return nil
	}
	words := strings.Fields(strings.ToLower(candidate))
	if len(words) == 0 {
		return slices.Clone(idx.queries)
	}
	// The longest word narrows the subtree the most.
	probe := slices.MaxFunc(words, func(a, b string) int { return len(a) - len(b) })

	seen := make(map[string]struct{})
	_ = idx.words.VisitSubtree(patricia.Prefix(probe), func(_ patricia.Prefix, item patricia.Item) error {
		for query := range item.(map[string]struct{}) {
			seen[query] = struct{}{}
		}
		return nil
	})

	matches := make([]string, 0, len(seen))
	for query := range seen {
		if IsSubQuery(candidate, query) {
			matches = append(matches, query)
		}
	}
	slices.Sort(matches)
	return matches
}

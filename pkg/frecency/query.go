package frecency

import "fmt"

// Query is an optional search query. The zero value is NoQuery.
type Query struct {
	text string
	set  bool
}

// NoQuery means the caller supplied no search query.
var NoQuery = Query{}

// ForQuery wraps a search query string.
func ForQuery(s string) Query {
	return Query{text: s, set: true}
}

// Text returns the query string and whether one was supplied.
func (q Query) Text() (string, bool) {
	return q.text, q.set
}

// usable reports whether the query can key the by-query index.
// An empty string is treated like an absent query.
func (q Query) usable() bool {
	return q.set && q.text != ""
}

func (q Query) String() string {
	if !q.set {
		return "<none>"
	}
	return fmt.Sprintf("%q", q.text)
}

// Item is a single search result record, e.g. a decoded msgpack or JSON map.
type Item = map[string]any

// IDExtractor resolves the id of a search result.
type IDExtractor interface {
	ExtractID(item Item) string
}

// FieldID reads the id from a named field of the item.
type FieldID string

// ExtractID returns the field value. Non-string scalars are formatted,
// missing or nil fields yield "".
func (f FieldID) ExtractID(item Item) string {
	v, ok := item[string(f)]
	if !ok || v == nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}

// IDFunc adapts a caller supplied function into an IDExtractor.
type IDFunc func(item Item) string

// ExtractID calls f.
func (f IDFunc) ExtractID(item Item) string {
	return f(item)
}

/*
Package server implements msgpack IPC for frecency ranking.

The server reads a stream of msgpack maps from stdin and writes one msgpack
map per request to stdout. Every request carries an "id" echoed in the
response and an "op" naming the operation.

# IPC

Record a selection ("q" is optional, "t" defaults to now, in ms):

	{"id": "1", "op": "save", "q": "brad", "sel": "brad vogel", "t": 1524085045510}

Rank results, optionally keeping the scores on each item:

	{"id": "2", "op": "sort", "q": "br", "items": [{"_id": "simon"}, {"_id": "brad vogel"}], "keep": true}

The response carries the reordered items, their count and the time taken
in microseconds:

	{"id": "2", "items": [{"_id": "brad vogel", "_frecencyScore": 100}, {"_id": "simon", "_frecencyScore": 0}], "c": 2, "t": 41}

Score a single item:

	{"id": "3", "op": "score", "q": "br", "item": {"_id": "brad vogel"}}

Maintenance ops are "dump" (the cached record), "reset" (remove the stored
record), "stats" (request counts and latency percentiles) and "health".

Failed requests answer with an error message and an HTTP-like code, and
the server keeps reading:

	{"id": "4", "e": "unknown op: frob", "c": 400}
*/
package server

import "github.com/bastiangx/frecency/pkg/frecency"

// Ops understood by the server.
const (
	OpSave   = "save"
	OpSort   = "sort"
	OpScore  = "score"
	OpDump   = "dump"
	OpReset  = "reset"
	OpStats  = "stats"
	OpHealth = "health"
)

// Request is the union of all request fields; Op selects which apply.
// A nil Query means no query was supplied.
type Request struct {
	ID       string           `msgpack:"id"`
	Op       string           `msgpack:"op"`
	Query    *string          `msgpack:"q,omitempty"`
	Selected string           `msgpack:"sel,omitempty"`
	Time     int64            `msgpack:"t,omitempty"`
	Items    []map[string]any `msgpack:"items,omitempty"`
	Item     map[string]any   `msgpack:"item,omitempty"`
	Keep     bool             `msgpack:"keep,omitempty"`
	Now      int64            `msgpack:"now,omitempty"`
}

// StatusResponse answers save, reset and health.
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// SortResponse - ranked items
type SortResponse struct {
	ID        string           `msgpack:"id"`
	Items     []map[string]any `msgpack:"items"`
	Count     int              `msgpack:"c"`
	TimeTaken int64            `msgpack:"t"`
}

// ScoreResponse - score of a single item
type ScoreResponse struct {
	ID    string  `msgpack:"id"`
	Score float64 `msgpack:"score"`
}

// DumpResponse - the cached record as stored
type DumpResponse struct {
	ID     string           `msgpack:"id"`
	Record *frecency.Record `msgpack:"record"`
}

// StatsResponse - request counters and sort latency
type StatsResponse struct {
	ID    string `msgpack:"id"`
	Stats Stats  `msgpack:"stats"`
}

// Stats summarises the requests handled so far.
type Stats struct {
	Requests    int64  `msgpack:"requests"`
	Errors      int64  `msgpack:"errors"`
	Saves       int64  `msgpack:"saves"`
	Sorts       int64  `msgpack:"sorts"`
	SortP50     int64  `msgpack:"sort_p50_us"`
	SortP99     int64  `msgpack:"sort_p99_us"`
	SortMax     int64  `msgpack:"sort_max_us"`
	Key         string `msgpack:"key"`
	Enabled     bool   `msgpack:"enabled"`
	StoredIDs   int    `msgpack:"stored_ids"`
	StoredQuery int    `msgpack:"stored_queries"`
}

// ErrorResponse holds basic error information for failed requests
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

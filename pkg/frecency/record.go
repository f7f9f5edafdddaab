package frecency

import (
	"encoding/json"
	"slices"
)

// QuerySelection is one result selected after a given search query.
type QuerySelection struct {
	ID            string  `json:"id"`
	TimesSelected int     `json:"timesSelected"`
	SelectedAt    []int64 `json:"selectedAt"`
}

// IDSelection tracks a result regardless of the query it was selected for.
// Queries is the set of queries the result was ever selected for, kept so
// eviction can find every reference to the id.
type IDSelection struct {
	TimesSelected int             `json:"timesSelected"`
	SelectedAt    []int64         `json:"selectedAt"`
	Queries       map[string]bool `json:"queries"`
}

// Record is the whole persisted frecency state for one key.
// RecentSelections is ordered most recent first and never holds an id twice.
type Record struct {
	Queries          map[string][]*QuerySelection `json:"queries"`
	Selections       map[string]*IDSelection      `json:"selections"`
	RecentSelections []string                     `json:"recentSelections"`
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{
		Queries:          make(map[string][]*QuerySelection),
		Selections:       make(map[string]*IDSelection),
		RecentSelections: []string{},
	}
}

// decodeRecord parses stored data. Anything unparsable yields an empty record.
func decodeRecord(data string) (*Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return NewRecord(), err
	}
	rec.normalize()
	return &rec, nil
}

func (r *Record) encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// normalize fills in maps and slices a partial or hand-edited record may lack.
func (r *Record) normalize() {
	if r.Queries == nil {
		r.Queries = make(map[string][]*QuerySelection)
	}
	if r.Selections == nil {
		r.Selections = make(map[string]*IDSelection)
	}
	if r.RecentSelections == nil {
		r.RecentSelections = []string{}
	}
	for q, entries := range r.Queries {
		r.Queries[q] = slices.DeleteFunc(entries, func(e *QuerySelection) bool { return e == nil })
	}
	for id, sel := range r.Selections {
		if sel == nil {
			delete(r.Selections, id)
			continue
		}
		if sel.Queries == nil {
			sel.Queries = make(map[string]bool)
		}
	}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := NewRecord()
	for q, entries := range r.Queries {
		copied := make([]*QuerySelection, len(entries))
		for i, e := range entries {
			copied[i] = &QuerySelection{
				ID:            e.ID,
				TimesSelected: e.TimesSelected,
				SelectedAt:    slices.Clone(e.SelectedAt),
			}
		}
		out.Queries[q] = copied
	}
	for id, sel := range r.Selections {
		queries := make(map[string]bool, len(sel.Queries))
		for q := range sel.Queries {
			queries[q] = true
		}
		out.Selections[id] = &IDSelection{
			TimesSelected: sel.TimesSelected,
			SelectedAt:    slices.Clone(sel.SelectedAt),
			Queries:       queries,
		}
	}
	out.RecentSelections = append(out.RecentSelections, r.RecentSelections...)
	return out
}

// findQuerySelection returns the entry for id under query, or nil.
func (r *Record) findQuerySelection(query, id string) *QuerySelection {
	for _, e := range r.Queries[query] {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// appendTimestamp appends ts and keeps only the newest limit timestamps.
func appendTimestamp(stamps []int64, ts int64, limit int) []int64 {
	stamps = append(stamps, ts)
	if over := len(stamps) - limit; over > 0 {
		stamps = append(stamps[:0:0], stamps[over:]...)
	}
	return stamps
}

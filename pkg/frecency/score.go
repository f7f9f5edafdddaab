package frecency

import (
	"maps"
	"slices"
	"time"
)

// ScoreField is the transient item field SortWithScores fills in.
const ScoreField = "_frecencyScore"

const (
	hour = int64(time.Hour / time.Millisecond)
	day  = 24 * hour
)

// decayBuckets are checked in order; the first window containing a
// timestamp gives its value.
var decayBuckets = []struct {
	window int64
	value  float64
}{
	{3 * hour, 100},
	{day, 80},
	{3 * day, 60},
	{7 * day, 30},
	{14 * day, 10},
}

// Scored pairs a result with its frecency score.
type Scored struct {
	Item  Item
	Score float64
}

// ComputeScore returns the frecency score of item for query q at now.
// A zero now uses the instance clock.
func (f *Frecency) ComputeScore(q Query, item Item, now time.Time) float64 {
	if now.IsZero() {
		now = f.clock()
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.computeScore(q, f.idAttribute.ExtractID(item), now.UnixMilli())
}

// computeScore runs the tier cascade and returns the first non-zero score.
// Callers hold f.mu.
func (f *Frecency) computeScore(q Query, id string, now int64) float64 {
	if q.usable() {
		if sel := f.cache.findQuerySelection(q.text, id); sel != nil {
			if score := f.exactQueryMatchWeight * decayedScore(sel.SelectedAt, sel.TimesSelected, now); score > 0 {
				return score
			}
		}
	}

	for _, query := range f.queries.subQueries(q.text) {
		if sel := f.cache.findQuerySelection(query, id); sel != nil {
			if score := f.subQueryMatchWeight * decayedScore(sel.SelectedAt, sel.TimesSelected, now); score > 0 {
				return score
			}
		}
	}

	if sel, ok := f.cache.Selections[id]; ok {
		return f.recentSelectionsMatchWeight * decayedScore(sel.SelectedAt, sel.TimesSelected, now)
	}
	return 0
}

// decayedScore is timesSelected times the mean bucket value of the stored
// timestamps.
func decayedScore(selectedAt []int64, timesSelected int, now int64) float64 {
	if len(selectedAt) == 0 {
		return 0
	}
	var total float64
	for _, ts := range selectedAt {
		for _, b := range decayBuckets {
			if ts >= now-b.window {
				total += b.value
				break
			}
		}
	}
	return float64(timesSelected) * (total / float64(len(selectedAt)))
}

// ScoredSort scores every result against one shared clock reading and
// returns them with recently selected results first, highest score first.
// Results without a score keep their original relative order at the end.
// Unavailable storage returns the input order with zero scores.
func (f *Frecency) ScoredSort(q Query, results []Item) []Scored {
	scored := make([]Scored, len(results))
	for i, item := range results {
		scored[i] = Scored{Item: item}
	}
	if !f.storageEnabled {
		return scored
	}

	now := f.clock().UnixMilli()
	f.mu.RLock()
	for i := range scored {
		scored[i].Score = f.computeScore(q, f.idAttribute.ExtractID(scored[i].Item), now)
	}
	f.mu.RUnlock()

	// A stable sort keeps both the positive ties and the unscored tail in
	// their original order. Negative scores, only possible with negative
	// weights, rank with the unscored tail.
	slices.SortStableFunc(scored, func(a, b Scored) int {
		as, bs := max(a.Score, 0), max(b.Score, 0)
		switch {
		case as > bs:
			return -1
		case as < bs:
			return 1
		default:
			return 0
		}
	})
	return scored
}

// Sort returns results ordered by frecency. The items themselves are
// returned unchanged.
func (f *Frecency) Sort(q Query, results []Item) []Item {
	scored := f.ScoredSort(q, results)
	out := make([]Item, len(scored))
	for i, s := range scored {
		out[i] = s.Item
	}
	return out
}

// SortWithScores is Sort with each result copied and annotated with its
// score under ScoreField. The input items are not modified.
func (f *Frecency) SortWithScores(q Query, results []Item) []Item {
	if !f.storageEnabled {
		return slices.Clone(results)
	}
	scored := f.ScoredSort(q, results)
	out := make([]Item, len(scored))
	for i, s := range scored {
		item := maps.Clone(s.Item)
		if item == nil {
			item = Item{}
		}
		item[ScoreField] = s.Score
		out[i] = item
	}
	return out
}

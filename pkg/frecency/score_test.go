package frecency

import (
	"testing"
	"time"

	"github.com/bastiangx/frecency/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testNow = int64(1524085045510)
	hourMs  = int64(time.Hour / time.Millisecond)
	dayMs   = 24 * hourMs
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func ids(field string, items []Item) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item[field]
	}
	return out
}

func people(names ...string) []Item {
	items := make([]Item, len(names))
	for i, n := range names {
		items[i] = Item{"_id": n}
	}
	return items
}

func TestSort(t *testing.T) {
	tests := []struct {
		name  string
		saves []save
		query Query
		items []Item
		want  []any
	}{
		{
			name:  "empty record keeps order",
			query: ForQuery("brad"),
			items: people("brad vogel", "simon xiong", "brad neuberg"),
			want:  []any{"brad vogel", "simon xiong", "brad neuberg"},
		},
		{
			name:  "empty query falls back to ids",
			saves: []save{{"brad", "brad neuberg", testNow - hourMs}},
			query: ForQuery(""),
			items: people("brad vogel", "simon xiong", "brad neuberg"),
			want:  []any{"brad neuberg", "brad vogel", "simon xiong"},
		},
		{
			name:  "no query falls back to ids",
			saves: []save{{"brad", "brad neuberg", testNow - hourMs}},
			query: NoQuery,
			items: people("brad vogel", "simon xiong", "brad neuberg"),
			want:  []any{"brad neuberg", "brad vogel", "simon xiong"},
		},
		{
			name:  "exact query match",
			saves: []save{{"brad", "brad neuberg", testNow - hourMs}},
			query: ForQuery("brad"),
			items: people("brad vogel", "simon xiong", "brad neuberg"),
			want:  []any{"brad neuberg", "brad vogel", "simon xiong"},
		},
		{
			name:  "sub-query match",
			saves: []save{{"brad", "brad neuberg", testNow - hourMs}},
			query: ForQuery("br"),
			items: people("brad vogel", "simon xiong", "brad neuberg"),
			want:  []any{"brad neuberg", "brad vogel", "simon xiong"},
		},
		{
			name:  "id match",
			saves: []save{{"brad", "brad neuberg", testNow - hourMs}},
			query: ForQuery("neuberg"),
			items: people("brad vogel", "simon xiong", "brad neuberg"),
			want:  []any{"brad neuberg", "brad vogel", "simon xiong"},
		},
		{
			name: "recent selections beat older ones",
			saves: []save{
				{"brad", "brad vogel", testNow - 7*dayMs},
				{"brad", "brad vogel", testNow - 7*dayMs},
				{"brad", "brad vogel", testNow - 7*dayMs},
				{"brad", "brad neuberg", testNow - hourMs},
				{"brad", "brad neuberg", testNow - hourMs},
			},
			query: ForQuery("brad"),
			items: people("brad vogel", "simon xiong", "brad neuberg"),
			want:  []any{"brad neuberg", "brad vogel", "simon xiong"},
		},
		{
			name: "non-exact matches score lower",
			saves: []save{
				{"br", "simon xiong", testNow - hourMs},
				{"brad", "brad neuberg", testNow - hourMs},
				{"vogel", "brad vogel", testNow - hourMs},
			},
			query: ForQuery("br"),
			items: people("brad vogel", "simon xiong", "brad neuberg", "other"),
			want:  []any{"simon xiong", "brad neuberg", "brad vogel", "other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFrecency(t, storage.NewMemory(), Options{Clock: fixedClock(testNow)})
			for _, s := range tt.saves {
				f.Save(ForQuery(s.query), s.id, time.UnixMilli(s.at))
			}
			assert.Equal(t, tt.want, ids("_id", f.Sort(tt.query, tt.items)))
		})
	}
}

func TestSortByIDField(t *testing.T) {
	f := newTestFrecency(t, storage.NewMemory(), Options{
		Clock:       fixedClock(testNow),
		IDAttribute: FieldID("email"),
	})
	f.Save(ForQuery("sim"), "simon@mixmax.com", time.UnixMilli(testNow-hourMs))

	results := []Item{
		{"_id": "simon@mixmax.com", "email": "other@mixmax.com"},
		{"_id": "not simon", "email": "simon@mixmax.com"},
	}
	assert.Equal(t, []Item{results[1], results[0]}, f.Sort(ForQuery("br"), results))
}

func TestSortByIDFunc(t *testing.T) {
	f := newTestFrecency(t, storage.NewMemory(), Options{
		Clock: fixedClock(testNow),
		IDAttribute: IDFunc(func(item Item) string {
			if email, ok := item["email"].(string); ok {
				return email
			}
			group, _ := item["groupName"].(string)
			return group
		}),
	})
	f.Save(ForQuery("sim"), "simon@mixmax.com", time.UnixMilli(testNow-dayMs))
	f.Save(ForQuery("personal"), "personal contact group", time.UnixMilli(testNow-hourMs))

	results := []Item{
		{"email": "brad@mixmax.com"},
		{"groupName": "everyone"},
		{"email": "simon@mixmax.com"},
		{"groupName": "personal contact group"},
		{"groupName": "testing group"},
	}
	assert.Equal(t, []Item{results[3], results[2], results[0], results[1], results[4]},
		f.Sort(ForQuery("per"), results))
}

func TestComputeScoreTiers(t *testing.T) {
	f := newTestFrecency(t, storage.NewMemory(), Options{Clock: fixedClock(testNow)})
	f.Save(ForQuery("brad"), "brad neuberg", time.UnixMilli(testNow-hourMs))
	item := Item{"_id": "brad neuberg"}

	tests := []struct {
		query Query
		want  float64
	}{
		{ForQuery("brad"), 100},
		{ForQuery("BR"), 70},
		{ForQuery("neuberg"), 50},
		{NoQuery, 50},
	}
	for _, tt := range tests {
		t.Run(tt.query.String(), func(t *testing.T) {
			assert.InDelta(t, tt.want, f.ComputeScore(tt.query, item, time.Time{}), 1e-9)
		})
	}

	assert.Zero(t, f.ComputeScore(ForQuery("brad"), Item{"_id": "unknown"}, time.Time{}))
	assert.Zero(t, f.ComputeScore(ForQuery("brad"), Item{}, time.Time{}))
}

// A tier whose timestamps have all decayed falls through to the next one.
func TestComputeScoreFallsThroughDecayedTiers(t *testing.T) {
	f := newTestFrecency(t, storage.NewMemory(), Options{Clock: fixedClock(testNow), TimestampsLimit: 1})
	f.Save(ForQuery("brad"), "brad neuberg", time.UnixMilli(testNow-20*dayMs))
	f.Save(ForQuery("neu"), "brad neuberg", time.UnixMilli(testNow-hourMs))

	// exact "brad" is 20 days old, the id's only timestamp is an hour old
	assert.InDelta(t, 0.5*2*100, f.ComputeScore(ForQuery("brad"), Item{"_id": "brad neuberg"}, time.Time{}), 1e-9)
}

func TestDecayedScore(t *testing.T) {
	tests := []struct {
		name  string
		ages  []int64
		times int
		want  float64
	}{
		{"no timestamps", nil, 3, 0},
		{"within 3h", []int64{0, 3 * hourMs}, 1, 100},
		{"within a day", []int64{3*hourMs + 1}, 1, 80},
		{"within 3 days", []int64{3 * dayMs}, 1, 60},
		{"within a week", []int64{7 * dayMs}, 1, 30},
		{"within two weeks", []int64{14 * dayMs}, 1, 10},
		{"older", []int64{14*dayMs + 1}, 1, 0},
		{"mean times count", []int64{hourMs, 2 * dayMs}, 4, 4 * (100 + 60) / 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stamps := make([]int64, len(tt.ages))
			for i, age := range tt.ages {
				stamps[i] = testNow - age
			}
			assert.InDelta(t, tt.want, decayedScore(stamps, tt.times, testNow), 1e-9)
		})
	}
}

func TestScoredSortIsStable(t *testing.T) {
	f := newTestFrecency(t, storage.NewMemory(), Options{Clock: fixedClock(testNow)})
	f.Save(ForQuery("x"), "b", time.UnixMilli(testNow-hourMs))
	f.Save(ForQuery("x"), "d", time.UnixMilli(testNow-hourMs))

	scored := f.ScoredSort(ForQuery("x"), people("a", "b", "c", "d", "e"))
	require.Len(t, scored, 5)

	got := make([]any, len(scored))
	for i, s := range scored {
		got[i] = s.Item["_id"]
	}
	assert.Equal(t, []any{"b", "d", "a", "c", "e"}, got)
	assert.InDelta(t, 100, scored[0].Score, 1e-9)
	assert.InDelta(t, 100, scored[1].Score, 1e-9)
	assert.Zero(t, scored[2].Score)
}

func TestSortWithScoresDoesNotMutateInput(t *testing.T) {
	f := newTestFrecency(t, storage.NewMemory(), Options{Clock: fixedClock(testNow)})
	f.Save(ForQuery("brad"), "brad neuberg", time.UnixMilli(testNow-hourMs))

	results := people("brad vogel", "brad neuberg")
	sorted := f.SortWithScores(ForQuery("brad"), results)

	require.Len(t, sorted, 2)
	assert.Equal(t, "brad neuberg", sorted[0]["_id"])
	assert.InDelta(t, 100.0, sorted[0][ScoreField], 1e-9)
	assert.InDelta(t, 0.0, sorted[1][ScoreField], 1e-9)
	for _, item := range results {
		assert.NotContains(t, item, ScoreField)
	}

	plain := f.Sort(ForQuery("brad"), results)
	for _, item := range plain {
		assert.NotContains(t, item, ScoreField)
	}
}

func TestSortEmptyResults(t *testing.T) {
	f := newTestFrecency(t, storage.NewMemory(), Options{Clock: fixedClock(testNow)})
	assert.Empty(t, f.Sort(ForQuery("brad"), nil))
	assert.Empty(t, f.SortWithScores(ForQuery("brad"), []Item{}))
}

func TestCustomWeights(t *testing.T) {
	f := newTestFrecency(t, storage.NewMemory(), Options{
		Clock:                       fixedClock(testNow),
		ExactQueryMatchWeight:       2,
		SubQueryMatchWeight:         0.1,
		RecentSelectionsMatchWeight: 0.01,
	})
	f.Save(ForQuery("brad"), "brad neuberg", time.UnixMilli(testNow-hourMs))
	item := Item{"_id": "brad neuberg"}

	assert.InDelta(t, 200, f.ComputeScore(ForQuery("brad"), item, time.Time{}), 1e-9)
	assert.InDelta(t, 10, f.ComputeScore(ForQuery("br"), item, time.Time{}), 1e-9)
	assert.InDelta(t, 1, f.ComputeScore(ForQuery("x"), item, time.Time{}), 1e-9)
}

func TestNegativeScoresStayInUnscoredTail(t *testing.T) {
	f := newTestFrecency(t, storage.NewMemory(), Options{
		Clock:                       fixedClock(testNow),
		RecentSelectionsMatchWeight: -1,
	})
	f.Save(ForQuery("brad"), "brad neuberg", time.UnixMilli(testNow-hourMs))
	f.Save(ForQuery("simon"), "simon xiong", time.UnixMilli(testNow-hourMs))

	sorted := f.Sort(ForQuery("simon"), people("other", "brad neuberg", "another", "simon xiong"))
	assert.Equal(t, []any{"simon xiong", "other", "brad neuberg", "another"}, ids("_id", sorted))
}

func TestWhitespaceQueryMatchesEveryStoredQuery(t *testing.T) {
	f := newTestFrecency(t, storage.NewMemory(), Options{Clock: fixedClock(testNow)})
	f.Save(ForQuery("brad"), "brad neuberg", time.UnixMilli(testNow-hourMs))

	assert.InDelta(t, 70, f.ComputeScore(ForQuery(" "), Item{"_id": "brad neuberg"}, time.Time{}), 1e-9)
	assert.InDelta(t, 50, f.ComputeScore(ForQuery(""), Item{"_id": "brad neuberg"}, time.Time{}), 1e-9)
}

// The first stored query in lexical order decides the sub-query score, even
// when a later one would score higher.
func TestSubQueryTierUsesLexicalOrder(t *testing.T) {
	f := newTestFrecency(t, storage.NewMemory(), Options{Clock: fixedClock(testNow)})
	f.Save(ForQuery("brian"), "brad neuberg", time.UnixMilli(testNow-hourMs))
	f.Save(ForQuery("brian"), "brad neuberg", time.UnixMilli(testNow-hourMs))
	f.Save(ForQuery("brad"), "brad neuberg", time.UnixMilli(testNow-hourMs))

	assert.InDelta(t, 0.7*1*100, f.ComputeScore(ForQuery("br"), Item{"_id": "brad neuberg"}, time.Time{}), 1e-9)
	assert.InDelta(t, 0.7*2*100, f.ComputeScore(ForQuery("bri"), Item{"_id": "brad neuberg"}, time.Time{}), 1e-9)
}

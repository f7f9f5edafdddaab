/*
Package frecency ranks search results by how often and how recently a user
selected them after issuing similar queries.

Every selection is recorded twice: under the query the user typed and under
the id of the selected result. A bounded most-recent-first list of ids caps
the data size; once full, the least recently selected id and everything
indexed under it is dropped.

	f, err := frecency.New(frecency.Options{
		Key:     "people",
		Storage: storage.NewMemory(),
	})
	f.Save(frecency.ForQuery("brad"), "brad vogel", time.Time{})
	ranked := f.Sort(frecency.ForQuery("br"), results)

Scores come from three tiers tried in order: an exact match of the query, a
stored query the current one is a by-word prefix of (see IsSubQuery), and
finally the id alone. Each tier weighs a decayed score that rewards both the
number of selections and how recent they were.

The record is persisted as JSON under "frecency_" + key in the configured
storage.Provider. Every Save reloads the stored record first so separate
processes sharing one store merge at the granularity of a single Save; the
last writer wins.
*/
package frecency

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bastiangx/frecency/internal/logger"
	"github.com/bastiangx/frecency/pkg/storage"
	"github.com/charmbracelet/log"
)

var (
	// ErrConfiguration is returned by New when a required option is missing.
	ErrConfiguration = errors.New("frecency: invalid configuration")
	// ErrStorageUnavailable is returned by New when no storage provider is given.
	ErrStorageUnavailable = errors.New("frecency: missing storage provider")
)

// Defaults applied to zero-valued Options fields.
const (
	DefaultTimestampsLimit             = 10
	DefaultRecentSelectionsLimit       = 100
	DefaultIDAttribute                 = "_id"
	DefaultExactQueryMatchWeight       = 1.0
	DefaultSubQueryMatchWeight         = 0.7
	DefaultRecentSelectionsMatchWeight = 0.5

	keyPrefix = "frecency_"
)

// Options configures a Frecency instance. Zero values take the defaults.
type Options struct {
	// Key namespaces the stored record. Required.
	Key string
	// TimestampsLimit bounds the selection timestamps kept per entry.
	TimestampsLimit int
	// RecentSelectionsLimit bounds the number of ids kept at all.
	RecentSelectionsLimit int
	// IDAttribute resolves a result's id, FieldID("_id") by default.
	IDAttribute IDExtractor
	// Storage holds the serialized record. Required.
	Storage storage.Provider

	ExactQueryMatchWeight       float64
	SubQueryMatchWeight         float64
	RecentSelectionsMatchWeight float64

	// Clock supplies the time for saves and sorts without an explicit one.
	Clock func() time.Time
	// Logger receives storage warnings. Defaults to a "frecency" prefixed logger.
	Logger *log.Logger
}

// Frecency records selections and ranks results against them.
type Frecency struct {
	key                   string
	timestampsLimit       int
	recentSelectionsLimit int
	idAttribute           IDExtractor
	storage               storage.Provider
	storageEnabled        bool

	exactQueryMatchWeight       float64
	subQueryMatchWeight         float64
	recentSelectionsMatchWeight float64

	clock  func() time.Time
	logger *log.Logger

	saveMu sync.Mutex

	mu      sync.RWMutex
	cache   *Record
	queries *queryIndex
}

// New validates opts, probes the storage provider once and loads the
// current record. A provider that fails the probe leaves the instance
// usable: saves become no-ops and sorts return their input order.
func New(opts Options) (*Frecency, error) {
	if opts.Key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrConfiguration)
	}
	if opts.Storage == nil {
		return nil, ErrStorageUnavailable
	}

	f := &Frecency{
		key:                         opts.Key,
		timestampsLimit:             orInt(opts.TimestampsLimit, DefaultTimestampsLimit),
		recentSelectionsLimit:       orInt(opts.RecentSelectionsLimit, DefaultRecentSelectionsLimit),
		idAttribute:                 opts.IDAttribute,
		storage:                     opts.Storage,
		exactQueryMatchWeight:       orFloat(opts.ExactQueryMatchWeight, DefaultExactQueryMatchWeight),
		subQueryMatchWeight:         orFloat(opts.SubQueryMatchWeight, DefaultSubQueryMatchWeight),
		recentSelectionsMatchWeight: orFloat(opts.RecentSelectionsMatchWeight, DefaultRecentSelectionsMatchWeight),
		clock:                       opts.Clock,
		logger:                      opts.Logger,
	}
	if f.idAttribute == nil {
		f.idAttribute = FieldID(DefaultIDAttribute)
	}
	if f.clock == nil {
		f.clock = time.Now
	}
	if f.logger == nil {
		f.logger = logger.New("frecency")
	}

	if err := storage.Probe(f.storage); err != nil {
		f.logger.Warn("storage unavailable, frecency disabled", "key", f.key, "err", err)
	} else {
		f.storageEnabled = true
	}

	rec, _ := f.load()
	f.setCache(rec)
	return f, nil
}

// StorageKey returns the key the record is stored under.
func (f *Frecency) StorageKey() string {
	return keyPrefix + f.key
}

// Enabled reports whether the storage provider passed the probe.
func (f *Frecency) Enabled() bool {
	return f.storageEnabled
}

// Save records that selectedID was chosen after searching for q.
// A zero at uses the instance clock. Without a query only the by-id data
// is updated. Empty ids and unavailable storage make Save a no-op.
func (f *Frecency) Save(q Query, selectedID string, at time.Time) {
	if selectedID == "" || !f.storageEnabled {
		return
	}
	if at.IsZero() {
		at = f.clock()
	}
	ts := at.UnixMilli()

	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	// Reload to pick up writes from other processes sharing the store.
	// An unreadable record is never overwritten.
	rec, err := f.load()
	if err != nil {
		return
	}

	f.updateByQuery(rec, q, selectedID, ts)
	f.updateByID(rec, q, selectedID, ts)
	f.cleanUpOldIDs(rec, selectedID)

	if err := f.persist(rec); err != nil {
		return
	}
	f.setCache(rec)
}

// Record returns a copy of the cached record.
func (f *Frecency) Record() *Record {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cache.Clone()
}

// Reload replaces the cached record with the stored one. The cache is kept
// when the store cannot be read.
func (f *Frecency) Reload() {
	rec, err := f.load()
	if err != nil {
		return
	}
	f.setCache(rec)
}

// Reset removes the stored record and empties the cache.
func (f *Frecency) Reset() {
	if f.storageEnabled {
		if err := f.storage.RemoveItem(f.StorageKey()); err != nil {
			f.logger.Warn("removing frecency record failed", "key", f.StorageKey(), "err", err)
		}
	}
	f.setCache(NewRecord())
}

// load reads the stored record. Missing or malformed data yields an empty
// record; the error is only set when the store itself failed, and the
// returned record is then empty too.
func (f *Frecency) load() (*Record, error) {
	if !f.storageEnabled {
		return NewRecord(), nil
	}
	data, ok, err := f.storage.GetItem(f.StorageKey())
	if err != nil {
		f.logger.Warn("reading frecency record failed", "key", f.StorageKey(), "err", err)
		return NewRecord(), fmt.Errorf("reading %s: %w", f.StorageKey(), err)
	}
	if !ok || data == "" {
		return NewRecord(), nil
	}
	rec, err := decodeRecord(data)
	if err != nil {
		f.logger.Debug("discarding malformed frecency record", "key", f.StorageKey(), "err", err)
	}
	return rec, nil
}

func (f *Frecency) persist(rec *Record) error {
	data, err := rec.encode()
	if err != nil {
		f.logger.Warn("encoding frecency record failed", "key", f.StorageKey(), "err", err)
		return err
	}
	if err := f.storage.SetItem(f.StorageKey(), data); err != nil {
		f.logger.Warn("writing frecency record failed", "key", f.StorageKey(), "err", err)
		return err
	}
	return nil
}

func (f *Frecency) setCache(rec *Record) {
	idx := newQueryIndex(rec)
	f.mu.Lock()
	f.cache = rec
	f.queries = idx
	f.mu.Unlock()
}

// updateByQuery associates the selection with the query the user typed so
// the result ranks higher when the same query is entered again.
func (f *Frecency) updateByQuery(rec *Record, q Query, selectedID string, ts int64) {
	if !q.usable() {
		return
	}
	query := q.text

	prev := rec.findQuerySelection(query, selectedID)
	if prev == nil {
		rec.Queries[query] = append(rec.Queries[query], &QuerySelection{
			ID:            selectedID,
			TimesSelected: 1,
			SelectedAt:    []int64{ts},
		})
		return
	}
	prev.TimesSelected++
	prev.SelectedAt = appendTimestamp(prev.SelectedAt, ts, f.timestampsLimit)
}

// updateByID associates the selection with the result id so it ranks higher
// even under queries it was never selected for.
func (f *Frecency) updateByID(rec *Record, q Query, selectedID string, ts int64) {
	prev, ok := rec.Selections[selectedID]
	if !ok {
		prev = &IDSelection{
			TimesSelected: 1,
			SelectedAt:    []int64{ts},
			Queries:       make(map[string]bool),
		}
		rec.Selections[selectedID] = prev
	} else {
		prev.TimesSelected++
		prev.SelectedAt = appendTimestamp(prev.SelectedAt, ts, f.timestampsLimit)
	}
	if q.usable() {
		prev.Queries[q.text] = true
	}
}

// cleanUpOldIDs moves selectedID to the front of the recent list and, once
// the list is full, evicts the least recently selected id with all its data.
func (f *Frecency) cleanUpOldIDs(rec *Record, selectedID string) {
	recent := rec.RecentSelections

	for i, id := range recent {
		if id == selectedID {
			copy(recent[1:i+1], recent[:i])
			recent[0] = selectedID
			return
		}
	}

	if len(recent) < f.recentSelectionsLimit {
		rec.RecentSelections = append([]string{selectedID}, recent...)
		return
	}

	idToRemove := recent[len(recent)-1]
	rec.RecentSelections = append([]string{selectedID}, recent[:len(recent)-1]...)
	f.purge(rec, idToRemove)
}

// purge deletes every by-id and by-query entry of id.
func (f *Frecency) purge(rec *Record, id string) {
	sel, ok := rec.Selections[id]
	if !ok {
		return
	}
	delete(rec.Selections, id)

	for query := range sel.Queries {
		entries, ok := rec.Queries[query]
		if !ok {
			continue
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(rec.Queries, query)
			continue
		}
		rec.Queries[query] = kept
	}
	f.logger.Debug("evicted least recently selected id", "id", id)
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/getmockd/restmock/pkg/logging"
	"github.com/getmockd/restmock/pkg/route"
)

// Collection is the record kept per cache key: the canonical writable item
// list and its derived read-only projection. The projection is regenerated
// wholesale on every write, never partially mutated.
type Collection struct {
	Writable []map[string]any
	Readonly []map[string]any
}

// Store maps cache keys to collections. Population is lazy: a collection is
// hydrated from external storage (when enabled) or generated by the owning
// route's data callback on first access.
//
// The map itself is guarded, but read-modify-write spans across Get and
// Replace are not; concurrent writers against the same cache key get
// last-write-wins semantics.
type Store struct {
	mu          sync.Mutex
	collections map[string]*Collection
	storage     Storage
	storageKey  string
	log         *slog.Logger
}

// NewStore creates a mock store. storage may be nil, which disables external
// persistence entirely; storageKey names the single storage entry holding the
// JSON object keyed by cache key.
func NewStore(storage Storage, storageKey string, log *slog.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{
		collections: make(map[string]*Collection),
		storage:     storage,
		storageKey:  storageKey,
		log:         log,
	}
}

// GetOrPopulate returns the collection for key, populating it on first
// access: from external storage when enabled and not suppressed for this
// route, otherwise from the route's data callback. A nil callback yields an
// empty collection. Callback errors abort the request.
func (s *Store) GetOrPopulate(key string, rt *route.Route, info route.RequestInfo) (*Collection, error) {
	s.mu.Lock()
	if c, ok := s.collections[key]; ok {
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	if s.persistenceFor(rt) {
		if items, ok := s.hydrate(key); ok {
			return s.set(key, rt, items, false), nil
		}
	}

	var items []map[string]any
	if rt.Data != nil {
		generated, err := rt.Data.Generate(info)
		if err != nil {
			return nil, fmt.Errorf("data callback for %q failed: %w", key, err)
		}
		items = generated
	}
	if items == nil {
		items = []map[string]any{}
	}
	return s.set(key, rt, items, s.persistenceFor(rt)), nil
}

// Replace overwrites the writable items for key, regenerates the read-only
// projection, and re-persists when enabled.
func (s *Store) Replace(key string, rt *route.Route, items []map[string]any) *Collection {
	if items == nil {
		items = []map[string]any{}
	}
	return s.set(key, rt, items, s.persistenceFor(rt))
}

// Get returns the cached collection for key without populating it.
func (s *Store) Get(key string) (*Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[key]
	return c, ok
}

// Reset drops every cached collection. Persisted data is left untouched.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]*Collection)
}

// Keys returns the cached cache keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.collections))
	for key := range s.collections {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) persistenceFor(rt *route.Route) bool {
	return s.storage != nil && rt != nil && !rt.IgnorePersistence
}

// set installs a collection and optionally writes it back to storage. The
// read-only projection is excluded from the persisted form.
func (s *Store) set(key string, rt *route.Route, items []map[string]any, persist bool) *Collection {
	var properties []string
	if rt != nil {
		properties = rt.PropertiesForList
	}
	c := &Collection{
		Writable: items,
		Readonly: projectItems(items, properties),
	}

	s.mu.Lock()
	s.collections[key] = c
	s.mu.Unlock()

	if persist {
		s.persist(key, items)
	}
	return c
}

// hydrate reads one collection out of the external blob. Corrupt external
// data is non-fatal: the entry is discarded, the storage key removed, and the
// lookup treated as a miss.
func (s *Store) hydrate(key string) ([]map[string]any, bool) {
	blob, ok, err := s.storage.Get(s.storageKey)
	if err != nil {
		s.log.Warn("external storage read failed", "key", s.storageKey, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(blob, &entries); err != nil {
		s.log.Warn("discarding corrupt external storage entry", "key", s.storageKey, "error", err)
		_ = s.storage.Remove(s.storageKey)
		return nil, false
	}

	raw, ok := entries[key]
	if !ok {
		return nil, false
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		s.log.Warn("discarding corrupt external collection", "cacheKey", key, "error", err)
		delete(entries, key)
		s.writeBlob(entries)
		return nil, false
	}
	return items, true
}

// persist writes the writable items for key into the external blob.
// Persistence failures are non-fatal.
func (s *Store) persist(key string, items []map[string]any) {
	entries := make(map[string]json.RawMessage)
	if blob, ok, err := s.storage.Get(s.storageKey); err == nil && ok {
		if err := json.Unmarshal(blob, &entries); err != nil {
			entries = make(map[string]json.RawMessage)
		}
	}

	raw, err := json.Marshal(items)
	if err != nil {
		s.log.Warn("failed to serialize collection for persistence", "cacheKey", key, "error", err)
		return
	}
	entries[key] = raw
	s.writeBlob(entries)
}

func (s *Store) writeBlob(entries map[string]json.RawMessage) {
	blob, err := json.Marshal(entries)
	if err != nil {
		s.log.Warn("failed to serialize external storage blob", "key", s.storageKey, "error", err)
		return
	}
	if err := s.storage.Set(s.storageKey, blob); err != nil {
		s.log.Warn("external storage write failed", "key", s.storageKey, "error", err)
	}
}

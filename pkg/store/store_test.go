package store

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/getmockd/restmock/pkg/route"
)

func sourceOf(items ...map[string]any) route.DataSource {
	return route.DataFunc(func(route.RequestInfo) ([]map[string]any, error) {
		return items, nil
	})
}

func TestGetOrPopulate_LazyFromCallback(t *testing.T) {
	calls := 0
	rt := &route.Route{
		Path: "posts/:id",
		Data: route.DataFunc(func(route.RequestInfo) ([]map[string]any, error) {
			calls++
			return []map[string]any{{"id": float64(1), "title": "first"}}, nil
		}),
	}
	s := NewStore(nil, "mock", nil)

	c, err := s.GetOrPopulate("posts", rt, route.RequestInfo{})
	if err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	if len(c.Writable) != 1 || c.Writable[0]["title"] != "first" {
		t.Fatalf("writable = %v, want the generated item", c.Writable)
	}

	if _, err := s.GetOrPopulate("posts", rt, route.RequestInfo{}); err != nil {
		t.Fatalf("second GetOrPopulate: %v", err)
	}
	if calls != 1 {
		t.Errorf("data callback invoked %d times, want 1", calls)
	}
}

func TestGetOrPopulate_NilCallbackYieldsEmptyCollection(t *testing.T) {
	s := NewStore(nil, "mock", nil)
	c, err := s.GetOrPopulate("api/health", &route.Route{Path: "api/health"}, route.RequestInfo{})
	if err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	if len(c.Writable) != 0 || c.Writable == nil {
		t.Errorf("writable = %v, want empty non-nil list", c.Writable)
	}
}

func TestGetOrPopulate_CallbackError(t *testing.T) {
	boom := errors.New("boom")
	rt := &route.Route{
		Path: "posts/:id",
		Data: route.DataFunc(func(route.RequestInfo) ([]map[string]any, error) {
			return nil, boom
		}),
	}
	s := NewStore(nil, "mock", nil)
	if _, err := s.GetOrPopulate("posts", rt, route.RequestInfo{}); !errors.Is(err, boom) {
		t.Fatalf("GetOrPopulate error = %v, want wrapped callback error", err)
	}
}

func TestReplace_RoundTrip(t *testing.T) {
	rt := &route.Route{Path: "posts/:id", Data: sourceOf()}
	s := NewStore(nil, "mock", nil)

	written := []map[string]any{
		{"id": float64(1), "title": "one", "meta": map[string]any{"tag": "a"}},
		{"id": float64(2), "title": "two"},
	}
	s.Replace("posts", rt, written)

	c, err := s.GetOrPopulate("posts", rt, route.RequestInfo{})
	if err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	if !reflect.DeepEqual(c.Writable, written) {
		t.Errorf("writable after replace = %v, want %v", c.Writable, written)
	}
}

func TestReadonlyProjection(t *testing.T) {
	rt := &route.Route{
		Path:              "posts/:id",
		Data:              sourceOf(),
		PropertiesForList: []string{"id", "title", "author.name"},
	}
	s := NewStore(nil, "mock", nil)
	s.Replace("posts", rt, []map[string]any{
		{"id": float64(1), "title": "one", "body": "hidden", "author": map[string]any{"name": "ann", "email": "a@x"}},
	})

	c, _ := s.Get("posts")
	if len(c.Readonly) != 1 {
		t.Fatalf("readonly length = %d, want 1", len(c.Readonly))
	}
	got := c.Readonly[0]
	if _, leaked := got["body"]; leaked {
		t.Error("projection leaked an unselected property")
	}
	if got["title"] != "one" || got["author.name"] != "ann" {
		t.Errorf("projection = %v, want id/title/author.name", got)
	}
}

func TestReadonlyIsDetachedFromWritable(t *testing.T) {
	rt := &route.Route{Path: "posts/:id", Data: sourceOf()}
	s := NewStore(nil, "mock", nil)
	s.Replace("posts", rt, []map[string]any{{"id": float64(1), "title": "one"}})

	c, _ := s.Get("posts")
	c.Readonly[0]["title"] = "mutated"
	if c.Writable[0]["title"] != "one" {
		t.Error("mutating the read-only view reached the writable items")
	}
}

func TestPersistence_WriteAndHydrate(t *testing.T) {
	storage := NewMemoryStorage()
	rt := &route.Route{Path: "posts/:id", Data: sourceOf(map[string]any{"id": float64(1)})}

	s := NewStore(storage, "mock", nil)
	if _, err := s.GetOrPopulate("posts", rt, route.RequestInfo{}); err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}

	// A fresh store over the same storage hydrates instead of regenerating.
	fresh := NewStore(storage, "mock", nil)
	poisoned := &route.Route{
		Path: "posts/:id",
		Data: route.DataFunc(func(route.RequestInfo) ([]map[string]any, error) {
			t.Fatal("callback invoked although storage held the collection")
			return nil, nil
		}),
	}
	c, err := fresh.GetOrPopulate("posts", poisoned, route.RequestInfo{})
	if err != nil {
		t.Fatalf("GetOrPopulate from storage: %v", err)
	}
	if len(c.Writable) != 1 || c.Writable[0]["id"] != float64(1) {
		t.Errorf("hydrated = %v, want the persisted item", c.Writable)
	}

	blob, ok, _ := storage.Get("mock")
	if !ok {
		t.Fatal("storage has no blob")
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(blob, &entries); err != nil {
		t.Fatalf("blob is not a JSON object: %v", err)
	}
	if _, ok := entries["posts"]; !ok {
		t.Error("blob is missing the posts cache key")
	}
}

func TestPersistence_IgnoredRoute(t *testing.T) {
	storage := NewMemoryStorage()
	rt := &route.Route{Path: "posts/:id", Data: sourceOf(), IgnorePersistence: true}

	s := NewStore(storage, "mock", nil)
	if _, err := s.GetOrPopulate("posts", rt, route.RequestInfo{}); err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	if _, ok, _ := storage.Get("mock"); ok {
		t.Error("collection persisted although the route opts out")
	}
}

func TestPersistence_CorruptBlobRecovered(t *testing.T) {
	storage := NewMemoryStorage()
	_ = storage.Set("mock", []byte("{not json"))

	rt := &route.Route{Path: "posts/:id", Data: sourceOf(map[string]any{"id": float64(1)})}
	s := NewStore(storage, "mock", nil)

	c, err := s.GetOrPopulate("posts", rt, route.RequestInfo{})
	if err != nil {
		t.Fatalf("GetOrPopulate after corruption: %v", err)
	}
	if len(c.Writable) != 1 {
		t.Errorf("writable = %v, want the regenerated item", c.Writable)
	}
}

func TestPersistence_CorruptCollectionEntryRemoved(t *testing.T) {
	storage := NewMemoryStorage()
	_ = storage.Set("mock", []byte(`{"posts": "not a list"}`))

	rt := &route.Route{Path: "posts/:id", Data: sourceOf(map[string]any{"id": float64(1)})}
	s := NewStore(storage, "mock", nil)

	if _, err := s.GetOrPopulate("posts", rt, route.RequestInfo{}); err != nil {
		t.Fatalf("GetOrPopulate after corruption: %v", err)
	}

	blob, ok, _ := storage.Get("mock")
	if !ok {
		t.Fatal("blob removed entirely, want corrupt entry dropped")
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(blob, &entries); err != nil {
		t.Fatalf("blob unreadable after recovery: %v", err)
	}
	var items []map[string]any
	if err := json.Unmarshal(entries["posts"], &items); err != nil {
		t.Errorf("posts entry still corrupt after recovery: %v", err)
	}
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}

	if _, ok, err := fs.Get("mock"); ok || err != nil {
		t.Fatalf("Get on empty dir = ok=%v err=%v, want absent", ok, err)
	}
	if err := fs.Set("mock", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, ok, err := fs.Get("mock")
	if err != nil || !ok || string(value) != `{"a":1}` {
		t.Fatalf("Get = %q ok=%v err=%v", value, ok, err)
	}
	if err := fs.Remove("mock"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := fs.Get("mock"); ok {
		t.Error("key still present after Remove")
	}
	if err := fs.Remove("mock"); err != nil {
		t.Errorf("Remove of absent key: %v", err)
	}
}

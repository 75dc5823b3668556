// Package crud emulates REST semantics against the mock store: parent
// resolution along a resolved resource chain, method dispatch with
// configurable status-code policies, and numeric id generation.
package crud

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/getmockd/restmock/pkg/logging"
	"github.com/getmockd/restmock/pkg/route"
	"github.com/getmockd/restmock/pkg/store"
)

// Policy selects the status codes emitted for the REST edge cases.
type Policy struct {
	// Post204 returns 204 instead of 200 when POST overwrites an existing item.
	Post204 bool `json:"postUpdate204,omitempty" yaml:"postUpdate204,omitempty"`
	// Post409 returns 409 when POST addresses an existing id.
	Post409 bool `json:"postUpdate409,omitempty" yaml:"postUpdate409,omitempty"`
	// Put204 returns 204 instead of 200 when PUT updates an existing item.
	Put204 bool `json:"putUpdate204,omitempty" yaml:"putUpdate204,omitempty"`
	// Put404 returns 404 instead of creating when PUT addresses a missing id.
	Put404 bool `json:"putUpdate404,omitempty" yaml:"putUpdate404,omitempty"`
	// Patch204 returns 204 instead of 200 when PATCH updates an item.
	Patch204 bool `json:"patchUpdate204,omitempty" yaml:"patchUpdate204,omitempty"`
	// Delete404 returns 404 when DELETE addresses a missing id.
	Delete404 bool `json:"deleteNotFound404,omitempty" yaml:"deleteNotFound404,omitempty"`
}

// Request is the method/body/query triple the engine dispatches on.
type Request struct {
	Method  string
	Query   url.Values
	Headers http.Header
	Body    any
}

// Result is the payload and status produced by a CRUD operation. Location is
// set on 201 responses to created collection items. Parents and Items expose
// the resolved chain context to response-shaping callbacks.
type Result struct {
	Status   int
	Body     any
	Location string
	Parents  []map[string]any
	Items    []map[string]any
}

// Engine executes CRUD operations against resolved resource chains.
type Engine struct {
	store  *store.Store
	policy Policy
	log    *slog.Logger
}

// New creates a CRUD engine over the given store.
func New(st *store.Store, policy Policy, log *slog.Logger) *Engine {
	if log == nil {
		log = logging.Nop()
	}
	return &Engine{store: st, policy: policy, log: log}
}

// Execute resolves the chain's parents and dispatches the request method
// against the final link. Policy errors come back as typed domain errors
// (see errors.go); anything else is an internal failure.
func (e *Engine) Execute(links []route.Link, req *Request) (*Result, error) {
	if len(links) == 0 {
		return nil, &ValidationError{Message: "empty resource chain"}
	}

	info := route.RequestInfo{
		Items:   []map[string]any{},
		Method:  http.MethodGet,
		Query:   req.Query,
		Body:    req.Body,
		Headers: req.Headers,
	}

	var parents []map[string]any
	for _, link := range links[:len(links)-1] {
		info.Parents = parents
		info.ItemID = link.ResourceID
		c, err := e.store.GetOrPopulate(link.CacheKey, link.Route, info)
		if err != nil {
			return nil, err
		}
		parent, ok := findItem(c.Writable, link.PrimaryKey, link.ResourceID)
		if !ok {
			return nil, &NotFoundError{Collection: link.CacheKey, ID: link.ResourceID, Searched: c.Writable}
		}
		parents = append(parents, parent)
	}

	last := links[len(links)-1]
	info.Parents = parents
	info.ItemID = last.ResourceID
	c, err := e.store.GetOrPopulate(last.CacheKey, last.Route, info)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch req.Method {
	case http.MethodGet:
		res, err = e.get(c, last)
	case http.MethodPost:
		res, err = e.post(c, last, req)
	case http.MethodPut, http.MethodPatch:
		res, err = e.update(c, last, req)
	case http.MethodDelete:
		res, err = e.remove(c, last)
	default:
		return nil, &MethodError{Method: req.Method}
	}
	if err != nil {
		return nil, err
	}

	res.Parents = parents
	if current, ok := e.store.Get(last.CacheKey); ok {
		res.Items = current.Writable
	}
	return res, nil
}

func (e *Engine) get(c *store.Collection, link route.Link) (*Result, error) {
	if link.ResourceID == "" {
		return &Result{Status: http.StatusOK, Body: c.Readonly}, nil
	}
	item, ok := findItem(c.Writable, link.PrimaryKey, link.ResourceID)
	if !ok {
		return nil, &NotFoundError{Collection: link.CacheKey, ID: link.ResourceID, Searched: c.Writable}
	}
	return &Result{Status: http.StatusOK, Body: []map[string]any{store.CloneItem(item)}}, nil
}

func (e *Engine) post(c *store.Collection, link route.Link, req *Request) (*Result, error) {
	if link.ResourceID != "" {
		return nil, &MethodError{
			Method:   http.MethodPost,
			Guidance: "POST addresses a collection; use PUT on the item URL to update " + link.ResourceID,
		}
	}
	if link.PrimaryKey == "" {
		return nil, &ValidationError{Collection: link.CacheKey, Message: "route has no primary key; POST is not supported"}
	}

	item, err := bodyItem(req.Body, link.CacheKey)
	if err != nil {
		return nil, err
	}

	id := idString(item[link.PrimaryKey])
	if id == "" {
		generated := genID(c.Writable, link.PrimaryKey)
		item[link.PrimaryKey] = generated
		id = idString(generated)
	}

	idx := indexOf(c.Writable, link.PrimaryKey, id)
	if idx < 0 {
		items := append(store.CloneItems(c.Writable), item)
		e.store.Replace(link.CacheKey, link.Route, items)
		return &Result{
			Status:   http.StatusCreated,
			Body:     store.CloneItem(item),
			Location: link.CacheKey + route.Separator + id,
		}, nil
	}

	if e.policy.Post409 {
		return nil, &ConflictError{Collection: link.CacheKey, ID: id}
	}

	items := store.CloneItems(c.Writable)
	items[idx] = item
	e.store.Replace(link.CacheKey, link.Route, items)
	if e.policy.Post204 {
		return &Result{Status: http.StatusNoContent}, nil
	}
	return &Result{Status: http.StatusOK, Body: store.CloneItem(item)}, nil
}

func (e *Engine) update(c *store.Collection, link route.Link, req *Request) (*Result, error) {
	if link.PrimaryKey == "" {
		return nil, &ValidationError{Collection: link.CacheKey, Message: "route has no primary key; " + req.Method + " is not supported"}
	}
	if link.ResourceID == "" {
		return nil, &MethodError{
			Method:   req.Method,
			Guidance: req.Method + " addresses a single item; use the " + link.CacheKey + "/<id> URL form",
		}
	}

	item, err := bodyItem(req.Body, link.CacheKey)
	if err != nil {
		return nil, err
	}
	if bodyID := idString(item[link.PrimaryKey]); bodyID != "" && bodyID != link.ResourceID {
		return nil, &ValidationError{
			Collection: link.CacheKey,
			Message:    "primary key in body (" + bodyID + ") conflicts with the URL id (" + link.ResourceID + ")",
		}
	}

	idx := indexOf(c.Writable, link.PrimaryKey, link.ResourceID)
	if idx < 0 {
		if req.Method == http.MethodPatch || e.policy.Put404 {
			return nil, &NotFoundError{Collection: link.CacheKey, ID: link.ResourceID, Searched: c.Writable}
		}
		// PUT upsert: create the item fresh under the URL id.
		if _, ok := item[link.PrimaryKey]; !ok {
			item[link.PrimaryKey] = urlIDValue(link.ResourceID)
		}
		items := append(store.CloneItems(c.Writable), item)
		e.store.Replace(link.CacheKey, link.Route, items)
		return &Result{Status: http.StatusCreated, Body: store.CloneItem(item)}, nil
	}

	existing := c.Writable[idx]
	var updated map[string]any
	if req.Method == http.MethodPut {
		// Full replace: fields absent from the body are dropped, the
		// primary key survives.
		updated = store.CloneItem(item)
		updated[link.PrimaryKey] = existing[link.PrimaryKey]
	} else {
		// Partial update: merge without deleting.
		updated = store.CloneItem(existing)
		for k, v := range item {
			updated[k] = v
		}
	}

	items := store.CloneItems(c.Writable)
	items[idx] = updated
	e.store.Replace(link.CacheKey, link.Route, items)

	if (req.Method == http.MethodPut && e.policy.Put204) ||
		(req.Method == http.MethodPatch && e.policy.Patch204) {
		return &Result{Status: http.StatusNoContent}, nil
	}
	return &Result{Status: http.StatusOK, Body: store.CloneItem(updated)}, nil
}

func (e *Engine) remove(c *store.Collection, link route.Link) (*Result, error) {
	if link.PrimaryKey == "" {
		return nil, &ValidationError{Collection: link.CacheKey, Message: "route has no primary key; DELETE is not supported"}
	}
	if link.ResourceID == "" {
		return nil, &NotFoundError{Collection: link.CacheKey, Searched: c.Writable}
	}

	idx := indexOf(c.Writable, link.PrimaryKey, link.ResourceID)
	if idx < 0 {
		if e.policy.Delete404 {
			return nil, &NotFoundError{Collection: link.CacheKey, ID: link.ResourceID, Searched: c.Writable}
		}
		// Idempotent delete: nothing removed, still 204.
		return &Result{Status: http.StatusNoContent}, nil
	}

	items := store.CloneItems(c.Writable)
	items = append(items[:idx], items[idx+1:]...)
	e.store.Replace(link.CacheKey, link.Route, items)
	return &Result{Status: http.StatusNoContent}, nil
}

// bodyItem coerces a decoded request body into a single item map. Write
// methods require an object body (an absent body counts as empty).
func bodyItem(body any, collection string) (map[string]any, error) {
	switch b := body.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return store.CloneItem(b), nil
	case []any:
		// Multipart form bodies arrive as a list of single-key objects.
		merged := make(map[string]any, len(b))
		for _, el := range b {
			part, ok := el.(map[string]any)
			if !ok {
				return nil, &ValidationError{Collection: collection, Message: "request body must be a JSON object"}
			}
			for k, v := range part {
				merged[k] = v
			}
		}
		return store.CloneItem(merged), nil
	default:
		return nil, &ValidationError{Collection: collection, Message: "request body must be a JSON object"}
	}
}

// findItem locates the item whose primary-key field equals id.
func findItem(items []map[string]any, primaryKey, id string) (map[string]any, bool) {
	idx := indexOf(items, primaryKey, id)
	if idx < 0 {
		return nil, false
	}
	return items[idx], true
}

func indexOf(items []map[string]any, primaryKey, id string) int {
	if primaryKey == "" || id == "" {
		return -1
	}
	for i, item := range items {
		if idString(item[primaryKey]) == id {
			return i
		}
	}
	return -1
}

// genID returns one greater than the maximum numeric value currently held
// under primaryKey. Items with a non-numeric or absent value contribute zero,
// so an empty collection yields 1.
func genID(items []map[string]any, primaryKey string) float64 {
	max := 0.0
	for _, item := range items {
		if f, ok := toNumber(item[primaryKey]); ok && f > max {
			max = f
		}
	}
	return max + 1
}

// idString renders a primary-key value in canonical form so URL segments
// (strings) compare equal to stored JSON numbers (7.0 == "7").
func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(id), 'f', -1, 32)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// urlIDValue stores a URL-bound id with its natural type: numeric segments
// become numbers so generated and explicit ids stay comparable.
func urlIDValue(id string) any {
	if f, err := strconv.ParseFloat(id, 64); err == nil {
		return f
	}
	return id
}

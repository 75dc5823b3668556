// Package engine ties the route registry, mock store, and CRUD emulation
// together behind one entry point, and adapts it to the host HTTP client
// (http.RoundTripper) and server (http.Handler) integrations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/getmockd/restmock/pkg/crud"
	"github.com/getmockd/restmock/pkg/logging"
	"github.com/getmockd/restmock/pkg/route"
	"github.com/getmockd/restmock/pkg/store"
)

// ErrPassThrough is returned by Handle when a request matches no route and
// pass-through is enabled; the caller forwards the request to the real
// backend.
var ErrPassThrough = errors.New("request matches no mock route")

// Engine is the in-process HTTP mock engine. Construct with New; route
// validation happens there and is fatal, an Engine never serves from an
// invalid tree.
type Engine struct {
	registry *route.Registry
	store    *store.Store
	crud     *crud.Engine
	cfg      Config
	log      *slog.Logger
}

// New validates the route tree and assembles an engine.
func New(routes []*route.Route, cfg Config, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = logging.Nop()
	}
	registry, err := route.NewRegistry(routes)
	if err != nil {
		return nil, err
	}

	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}
	var storage store.Storage
	if cfg.CacheFromStorage {
		storage = cfg.Storage
		if storage == nil {
			storage = store.NewMemoryStorage()
		}
	}
	st := store.NewStore(storage, cfg.StorageKey, log)

	return &Engine{
		registry: registry,
		store:    st,
		crud:     crud.New(st, cfg.Policy, log),
		cfg:      cfg,
		log:      log,
	}, nil
}

// Store exposes the underlying mock store, mainly for seeding and
// inspection in tests.
func (e *Engine) Store() *store.Store { return e.store }

// Handle processes one intercepted request to completion and delivers the
// response after the configured simulated latency. The only non-nil error it
// returns is ErrPassThrough; every other failure becomes an error envelope.
func (e *Engine) Handle(ctx context.Context, req *Request) (*Response, error) {
	resp, err := e.dispatch(req)
	if err != nil {
		return nil, err
	}
	e.wait(ctx)
	return resp, nil
}

// dispatch runs matching and CRUD emulation. Panics and unexpected errors
// are converted into 500 envelopes rather than propagating.
func (e *Engine) dispatch(req *Request) (resp *Response, err error) {
	reqID := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("mock request panicked", "requestId", reqID, "url", req.URL, "panic", r)
			resp, err = e.errorResponse(req, 500, fmt.Sprintf("internal error: %v", r)), nil
		}
	}()

	var host, path string
	if req.URL != nil {
		host, path = req.URL.Host, req.URL.Path
	}
	e.log.Debug("mock request", "requestId", reqID, "method", req.Method, "host", host, "path", path)

	links, ok := e.registry.Match(host, path)
	if !ok {
		if e.cfg.PassThroughUnknownURL {
			e.log.Debug("passing through unmatched request", "requestId", reqID, "path", path)
			return nil, ErrPassThrough
		}
		return e.errorResponse(req, 404, fmt.Sprintf("no mock route matches %q", route.NormalizeURL(host, path))), nil
	}

	result, crudErr := e.crud.Execute(links, &crud.Request{
		Method:  req.Method,
		Query:   req.Query,
		Headers: req.Headers,
		Body:    req.Body,
	})
	if crudErr != nil {
		var sc crud.StatusCodeError
		if errors.As(crudErr, &sc) {
			e.log.Debug("crud policy error", "requestId", reqID, "status", sc.StatusCode(), "error", crudErr)
			return e.errorResponse(req, sc.StatusCode(), crudErr.Error()), nil
		}
		e.log.Error("mock request failed", "requestId", reqID, "error", crudErr)
		return e.errorResponse(req, 500, crudErr.Error()), nil
	}

	return e.buildResponse(req, links, result), nil
}

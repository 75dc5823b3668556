package route

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Route is one node in the declared resource tree. A root route may carry a
// Host; nested routes inherit their position from their parent. Path segments
// beginning with ':' are primary-key tokens (e.g. "posts/:postId").
type Route struct {
	// Host qualifies a root route (e.g. "api.example.com"). Empty on nested
	// routes and on roots that match any host.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Path is the route segment, possibly containing ':name' primary-key
	// tokens. Relative; never begins or ends with a separator.
	Path string `json:"path" yaml:"path"`

	// Data generates the initial collection for this route on first access.
	// Required (and only allowed) when Path ends in a primary-key token.
	Data DataSource `json:"-" yaml:"-"`

	// Shape optionally rewrites the outgoing response body.
	Shape ResponseShaper `json:"-" yaml:"-"`

	// PropertiesForList narrows items in the read-only projection to the
	// named properties. Dotted paths select nested values.
	PropertiesForList []string `json:"propertiesForList,omitempty" yaml:"propertiesForList,omitempty"`

	// IgnorePersistence excludes this route's collections from external
	// storage even when persistence is enabled engine-wide.
	IgnorePersistence bool `json:"ignorePersistence,omitempty" yaml:"ignorePersistence,omitempty"`

	// Children are the nested resource routes below this node.
	Children []*Route `json:"children,omitempty" yaml:"children,omitempty"`
}

// RequestInfo is the request context handed to data-generation callbacks.
type RequestInfo struct {
	// Items is the current collection content (empty on first population).
	Items []map[string]any
	// ItemID is the bound primary-key value from the URL, if any.
	ItemID string
	// Method is the HTTP method of the triggering request.
	Method string
	// Parents holds the resolved parent items, outermost first.
	Parents []map[string]any
	// Query contains the request's query parameters.
	Query url.Values
	// Body is the decoded request body, if any.
	Body any
	// Headers contains the request headers.
	Headers http.Header
}

// ShapeInfo extends RequestInfo with the response body produced by the CRUD
// engine, for response-shaping callbacks.
type ShapeInfo struct {
	RequestInfo
	// ResponseBody is the normalized body the engine would send as-is.
	ResponseBody any
}

// DataSource generates the canonical item list for a collection. The engine
// invokes it once per cache key, on first access.
type DataSource interface {
	Generate(info RequestInfo) ([]map[string]any, error)
}

// DataFunc adapts a plain function to the DataSource interface.
type DataFunc func(info RequestInfo) ([]map[string]any, error)

// Generate implements DataSource.
func (f DataFunc) Generate(info RequestInfo) ([]map[string]any, error) { return f(info) }

// ResponseShaper rewrites the outgoing response body for a route. Returning a
// *ShaperError replaces the whole response envelope instead of the body.
type ResponseShaper interface {
	Shape(info ShapeInfo) (any, error)
}

// ShapeFunc adapts a plain function to the ResponseShaper interface.
type ShapeFunc func(info ShapeInfo) (any, error)

// Shape implements ResponseShaper.
func (f ShapeFunc) Shape(info ShapeInfo) (any, error) { return f(info) }

// ShaperError is returned by a ResponseShaper to emit its own error envelope
// with the given status instead of the shaped body.
type ShaperError struct {
	Status  int
	Message string
}

func (e *ShaperError) Error() string {
	return fmt.Sprintf("response shaper error (status %d): %s", e.Status, e.Message)
}

// Separator is the path segment separator.
const Separator = "/"

// isParam reports whether a path segment is a primary-key token.
func isParam(segment string) bool {
	return strings.HasPrefix(segment, ":") && len(segment) > 1
}

// paramName returns the primary-key name of a token segment (":id" -> "id").
func paramName(segment string) string {
	return strings.TrimPrefix(segment, ":")
}

// endsInParam reports whether the final segment of path is a primary-key token.
func endsInParam(path string) bool {
	segments := strings.Split(path, Separator)
	return isParam(segments[len(segments)-1])
}

// prefixBeforeParam returns the leading literal segments of path, stopping at
// the first primary-key token ("api/posts/:postId" -> "api/posts").
func prefixBeforeParam(path string) string {
	segments := strings.Split(path, Separator)
	for i, seg := range segments {
		if isParam(seg) {
			return strings.Join(segments[:i], Separator)
		}
	}
	return path
}

// joinPath joins an optional host with a relative path.
func joinPath(host, path string) string {
	if host == "" {
		return path
	}
	if path == "" {
		return host
	}
	return host + Separator + path
}

// NormalizeURL reduces a request URL to the canonical matching form: optional
// host, then the path with leading and trailing separators trimmed.
func NormalizeURL(host, path string) string {
	return joinPath(host, strings.Trim(path, Separator))
}

package crud

import (
	"fmt"
	"net/http"
)

// NotFoundError is returned when an item (or a parent item along the chain)
// does not exist. Searched carries the collection that was scanned, for
// diagnostics.
type NotFoundError struct {
	Collection string
	ID         string
	Searched   []map[string]any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("item %q not found in collection %q", e.ID, e.Collection)
	}
	return fmt.Sprintf("item not found in collection %q", e.Collection)
}

// StatusCode returns the HTTP status code for this error.
func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// Hint returns a suggestion for resolving this error.
func (e *NotFoundError) Hint() string {
	return fmt.Sprintf("Check that item %q exists; GET the collection %q to list available items.", e.ID, e.Collection)
}

// ConflictError is returned when a POST addresses an id that already exists
// and the 409-on-update policy is enabled.
type ConflictError struct {
	Collection string
	ID         string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("item %q already exists in collection %q", e.ID, e.Collection)
}

// StatusCode returns the HTTP status code for this error.
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Hint returns a suggestion for resolving this error.
func (e *ConflictError) Hint() string {
	return fmt.Sprintf("Use PUT on %s/%s to update the existing item.", e.Collection, e.ID)
}

// ValidationError is returned for malformed requests: a write against a route
// without a primary key, a body id conflicting with the URL id, or a
// non-object body on a write method.
type ValidationError struct {
	Collection string
	Message    string
}

func (e *ValidationError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("collection %q: %s", e.Collection, e.Message)
	}
	return e.Message
}

// StatusCode returns the HTTP status code for this error.
func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

// Hint returns a suggestion for resolving this error.
func (e *ValidationError) Hint() string {
	return "Check the request body and the route's primary-key declaration."
}

// MethodError is returned when a method is not applicable to the addressed
// URL form (e.g. POST on an item URL) or not supported at all.
type MethodError struct {
	Method   string
	Guidance string
}

func (e *MethodError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("method %s not allowed: %s", e.Method, e.Guidance)
	}
	return fmt.Sprintf("method %s not allowed", e.Method)
}

// StatusCode returns the HTTP status code for this error.
func (e *MethodError) StatusCode() int {
	return http.StatusMethodNotAllowed
}

// Hint returns a suggestion for resolving this error.
func (e *MethodError) Hint() string {
	return e.Guidance
}

// StatusCodeError is implemented by domain errors carrying an HTTP status.
type StatusCodeError interface {
	error
	StatusCode() int
}

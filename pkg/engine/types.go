package engine

import (
	"net/http"
	"net/url"
	"time"

	"github.com/getmockd/restmock/pkg/crud"
	"github.com/getmockd/restmock/pkg/store"
)

// DefaultStorageKey is the external storage entry used when none is
// configured.
const DefaultStorageKey = "restmock.store"

// DefaultDelay is the simulated network latency applied to every response.
const DefaultDelay = 500 * time.Millisecond

// Config holds engine options. The zero value disables persistence,
// pass-through and the response delay; use DefaultConfig for the stock
// behavior.
type Config struct {
	// PassThroughUnknownURL forwards unmatched requests to the real backend
	// instead of answering 404.
	PassThroughUnknownURL bool `json:"passThroughUnknownUrl,omitempty" yaml:"passThroughUnknownUrl,omitempty"`

	// CacheFromStorage synchronizes collections with the external Storage.
	CacheFromStorage bool `json:"cacheFromExternalStorage,omitempty" yaml:"cacheFromExternalStorage,omitempty"`

	// StorageKey is the single storage entry holding all persisted
	// collections. Defaults to DefaultStorageKey.
	StorageKey string `json:"externalStorageKey,omitempty" yaml:"externalStorageKey,omitempty"`

	// Delay is the simulated network latency before a response is delivered.
	Delay time.Duration `json:"responseDelayMs,omitempty" yaml:"responseDelayMs,omitempty"`

	// Policy selects the CRUD status-code edge-case behavior.
	crud.Policy `yaml:",inline"`

	// Storage is the persistence backend, used when CacheFromStorage is
	// set. Defaults to an in-memory storage.
	Storage store.Storage `json:"-" yaml:"-"`
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		StorageKey: DefaultStorageKey,
		Delay:      DefaultDelay,
	}
}

// Request is the engine-side view of one intercepted HTTP request.
type Request struct {
	// Method is the HTTP method.
	Method string
	// URL is the full request URL.
	URL *url.URL
	// Query contains the parsed query parameters.
	Query url.Values
	// Headers contains the request headers.
	Headers http.Header
	// Body is the decoded request body: a JSON value, or a list of
	// single-key objects for multipart forms.
	Body any
}

// Response is the synthetic response envelope delivered back to the host
// HTTP integration.
type Response struct {
	// Status is the HTTP status code.
	Status int
	// Headers are the response headers.
	Headers http.Header
	// Body is the JSON-serializable response body; nil for 204 responses.
	Body any
}

// ErrorBody is the body of an error response envelope.
type ErrorBody struct {
	URL        string      `json:"url"`
	Status     int         `json:"status"`
	StatusText string      `json:"statusText"`
	Headers    http.Header `json:"headers,omitempty"`
	Error      string      `json:"error"`
}

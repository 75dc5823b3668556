package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Transport is an http.RoundTripper that answers matched requests from the
// mock engine and forwards everything else to Base. Install it on an
// http.Client to intercept outgoing requests in-process:
//
//	client := &http.Client{Transport: engine.NewTransport(eng, nil)}
type Transport struct {
	engine *Engine
	base   http.RoundTripper
}

// NewTransport wraps base with the mock engine. A nil base falls back to
// http.DefaultTransport for passed-through requests.
func NewTransport(engine *Engine, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{engine: engine, base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(httpReq *http.Request) (*http.Response, error) {
	// Buffer the body so an unmatched request can be replayed against the
	// real transport.
	var raw []byte
	if httpReq.Body != nil && httpReq.Body != http.NoBody {
		var err error
		raw, err = io.ReadAll(httpReq.Body)
		httpReq.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
	}

	req, err := fromHTTPRequest(httpReq, raw)
	if err != nil {
		bad := &Request{Method: httpReq.Method, URL: httpReq.URL, Headers: httpReq.Header}
		return toHTTPResponse(httpReq, t.engine.errorResponse(bad, http.StatusBadRequest, err.Error()))
	}

	resp, err := t.engine.Handle(httpReq.Context(), req)
	if errors.Is(err, ErrPassThrough) {
		if raw != nil {
			httpReq.Body = io.NopCloser(bytes.NewReader(raw))
		}
		return t.base.RoundTrip(httpReq)
	}
	if err != nil {
		return nil, err
	}
	return toHTTPResponse(httpReq, resp)
}

// toHTTPResponse serializes the engine response into a synthetic
// *http.Response attributed to the original request.
func toHTTPResponse(httpReq *http.Request, resp *Response) (*http.Response, error) {
	headers := resp.Headers
	if headers == nil {
		headers = http.Header{}
	}

	var body []byte
	if resp.Body != nil {
		var err error
		body, err = json.Marshal(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding mock response: %w", err)
		}
		headers.Set("Content-Length", strconv.Itoa(len(body)))
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.Status, http.StatusText(resp.Status)),
		StatusCode:    resp.Status,
		Proto:         httpReq.Proto,
		ProtoMajor:    httpReq.ProtoMajor,
		ProtoMinor:    httpReq.ProtoMinor,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       httpReq,
	}, nil
}

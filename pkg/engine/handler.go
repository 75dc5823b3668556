package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// Handler adapts the engine to net/http so the mock can run as a standalone
// server. Unmatched requests answer 404 even when pass-through is enabled;
// there is no upstream to forward to in server mode.
type Handler struct {
	engine *Engine
}

// NewHandler wraps the engine as an http.Handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// ServeHTTP implements http.Handler. HEAD requests are answered as GET with
// the body stripped.
func (h *Handler) ServeHTTP(w http.ResponseWriter, httpReq *http.Request) {
	var raw []byte
	if httpReq.Body != nil && httpReq.Body != http.NoBody {
		var err error
		raw, err = io.ReadAll(httpReq.Body)
		httpReq.Body.Close()
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
	}

	req, err := fromHTTPRequest(httpReq, raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{
			URL:        httpReq.URL.String(),
			Status:     http.StatusBadRequest,
			StatusText: http.StatusText(http.StatusBadRequest),
			Error:      err.Error(),
		})
		return
	}

	headOnly := req.Method == http.MethodHead
	if headOnly {
		req.Method = http.MethodGet
	}

	resp, err := h.engine.Handle(httpReq.Context(), req)
	if errors.Is(err, ErrPassThrough) {
		writeJSON(w, http.StatusNotFound, ErrorBody{
			URL:        httpReq.URL.String(),
			Status:     http.StatusNotFound,
			StatusText: http.StatusText(http.StatusNotFound),
			Error:      "no mock route matches this request",
		})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for key, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if headOnly || resp.Body == nil {
		w.WriteHeader(resp.Status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_ = json.NewEncoder(w).Encode(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// fromHTTPRequest converts an *http.Request plus its buffered body into the
// engine request form. JSON bodies are decoded as-is; multipart form bodies
// become a list of single-key objects, one per field.
func fromHTTPRequest(httpReq *http.Request, raw []byte) (*Request, error) {
	req := &Request{
		Method:  httpReq.Method,
		URL:     httpReq.URL,
		Query:   httpReq.URL.Query(),
		Headers: httpReq.Header,
	}
	if len(raw) == 0 {
		return req, nil
	}

	contentType := httpReq.Header.Get("Content-Type")
	mediaType, params, _ := mime.ParseMediaType(contentType)
	if strings.HasPrefix(mediaType, "multipart/") {
		body, err := parseMultipartBody(raw, params["boundary"])
		if err != nil {
			return nil, err
		}
		req.Body = body
		return req, nil
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decoding request body: %w", err)
	}
	req.Body = body
	return req, nil
}

// parseMultipartBody reads form fields into the list-of-single-key-objects
// shape the CRUD layer merges into one item. Field values that parse as
// JSON keep their decoded type; everything else stays a string.
func parseMultipartBody(raw []byte, boundary string) ([]any, error) {
	if boundary == "" {
		return nil, errors.New("multipart body without boundary")
	}
	reader := multipart.NewReader(strings.NewReader(string(raw)), boundary)

	var fields []any
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading multipart body: %w", err)
		}
		name := part.FormName()
		value, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("reading multipart field %q: %w", name, err)
		}

		var decoded any
		if json.Unmarshal(value, &decoded) != nil {
			decoded = string(value)
		}
		fields = append(fields, map[string]any{name: decoded})
	}
	return fields, nil
}

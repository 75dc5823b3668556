package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/getmockd/restmock/pkg/crud"
	"github.com/getmockd/restmock/pkg/route"
)

// buildResponse assembles the outgoing envelope from a CRUD result:
// normalizes the body to the array-or-object contract, applies the route's
// response shaper, and defaults the status to 200.
func (e *Engine) buildResponse(req *Request, links []route.Link, result *crud.Result) *Response {
	last := links[len(links)-1]

	body := normalizeBody(result.Body)
	if last.Route.Shape != nil {
		shaped, err := last.Route.Shape.Shape(route.ShapeInfo{
			RequestInfo: route.RequestInfo{
				Items:   result.Items,
				ItemID:  last.ResourceID,
				Method:  req.Method,
				Parents: result.Parents,
				Query:   req.Query,
				Body:    req.Body,
				Headers: req.Headers,
			},
			ResponseBody: body,
		})
		if err != nil {
			var se *route.ShaperError
			if errors.As(err, &se) {
				return e.errorResponse(req, se.Status, se.Message)
			}
			return e.errorResponse(req, http.StatusInternalServerError, err.Error())
		}
		body = shaped
	}

	status := result.Status
	if status == 0 {
		status = http.StatusOK
	}

	headers := http.Header{}
	if body != nil {
		headers.Set("Content-Type", "application/json")
	}
	if result.Location != "" {
		headers.Set("Location", result.Location)
	}
	return &Response{Status: status, Headers: headers, Body: body}
}

// normalizeBody applies the array-or-object contract: a bare object is
// wrapped in a single-element list, lists pass through, nil stays nil.
func normalizeBody(body any) any {
	switch b := body.(type) {
	case nil:
		return nil
	case []map[string]any:
		return b
	case []any:
		return b
	case map[string]any:
		return []map[string]any{b}
	default:
		return []any{b}
	}
}

// errorResponse builds the error envelope for a failed request.
func (e *Engine) errorResponse(req *Request, status int, message string) *Response {
	rawURL := ""
	if req.URL != nil {
		rawURL = req.URL.String()
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	return &Response{
		Status:  status,
		Headers: headers,
		Body: ErrorBody{
			URL:        rawURL,
			Status:     status,
			StatusText: http.StatusText(status),
			Headers:    req.Headers,
			Error:      message,
		},
	}
}

// wait holds the response for the configured simulated latency. The wait is
// a pure scheduling delay; request processing is already complete.
func (e *Engine) wait(ctx context.Context) {
	if e.cfg.Delay <= 0 {
		return
	}
	timer := time.NewTimer(e.cfg.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

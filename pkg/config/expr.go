package config

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/getmockd/restmock/pkg/route"
)

// exprCompiler compiles route expressions once and caches the programs.
// Definition files commonly repeat an expression across routes; the cache
// keeps startup linear in distinct expressions.
type exprCompiler struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

func newCompiler() *exprCompiler {
	return &exprCompiler{cache: make(map[string]*vm.Program)}
}

func (c *exprCompiler) compile(expression string) (*vm.Program, error) {
	c.mu.RLock()
	if program, ok := c.cache[expression]; ok {
		c.mu.RUnlock()
		return program, nil
	}
	c.mu.RUnlock()

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// Another goroutine may have compiled the same expression meanwhile.
	if existing, ok := c.cache[expression]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.cache[expression] = program
	c.mu.Unlock()

	return program, nil
}

// dataSource compiles a dataExpr into a DataSource. The expression must
// evaluate to a list of objects.
func (c *exprCompiler) dataSource(expression string) (route.DataSource, error) {
	program, err := c.compile(expression)
	if err != nil {
		return nil, err
	}
	return route.DataFunc(func(info route.RequestInfo) ([]map[string]any, error) {
		out, err := expr.Run(program, exprEnv(info, nil))
		if err != nil {
			return nil, fmt.Errorf("evaluating dataExpr: %w", err)
		}
		items, err := toItemList(out)
		if err != nil {
			return nil, fmt.Errorf("dataExpr result: %w", err)
		}
		return items, nil
	}), nil
}

// responseShaper compiles a responseExpr into a ResponseShaper. The
// expression's result replaces the response body as-is.
func (c *exprCompiler) responseShaper(expression string) (route.ResponseShaper, error) {
	program, err := c.compile(expression)
	if err != nil {
		return nil, err
	}
	return route.ShapeFunc(func(info route.ShapeInfo) (any, error) {
		out, err := expr.Run(program, exprEnv(info.RequestInfo, info.ResponseBody))
		if err != nil {
			return nil, fmt.Errorf("evaluating responseExpr: %w", err)
		}
		return out, nil
	}), nil
}

// exprEnv builds the evaluation environment for route expressions.
func exprEnv(info route.RequestInfo, responseBody any) map[string]any {
	query := map[string]any{}
	for key, values := range info.Query {
		if len(values) == 1 {
			query[key] = values[0]
		} else {
			query[key] = values
		}
	}
	headers := map[string]any{}
	for key, values := range info.Headers {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	return map[string]any{
		"items":        info.Items,
		"itemId":       info.ItemID,
		"method":       info.Method,
		"parents":      info.Parents,
		"query":        query,
		"body":         info.Body,
		"headers":      headers,
		"responseBody": responseBody,
	}
}

// toItemList coerces an expression result into the canonical item-list
// shape. Accepts a list of objects in either typed or untyped form.
func toItemList(out any) ([]map[string]any, error) {
	switch v := out.(type) {
	case nil:
		return nil, nil
	case []map[string]any:
		return v, nil
	case []any:
		items := make([]map[string]any, 0, len(v))
		for i, entry := range v {
			item, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, want object", i, entry)
			}
			items = append(items, item)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("got %T, want list of objects", out)
	}
}

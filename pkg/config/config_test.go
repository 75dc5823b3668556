package config

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/restmock/pkg/route"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mocks.yaml", `
server:
  port: 9090
engine:
  passThroughUnknownUrl: true
  responseDelayMs: 100
  postUpdate204: true
routes:
  - path: api/posts/:postId
    items:
      - postId: 1
        title: first
    children:
      - path: comments/:commentId
        dataExpr: '[{"commentId": 1}]'
`)

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, doc.Server.Port)
	assert.True(t, doc.Engine.PassThroughUnknownURL)
	require.NotNil(t, doc.Engine.ResponseDelayMs)
	assert.Equal(t, 100, *doc.Engine.ResponseDelayMs)
	assert.True(t, doc.Engine.Policy.Post204)
	require.Len(t, doc.Routes, 1)
	assert.Equal(t, "api/posts/:postId", doc.Routes[0].Path)
	require.Len(t, doc.Routes[0].Children, 1)
}

func TestLoad_ValidJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mocks.json", `{
		"routes": [{"path": "things/:id", "items": [{"id": 1}]}]
	}`)

	doc, err := Load(path)
	require.NoError(t, err)
	require.Len(t, doc.Routes, 1)
	assert.Equal(t, "things/:id", doc.Routes[0].Path)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("not found", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.yaml"))
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, dir, "empty.yaml", "")
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		path := writeFile(t, dir, "bad.json", "{not json")
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrInvalidJSON)
	})

	t.Run("invalid YAML", func(t *testing.T) {
		path := writeFile(t, dir, "bad.yaml", "routes:\n  - path: [")
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrInvalidYAML)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := Load(dir)
		assert.Error(t, err)
	})
}

func TestLoadDir_MergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", `
server:
  port: 7000
routes:
  - path: posts/:id
    items: []
`)
	writeFile(t, dir, "nested/b.json", `{
		"routes": [{"path": "users/:userId", "items": []}]
	}`)

	doc, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 7000, doc.Server.Port)
	require.Len(t, doc.Routes, 2)
	// Routes accumulate in lexical file order.
	assert.Equal(t, "posts/:id", doc.Routes[0].Path)
	assert.Equal(t, "users/:userId", doc.Routes[1].Path)
}

func TestLoadDir_NotFound(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestBuildRoutes_StaticItems(t *testing.T) {
	doc := &Document{Routes: []*RouteConfig{{
		Path:  "posts/:id",
		Items: []map[string]any{{"id": float64(1), "title": "seed"}},
	}}}

	routes, err := doc.BuildRoutes()
	require.NoError(t, err)
	require.Len(t, routes, 1)
	require.NotNil(t, routes[0].Data)

	items, err := routes[0].Data.Generate(route.RequestInfo{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	// Mutating the generated copy must not leak back into the seed.
	items[0]["title"] = "changed"
	again, err := routes[0].Data.Generate(route.RequestInfo{})
	require.NoError(t, err)
	assert.Equal(t, "seed", again[0]["title"])
}

func TestBuildRoutes_DataExpr(t *testing.T) {
	doc := &Document{Routes: []*RouteConfig{{
		Path:     "posts/:id",
		DataExpr: `[{"id": 1, "q": query.kind}]`,
	}}}

	routes, err := doc.BuildRoutes()
	require.NoError(t, err)

	items, err := routes[0].Data.Generate(route.RequestInfo{
		Query: url.Values{"kind": []string{"draft"}},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "draft", items[0]["q"])
}

func TestBuildRoutes_DataExprBadResult(t *testing.T) {
	doc := &Document{Routes: []*RouteConfig{{
		Path:     "posts/:id",
		DataExpr: `"not a list"`,
	}}}

	routes, err := doc.BuildRoutes()
	require.NoError(t, err)

	_, err = routes[0].Data.Generate(route.RequestInfo{})
	assert.Error(t, err)
}

func TestBuildRoutes_ResponseExpr(t *testing.T) {
	doc := &Document{Routes: []*RouteConfig{{
		Path:         "posts/:id",
		Items:        []map[string]any{},
		ResponseExpr: `{"data": responseBody, "via": headers["X-Via"]}`,
	}}}

	routes, err := doc.BuildRoutes()
	require.NoError(t, err)
	require.NotNil(t, routes[0].Shape)

	out, err := routes[0].Shape.Shape(route.ShapeInfo{
		RequestInfo:  route.RequestInfo{Headers: http.Header{"X-Via": []string{"test"}}},
		ResponseBody: []map[string]any{{"id": float64(1)}},
	})
	require.NoError(t, err)

	shaped, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "test", shaped["via"])
}

func TestBuildRoutes_InvalidExpr(t *testing.T) {
	doc := &Document{Routes: []*RouteConfig{{
		Path:     "posts/:id",
		DataExpr: `[unclosed`,
	}}}

	_, err := doc.BuildRoutes()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "posts/:id", verr.Path)
}

func TestBuildRoutes_ItemsAndExprExclusive(t *testing.T) {
	doc := &Document{Routes: []*RouteConfig{{
		Path:     "posts/:id",
		Items:    []map[string]any{},
		DataExpr: `[]`,
	}}}

	_, err := doc.BuildRoutes()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestToEngineConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := EngineSettings{}.ToEngineConfig()
		require.NoError(t, err)
		assert.Equal(t, 500*time.Millisecond, cfg.Delay)
		assert.False(t, cfg.CacheFromStorage)
	})

	t.Run("delay override", func(t *testing.T) {
		ms := 0
		cfg, err := EngineSettings{ResponseDelayMs: &ms}.ToEngineConfig()
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), cfg.Delay)
	})

	t.Run("storage dir", func(t *testing.T) {
		cfg, err := EngineSettings{StorageDir: t.TempDir()}.ToEngineConfig()
		require.NoError(t, err)
		assert.True(t, cfg.CacheFromStorage)
		assert.NotNil(t, cfg.Storage)
	})
}

func TestServerAddr(t *testing.T) {
	assert.Equal(t, ":8080", ServerConfig{}.Addr())
	assert.Equal(t, "127.0.0.1:9000", ServerConfig{Host: "127.0.0.1", Port: 9000}.Addr())
}

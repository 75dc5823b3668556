// Package config loads declarative mock definitions from JSON or YAML files
// and builds the runtime route tree from them. Routes declared in files can
// seed collections with static items or with expressions evaluated at
// population time.
package config

import (
	"strconv"
	"time"

	"github.com/getmockd/restmock/pkg/crud"
	"github.com/getmockd/restmock/pkg/engine"
	"github.com/getmockd/restmock/pkg/route"
	"github.com/getmockd/restmock/pkg/store"
)

// Document is the root of one mock definition file.
type Document struct {
	// Server configures the standalone HTTP server.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Engine holds engine-wide behavior settings.
	Engine EngineSettings `json:"engine,omitempty" yaml:"engine,omitempty"`

	// Routes are the declared mock resource roots.
	Routes []*RouteConfig `json:"routes" yaml:"routes"`
}

// ServerConfig configures the standalone server surface.
type ServerConfig struct {
	// Host is the listen address. Empty binds all interfaces.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the listen port. Defaults to 8080.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	port := s.Port
	if port == 0 {
		port = 8080
	}
	return s.Host + ":" + strconv.Itoa(port)
}

// EngineSettings mirrors engine.Config in file form. Durations are plain
// millisecond integers so definitions stay language-neutral.
type EngineSettings struct {
	PassThroughUnknownURL bool   `json:"passThroughUnknownUrl,omitempty" yaml:"passThroughUnknownUrl,omitempty"`
	CacheFromStorage      bool   `json:"cacheFromExternalStorage,omitempty" yaml:"cacheFromExternalStorage,omitempty"`
	StorageKey            string `json:"externalStorageKey,omitempty" yaml:"externalStorageKey,omitempty"`

	// StorageDir enables file-backed persistence in the given directory.
	StorageDir string `json:"storageDir,omitempty" yaml:"storageDir,omitempty"`

	// ResponseDelayMs is the simulated latency in milliseconds. Omitted
	// selects the engine default; zero disables the delay.
	ResponseDelayMs *int `json:"responseDelayMs,omitempty" yaml:"responseDelayMs,omitempty"`

	crud.Policy `yaml:",inline"`
}

// ToEngineConfig converts the file-form settings into an engine.Config.
func (s EngineSettings) ToEngineConfig() (engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.PassThroughUnknownURL = s.PassThroughUnknownURL
	cfg.CacheFromStorage = s.CacheFromStorage
	cfg.Policy = s.Policy
	if s.StorageKey != "" {
		cfg.StorageKey = s.StorageKey
	}
	if s.ResponseDelayMs != nil {
		cfg.Delay = time.Duration(*s.ResponseDelayMs) * time.Millisecond
	}
	if s.StorageDir != "" {
		storage, err := store.NewFileStorage(s.StorageDir)
		if err != nil {
			return engine.Config{}, err
		}
		cfg.Storage = storage
		cfg.CacheFromStorage = true
	}
	return cfg, nil
}

// RouteConfig is the file form of one route node. Data and response shaping
// are declared as expressions instead of Go callbacks.
type RouteConfig struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Path string `json:"path" yaml:"path"`

	// Items statically seeds the collection.
	Items []map[string]any `json:"items,omitempty" yaml:"items,omitempty"`

	// DataExpr is an expression producing the item list on first access.
	// It sees the request context (method, itemId, parents, query, body,
	// headers). Mutually exclusive with Items.
	DataExpr string `json:"dataExpr,omitempty" yaml:"dataExpr,omitempty"`

	// ResponseExpr is an expression rewriting the outgoing body. It sees
	// the request context plus responseBody.
	ResponseExpr string `json:"responseExpr,omitempty" yaml:"responseExpr,omitempty"`

	PropertiesForList []string `json:"propertiesForList,omitempty" yaml:"propertiesForList,omitempty"`
	IgnorePersistence bool     `json:"ignorePersistence,omitempty" yaml:"ignorePersistence,omitempty"`

	Children []*RouteConfig `json:"children,omitempty" yaml:"children,omitempty"`
}

// BuildRoutes compiles the document's route declarations into the runtime
// tree. Expression compilation errors surface here, before the engine
// starts.
func (d *Document) BuildRoutes() ([]*route.Route, error) {
	compiler := newCompiler()
	routes := make([]*route.Route, 0, len(d.Routes))
	for _, rc := range d.Routes {
		rt, err := rc.build(compiler)
		if err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}
	return routes, nil
}

func (rc *RouteConfig) build(compiler *exprCompiler) (*route.Route, error) {
	rt := &route.Route{
		Host:              rc.Host,
		Path:              rc.Path,
		PropertiesForList: rc.PropertiesForList,
		IgnorePersistence: rc.IgnorePersistence,
	}

	switch {
	case rc.Items != nil && rc.DataExpr != "":
		return nil, &ValidationError{Path: rc.Path, Message: "items and dataExpr are mutually exclusive"}
	case rc.Items != nil:
		rt.Data = staticData(rc.Items)
	case rc.DataExpr != "":
		data, err := compiler.dataSource(rc.DataExpr)
		if err != nil {
			return nil, &ValidationError{Path: rc.Path, Message: "invalid dataExpr", Err: err}
		}
		rt.Data = data
	}

	if rc.ResponseExpr != "" {
		shape, err := compiler.responseShaper(rc.ResponseExpr)
		if err != nil {
			return nil, &ValidationError{Path: rc.Path, Message: "invalid responseExpr", Err: err}
		}
		rt.Shape = shape
	}

	for _, child := range rc.Children {
		built, err := child.build(compiler)
		if err != nil {
			return nil, err
		}
		rt.Children = append(rt.Children, built)
	}
	return rt, nil
}

// staticData returns a DataSource handing out deep copies of the declared
// items, so file-declared seeds are never mutated by CRUD traffic.
func staticData(items []map[string]any) route.DataSource {
	return route.DataFunc(func(route.RequestInfo) ([]map[string]any, error) {
		return store.CloneItems(items), nil
	})
}

// ValidationError reports an invalid route declaration in a definition file.
type ValidationError struct {
	Path    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return "route " + e.Path + ": " + e.Message + ": " + e.Err.Error()
	}
	return "route " + e.Path + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Common errors for definition loading.
var (
	ErrFileNotFound     = errors.New("definition file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("definition file is empty")
)

// Load reads a Document from a JSON or YAML file. The format is detected
// from the extension (.yaml/.yml for YAML, otherwise JSON).
func Load(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return ParseYAML(data)
	}
	return ParseJSON(data)
}

// ParseJSON decodes a Document from JSON bytes.
func ParseJSON(data []byte) (*Document, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return &doc, nil
}

// ParseYAML decodes a Document from YAML bytes.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &doc, nil
}

// LoadGlob loads and merges every definition file matching the glob
// pattern, in lexical path order. Supports ** for recursive matching.
// Routes accumulate across files; server and engine settings come from the
// first file declaring them.
func LoadGlob(pattern string) (*Document, error) {
	matches, err := expandGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("expanding glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no files match %s", ErrFileNotFound, pattern)
	}
	sort.Strings(matches)

	merged := &Document{}
	haveServer, haveEngine := false, false
	for _, match := range matches {
		doc, err := Load(match)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", match, err)
		}
		merged.Routes = append(merged.Routes, doc.Routes...)
		if !haveServer && doc.Server != (ServerConfig{}) {
			merged.Server = doc.Server
			haveServer = true
		}
		if !haveEngine && !isZeroEngine(doc.Engine) {
			merged.Engine = doc.Engine
			haveEngine = true
		}
	}
	return merged, nil
}

// LoadDir loads every .json, .yaml, and .yml file under dir, recursively.
func LoadDir(dir string) (*Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, dir)
		}
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}
	return LoadGlob(filepath.Join(dir, "**", "*.{json,yaml,yml}"))
}

// expandGlob expands a glob pattern, using doublestar when the pattern
// needs ** or brace support.
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") || strings.Contains(pattern, "{") {
		return doublestar.FilepathGlob(pattern)
	}
	return filepath.Glob(pattern)
}

func isZeroEngine(s EngineSettings) bool {
	return !s.PassThroughUnknownURL && !s.CacheFromStorage &&
		s.StorageKey == "" && s.StorageDir == "" && s.ResponseDelayMs == nil &&
		!s.Policy.Post204 && !s.Policy.Post409 && !s.Policy.Put204 &&
		!s.Policy.Put404 && !s.Policy.Patch204 && !s.Policy.Delete404
}

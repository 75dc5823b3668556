package route

import (
	"fmt"
	"strings"
)

// ValidationError reports an invalid route declaration. It is fatal at
// startup: the engine refuses to serve any request from an invalid tree.
type ValidationError struct {
	Route   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Route != "" {
		return fmt.Sprintf("invalid route %q: %s", e.Route, e.Message)
	}
	return "invalid route configuration: " + e.Message
}

// Validate checks a declared route tree. It fails on the first violation:
//   - a path that is empty, begins with a separator, or ends with one
//   - a node with children but no data callback or no primary-key-terminated path
//   - a data callback on a path not ending in a primary-key token, or vice versa
//   - a root host ending with a separator
//   - two roots resolving to the same (host, root-segment) pair
func Validate(routes []*Route) error {
	if len(routes) == 0 {
		return &ValidationError{Message: "at least one root route is required"}
	}

	seen := make(map[string]int, len(routes))
	for i, root := range routes {
		if root == nil {
			return &ValidationError{Message: fmt.Sprintf("root route %d is nil", i)}
		}
		if strings.HasSuffix(root.Host, Separator) {
			return &ValidationError{Route: root.Path, Message: "host must not end with a separator"}
		}
		if err := validateNode(root, root.Path); err != nil {
			return err
		}

		key := joinPath(root.Host, prefixBeforeParam(root.Path))
		if prev, dup := seen[key]; dup {
			return &ValidationError{
				Route:   root.Path,
				Message: fmt.Sprintf("duplicate root %q (also declared by root route %d)", key, prev),
			}
		}
		seen[key] = i
	}
	return nil
}

func validateNode(node *Route, location string) error {
	if node.Path == "" {
		return &ValidationError{Route: location, Message: "path must not be empty"}
	}
	if strings.HasPrefix(node.Path, Separator) {
		return &ValidationError{Route: location, Message: "path must be relative (no leading separator)"}
	}
	if strings.HasSuffix(node.Path, Separator) {
		return &ValidationError{Route: location, Message: "path must not end with a separator"}
	}

	hasKey := endsInParam(node.Path)
	hasData := node.Data != nil
	if hasData && !hasKey {
		return &ValidationError{Route: location, Message: "data callback requires a path ending in a primary-key token"}
	}
	if hasKey && !hasData {
		return &ValidationError{Route: location, Message: "path ends in a primary-key token but has no data callback"}
	}
	if len(node.Children) > 0 && !hasData {
		return &ValidationError{Route: location, Message: "a route with children must have a data callback and a primary-key-terminated path"}
	}

	for i, child := range node.Children {
		if child == nil {
			return &ValidationError{Route: location, Message: fmt.Sprintf("child route %d is nil", i)}
		}
		if child.Host != "" {
			return &ValidationError{Route: location + Separator + child.Path, Message: "host is only allowed on root routes"}
		}
		if err := validateNode(child, location+Separator+child.Path); err != nil {
			return err
		}
	}
	return nil
}

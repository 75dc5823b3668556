package route

import "strings"

// Link is one element of a resolved resource chain: the collection cache key
// (a URL prefix, never including a trailing item id), the owning route node,
// the primary-key name, and the id bound from the URL, if any.
type Link struct {
	CacheKey   string
	Route      *Route
	PrimaryKey string
	ResourceID string
}

// Resolve derives the ordered resource chain from one dry-match candidate.
// Each primary-key token binds the aligned URL segment and consumes the next
// route node in the candidate's chain; literal segments are accumulated and
// confirmed against each other at the end. Returns false when the candidate
// does not hold up (literal mismatch or a malformed chain).
func Resolve(c Candidate) ([]Link, bool) {
	links := make([]Link, 0, len(c.Chain))
	var urlLiteral, routeLiteral []string
	next := 0

	for i, seg := range c.SplitRoute {
		if !isParam(seg) {
			if i < len(c.SplitURL) {
				urlLiteral = append(urlLiteral, c.SplitURL[i])
			}
			routeLiteral = append(routeLiteral, seg)
			continue
		}

		if next >= len(c.Chain) {
			return nil, false
		}
		link := Link{Route: c.Chain[next], PrimaryKey: paramName(seg)}
		next++
		if i < len(c.SplitURL) {
			link.ResourceID = c.SplitURL[i]
			link.CacheKey = strings.Join(c.SplitURL[:i], Separator)
		} else {
			// Trailing key token with no URL segment: the full URL names
			// the collection itself.
			link.CacheKey = strings.Join(c.SplitURL, Separator)
		}
		links = append(links, link)
	}

	// A route path not terminated by a key token leaves its node unconsumed;
	// the full URL addresses that node's collection.
	if next == len(c.Chain)-1 && !c.HasTrailingID && c.TrailingKey == "" {
		links = append(links, Link{
			CacheKey: strings.Join(c.SplitURL, Separator),
			Route:    c.Chain[next],
		})
		next++
	}
	if next != len(c.Chain) {
		return nil, false
	}

	if strings.Join(urlLiteral, Separator) != strings.Join(routeLiteral, Separator) {
		return nil, false
	}
	return links, true
}

// Registry holds a validated route tree with its derived indexes. Construct
// once at startup; immutable afterwards.
type Registry struct {
	roots []*Route
	index []RootEntry
}

// NewRegistry validates the declared roots and builds the root index.
func NewRegistry(routes []*Route) (*Registry, error) {
	if err := Validate(routes); err != nil {
		return nil, err
	}
	return &Registry{roots: routes, index: BuildRootIndex(routes)}, nil
}

// Roots returns the declared root routes.
func (r *Registry) Roots() []*Route { return r.roots }

// Index returns the derived root-path table, longest prefix first.
func (r *Registry) Index() []RootEntry { return r.index }

// Match runs the full pipeline for one request URL: root lookup, dry match,
// then chain resolution. Candidates are evaluated in emission order and the
// first one that resolves wins. Returns false when no root or no candidate
// matches.
func (r *Registry) Match(host, path string) ([]Link, bool) {
	trimmed := strings.Trim(path, Separator)
	pos := FindRoot(r.index, joinPath(host, trimmed), trimmed)
	if pos < 0 {
		return nil, false
	}

	entry := r.index[pos]
	root := r.roots[entry.Index]
	url := trimmed
	if entry.Hosted {
		url = joinPath(host, trimmed)
	}

	for _, candidate := range DryMatch(url, root) {
		if links, ok := Resolve(candidate); ok {
			return links, true
		}
	}
	return nil, false
}

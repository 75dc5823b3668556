package route

import "strings"

// Candidate is one plausible alignment of a URL's segments with a route
// path's segments, produced before primary-key bindings are checked against
// literal segments.
type Candidate struct {
	// SplitURL is the URL split on the separator.
	SplitURL []string
	// SplitRoute is the accumulated route path split on the separator.
	SplitRoute []string
	// Chain is the route nodes consumed to reach this alignment, root first.
	Chain []*Route
	// HasTrailingID is true when the URL's last segment binds the route's
	// final primary-key token (the URL addresses a specific item).
	HasTrailingID bool
	// TrailingKey is the primary-key name of the route's final token, when
	// the route path ends in one.
	TrailingKey string
}

// DryMatch recursively walks the route tree below the matched root and emits
// every segment-count alignment of the URL with an accumulated route path.
// The url must be in canonical form (see NormalizeURL); for hosted roots it
// includes the host, which then also heads the accumulated route path so the
// two sides stay segment-aligned.
func DryMatch(url string, root *Route) []Candidate {
	return dryMatch(strings.Split(url, Separator), joinPath(root.Host, root.Path), root, nil)
}

func dryMatch(splitURL []string, accum string, node *Route, ancestors []*Route) []Candidate {
	chain := make([]*Route, 0, len(ancestors)+1)
	chain = append(chain, ancestors...)
	chain = append(chain, node)

	splitRoute := strings.Split(accum, Separator)
	countURL, countRoute := len(splitURL), len(splitRoute)

	switch {
	case countURL > countRoute:
		// URL is deeper than this node: only the children can match.
		var out []Candidate
		for _, child := range node.Children {
			out = append(out, dryMatch(splitURL, accum+Separator+child.Path, child, chain)...)
		}
		return out

	case countURL < countRoute-1:
		return nil

	case countURL == countRoute-1:
		// URL addresses the collection one level above the final primary
		// key, so the route's last segment must itself be a key token.
		last := splitRoute[countRoute-1]
		if !isParam(last) {
			return nil
		}
		return []Candidate{{
			SplitURL:    splitURL,
			SplitRoute:  splitRoute,
			Chain:       chain,
			TrailingKey: paramName(last),
		}}

	default: // countURL == countRoute
		c := Candidate{SplitURL: splitURL, SplitRoute: splitRoute, Chain: chain}
		if last := splitRoute[countRoute-1]; isParam(last) {
			c.HasTrailingID = true
			c.TrailingKey = paramName(last)
		}
		return []Candidate{c}
	}
}

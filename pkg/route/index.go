package route

import "sort"

// RootEntry is one row of the flattened root-path table: the resolved
// host + root-segment string with its primary-key suffix stripped, its
// length, and the position of the owning root route.
type RootEntry struct {
	Path   string
	Length int
	Index  int
	Hosted bool
}

// BuildRootIndex derives the root-path table from the declared roots, sorted
// by descending length. Longest-prefix-first ordering keeps a shorter root
// (e.g. "posts") from claiming a URL that belongs to a longer root sharing
// the same leading characters (e.g. "posts-other/123").
func BuildRootIndex(routes []*Route) []RootEntry {
	entries := make([]RootEntry, 0, len(routes))
	for i, root := range routes {
		path := joinPath(root.Host, prefixBeforeParam(root.Path))
		entries = append(entries, RootEntry{
			Path:   path,
			Length: len(path),
			Index:  i,
			Hosted: root.Host != "",
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Length > entries[j].Length
	})
	return entries
}

// FindRoot scans the sorted index for the root owning the given URL.
// hostURL is the host-qualified form ("example.com/api/posts/1"), pathURL the
// bare-path form; hosted entries match against the former, host-less entries
// against the latter. Returns the entry position, or -1 when no root matches.
func FindRoot(index []RootEntry, hostURL, pathURL string) int {
	for i, entry := range index {
		candidate := pathURL
		if entry.Hosted {
			candidate = hostURL
		}
		if matchesRoot(candidate, entry) {
			return i
		}
	}
	return -1
}

// matchesRoot applies the truncate-to-length+1 rule: the URL must equal the
// root path exactly or continue it with a separator. The extra character
// guards against root "posts" prefix-matching "posts-other/...".
func matchesRoot(url string, entry RootEntry) bool {
	if len(url) < entry.Length || url[:entry.Length] != entry.Path {
		return false
	}
	return len(url) == entry.Length || url[entry.Length] == Separator[0]
}

// Package store holds the per-collection mock datasets: a writable canonical
// item list per cache key plus a derived read-only projection, lazily
// populated from a route's data callback and optionally synchronized to an
// external key-value storage backend.
package store

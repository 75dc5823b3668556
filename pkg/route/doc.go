// Package route implements the declarative resource-route tree and the
// matching pipeline that decomposes a flat URL into a chain of nested
// resource collections and primary-key bindings.
//
// A route tree is validated once at startup. From the validated tree the
// registry derives a flattened root index (longest prefix first) and, per
// request, performs a recursive dry match of URL segments against route
// segments followed by chain resolution that binds primary keys and computes
// per-collection cache keys.
package route

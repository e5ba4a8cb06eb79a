// Package stores provides the Redis-backed single-use token store.
//
// # Design
//
// Tokens are random nonces; the key is the token (or a key derived from it by
// the caller) and the value is a small payload with a TTL. Every read that
// must not be repeated is a Lua script acting on one key: read-then-delete,
// reuse-or-create, and compare-and-delete. There is no "used" flag; deletion
// is the only replay protection.
//
// # Architecture boundaries
//
// This package owns persistence of transient tokens. It does NOT throttle,
// format tokens for humans, deliver messages, or decide what an expired token
// means to a caller. Those belong to internal/flows.
//
// # What this package must NOT do
//
//   - Import goStudyAuth or any sibling internal package other than internal.
//   - Log token values.
package stores

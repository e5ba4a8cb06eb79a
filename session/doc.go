// Package session provides the assembled [Session] model and its
// Redis-backed [Store].
//
// # Storage layout
//
// A session is stored as JSON under "<sessionToken>:session". A second key,
// "<userId>:session:user", holds the token of the user's current session so
// that a user's session can be found or revoked without knowing its token.
// Both keys share one TTL.
//
// # Architecture boundaries
//
// This package owns persistence and consent helpers on the model. It does
// NOT compute consent statuses or decide whether a session requires consent
// action; those belong to the engine.
//
// # What this package must NOT do
//
//   - Import goStudyAuth (no upward imports).
//   - Persist reauthentication tokens.
package session

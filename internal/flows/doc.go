// Package flows contains the orchestrators behind every Engine operation.
//
// Each flow function (RunRequestVerification, RunRequestPasswordReset,
// RunAuthenticateWithPassword, RunAssembleSession, ...) accepts a typed
// dependency struct and touches the outside world only through it. Channel
// specific behaviour (templates, cache keys, token formats) comes from one
// table in channel.go, so email and phone share every flow.
//
// # Architecture boundaries
//
// Flows coordinate the token store, throttle, equalizers, notification
// dispatcher, account directory and session store. They do NOT own any of
// these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goStudyAuth (to avoid import cycles).
//   - Report throttling or unknown identifiers to callers of request flows.
package flows

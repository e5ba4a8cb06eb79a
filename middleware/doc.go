// Package middleware exposes HTTP middleware that resolves studyauth
// sessions and enforces consent and role requirements on routes.
//
// # Guards
//
//   - [RequireSession] loads the session named by the request header and
//     rejects requests without one.
//   - [RequireConsent] rejects sessions missing a required consent.
//   - [RequireRole] rejects sessions without one of the listed roles.
//   - [ClientContext] copies the caller IP and tenant onto the request
//     context for audit events.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not
// read Redis or build sessions itself; every decision about a session token
// is delegated to Engine.GetSession.
package middleware

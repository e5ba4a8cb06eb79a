// Package goStudyAuth verifies participant credentials for multi-study
// research platforms: email and phone verification, password resets,
// passwordless sign-in, password sign-in with failure limiting, and
// consent-aware session assembly.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goStudyAuth is the public surface. It exposes [Engine], [Builder], [Config]
// and value types (AuthResult, MetricsSnapshot, SecurityReport). Flow
// orchestration, token storage, throttling, timing equalization and audit
// dispatch live under internal/ and are never exported. Accounts are owned by
// the caller's [AccountDirectory]; the engine only reads them and writes back
// verification flags, hashes and adopted languages.
//
// # What this package must NOT do
//
//   - Reveal through errors or return values whether an email or phone
//     number belongs to an account on request paths.
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Import any sub-package that re-imports goStudyAuth (no import cycles).
//
// # Performance contract
//
// Every token operation is one atomic Redis round-trip. Request paths that
// find no account wait out the equalizer estimate of the real path instead of
// returning early.
package goStudyAuth

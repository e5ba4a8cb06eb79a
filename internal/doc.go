// Package internal contains helpers private to goStudyAuth, mainly secure
// random token and code generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: orchestrators for every Engine operation
//   - limiters: channel throttle and password sign-in failure limiter
//   - logger: zap construction and context helpers
//   - rate: atomic fixed-window counter shared by the limiters
//   - stores: single-use token store and single-key cache primitives
//   - timing: latency equalizer for account-not-found branches
//
// # What this package must NOT do
//
//   - Export types that appear in the public goStudyAuth API.
//   - Be imported by any package outside the goStudyAuth module.
package internal

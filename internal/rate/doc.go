// Package rate provides the Redis fixed-window counter that every limiter in
// the module is built on.
//
// # Window semantics
//
// One Lua script per hit: INCR, then PEXPIRE only when the counter was just
// created. The window therefore closes a fixed time after its first hit no
// matter how many hits follow.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/limiters).
//   - Be imported outside the goStudyAuth module.
package rate

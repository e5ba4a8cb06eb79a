// Package limiters provides the domain limiters built on the internal/rate
// fixed-window counter.
//
// # Limiters
//
//   - [ChannelThrottle]: per (action, subject) budget for outbound
//     verification, reset, and sign-in messages. Answers a boolean; callers
//     turn a throttled request into a silent no-op.
//   - [SignInLimiter]: per-identifier password failure budget.
//
// All limiters are nil-safe: calling any method on a nil receiver admits the
// request.
//
// # What this package must NOT do
//
//   - Import goStudyAuth or any sibling internal package except internal/rate.
//   - Decide what a throttled caller sees; flow functions own that.
package limiters

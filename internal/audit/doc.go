// Package audit implements async event dispatching for sign-in, verification
// and password reset outcomes.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: single-goroutine relay that either drops or waits when its buffer is full; it counts lost events and survives a panicking sink.
//   - [Event]: structured audit record with a ULID, timestamp, type, user, tenant and metadata.
//
// # What this package must NOT do
//
//   - Decide which events to emit. The engine and flows do that.
//   - Import goStudyAuth or any sibling internal package.
//   - Record contact identifiers such as emails or phone numbers.
package audit

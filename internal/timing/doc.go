// Package timing equalizes the observable latency of account-not-found
// branches with the latency of the real branch they stand in for.
//
// One [Equalizer] exists per guarded operation. Request handlers feed it
// in-line after every completed real execution; nothing runs in the
// background.
package timing

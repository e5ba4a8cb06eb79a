// Package logger builds zap loggers and carries them through contexts.
//
// Identifiers a caller could use to probe for accounts (emails, phone
// numbers) are never passed to these helpers; only tenant ids, user ids
// and outcome labels are.
package logger

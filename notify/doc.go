// Package notify delivers the email and SMS messages that carry
// verification, reset and sign-in tokens.
//
// The engine only builds a template key and a variable map. A [Router]
// renders ${name} placeholders from [Templates] and passes the result to an
// [SMTPSender], an [SNSSender], or any other transport.
package notify

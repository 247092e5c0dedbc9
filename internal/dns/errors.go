// Package dns implements the minimal DNS wire codec served by the host's DNS
// server (RFC 1035).
//
// Only what an authoritative A-record responder needs is covered: the
// 12-byte header, a single question, an A answer and an NXDOMAIN reply.
// Names are encoded and decoded without compression pointers.
//
// Error Handling:
//
// Undersized queries fail with an errs.KindMalformedMessage error so that the
// receive loop drops them silently. Encoding failures wrap ErrDNSError.
package dns

import "errors"

var (
	// ErrDNSError is the sentinel for names that cannot be encoded.
	// Wrap this with fmt.Errorf("context: %w", ErrDNSError) to add context.
	ErrDNSError = errors.New("dns wire error")
)

// Package ircerr gives the conceptual error kinds of spec §7 concrete Go
// types so callers can branch on them with errors.As/errors.Is instead of
// string matching, following the teacher's errPingTimeout/warnTruncate
// sentinel-error idiom generalized to a small typed hierarchy.
package ircerr

import "fmt"

// Kind classifies an engine error for reconnect/backoff and display
// routing purposes (spec §7).
type Kind int

const (
	// KindConfig covers bad user input: invalid URL, unknown option value,
	// out-of-range number. Local, reported, no state change.
	KindConfig Kind = iota
	// KindResolve is a DNS failure in the connection worker.
	KindResolve
	// KindProxy is a SOCKS/HTTP proxy handshake failure.
	KindProxy
	// KindConnect is a TCP connect failure.
	KindConnect
	// KindTLS is a TLS handshake or fingerprint-verification failure.
	KindTLS
	// KindAuth is a SASL or PASS authentication failure.
	KindAuth
	// KindProtocol is a malformed inbound frame or unexpected numeric; the
	// connection is preserved.
	KindProtocol
	// KindTransport is a short read/write failure on an otherwise-ready
	// socket; causes immediate disconnect with reconnect.
	KindTransport
	// KindResource is local resource exhaustion (OOM, fd limits) during send.
	KindResource
	// KindScript is a hook callback failure or timeout, isolated to that hook.
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindResolve:
		return "resolve"
	case KindProxy:
		return "proxy"
	case KindConnect:
		return "connect"
	case KindTLS:
		return "tls"
	case KindAuth:
		return "auth"
	case KindProtocol:
		return "protocol"
	case KindTransport:
		return "transport"
	case KindResource:
		return "resource"
	case KindScript:
		return "script"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so the server state machine
// can decide on reconnection policy without parsing strings.
type Error struct {
	Kind   Kind
	Server string
	Err    error
}

func (e *Error) Error() string {
	if e.Server != "" {
		return fmt.Sprintf("ircengine: %s: %s: %v", e.Server, e.Kind, e.Err)
	}
	return fmt.Sprintf("ircengine: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error of the given kind for server, wrapping err.
func New(kind Kind, server string, err error) *Error {
	return &Error{Kind: kind, Server: server, Err: err}
}

// Reconnectable reports whether an error of this kind should trigger the
// server state machine's reconnect scheduling per spec §4.10/§7.
func (k Kind) Reconnectable() bool {
	switch k {
	case KindResolve, KindProxy, KindConnect, KindTLS, KindAuth, KindTransport, KindResource:
		return true
	default:
		return false
	}
}

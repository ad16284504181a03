// Package connworker implements the parent-side half of the connection
// worker described in spec §4.9: it spawns the cmd/ircengine-worker
// subprocess, hands it a dial request, and relays the resulting
// connection back over stdio pipes so a slow resolver or proxy handshake
// never blocks the main loop. TLS handshake and certificate-fingerprint
// verification happen here, parent-side, once the worker reports success.
package connworker

import "time"

// Status is the single status byte the worker subprocess writes as the
// first byte of its stdout, per spec §4.9.
type Status byte

const (
	StatusOK                  Status = '0'
	StatusAddressNotFound     Status = '1'
	StatusFamilyMismatch      Status = '2'
	StatusConnectionRefused   Status = '3'
	StatusProxyAuthFailed     Status = '4'
	StatusLocalBindFailed     Status = '5'
)

// String renders a human-readable description of a status byte, used in
// user-visible error lines.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "connected"
	case StatusAddressNotFound:
		return "address not found"
	case StatusFamilyMismatch:
		return "IP family mismatch"
	case StatusConnectionRefused:
		return "connection refused"
	case StatusProxyAuthFailed:
		return "proxy authentication failure"
	case StatusLocalBindFailed:
		return "local hostname/bind failure"
	default:
		return "unknown worker status"
	}
}

// ProxyType names the supported proxy transports of spec §4.9.
type ProxyType string

const (
	ProxyNone   ProxyType = ""
	ProxySOCKS4 ProxyType = "socks4"
	ProxySOCKS5 ProxyType = "socks5"
	ProxyHTTP   ProxyType = "http"
)

// ProxyConfig describes an optional proxy hop the worker dials through
// before reaching Address.
type ProxyConfig struct {
	Type     ProxyType `json:"type,omitempty"`
	Address  string    `json:"address,omitempty"`
	Username string    `json:"username,omitempty"`
	Password string    `json:"password,omitempty"`
}

// Family constrains which IP address family the worker's DNS resolution
// must prefer, per spec §4.9's v4/v6 resolution requirement.
type Family string

const (
	FamilyAny Family = ""
	FamilyV4  Family = "ipv4"
	FamilyV6  Family = "ipv6"
)

// WorkRequest is the single control line the parent writes to the
// worker's stdin before any relayed wire bytes, encoded as one JSON
// object followed by a newline. JSON is used only for this internal,
// single-line IPC control message — never for IRC wire data — so no
// domain codec is warranted; see DESIGN.md.
type WorkRequest struct {
	Network string       `json:"network"` // "tcp", "tcp4", or "tcp6"
	Address string       `json:"address"` // host:port
	Family  Family       `json:"family,omitempty"`
	Proxy   *ProxyConfig `json:"proxy,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

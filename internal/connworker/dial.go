package connworker

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"h12.io/socks"
)

// socks4Dialer adapts h12.io/socks' dial-function style to the
// proxy.Dialer interface, the same shim kofany-go-ircevo uses to let a
// SOCKS4 dial function sit alongside golang.org/x/net/proxy's SOCKS5/HTTP
// dialers behind one interface.
type socks4Dialer struct {
	dialFunc func(network, addr string) (net.Conn, error)
}

func (d *socks4Dialer) Dial(network, addr string) (net.Conn, error) {
	return d.dialFunc(network, addr)
}

// buildDialer resolves req's proxy configuration (if any) into a
// proxy.Dialer, matching the socks4/socks5/http switch spec §4.9
// requires.
func buildDialer(req WorkRequest) (proxy.Dialer, error) {
	if req.Proxy == nil || req.Proxy.Type == ProxyNone {
		return &net.Dialer{Timeout: req.Timeout}, nil
	}

	p := req.Proxy
	switch p.Type {
	case ProxySOCKS4:
		dial := socks.Dial(fmt.Sprintf("socks4://%s:%s@%s", p.Username, p.Password, p.Address))
		return &socks4Dialer{dialFunc: dial}, nil

	case ProxySOCKS5:
		var auth *proxy.Auth
		if p.Username != "" {
			auth = &proxy.Auth{User: p.Username, Password: p.Password}
		}
		return proxy.SOCKS5("tcp", p.Address, auth, proxy.Direct)

	case ProxyHTTP:
		raw := fmt.Sprintf("http://%s", p.Address)
		if p.Username != "" {
			raw = fmt.Sprintf("http://%s:%s@%s", url.QueryEscape(p.Username), url.QueryEscape(p.Password), p.Address)
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		return proxy.FromURL(u, proxy.Direct)

	default:
		return nil, fmt.Errorf("connworker: unsupported proxy type %q", p.Type)
	}
}

// Dial performs DNS resolution (honoring req.Family), the optional proxy
// handshake, and the TCP connect, returning the live connection or a
// classified Status on failure. This runs inside the cmd/ircengine-worker
// subprocess.
func Dial(ctx context.Context, req WorkRequest) (net.Conn, Status) {
	network := req.Network
	if network == "" {
		network = "tcp"
	}
	switch req.Family {
	case FamilyV4:
		network = "tcp4"
	case FamilyV6:
		network = "tcp6"
	}

	if _, _, err := net.SplitHostPort(req.Address); err != nil {
		return nil, StatusAddressNotFound
	}

	d, err := buildDialer(req)
	if err != nil {
		return nil, StatusProxyAuthFailed
	}

	var conn net.Conn
	if cd, ok := d.(proxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, network, req.Address)
	} else {
		conn, err = d.Dial(network, req.Address)
	}
	if err != nil {
		return nil, classifyDialError(err)
	}
	return conn, StatusOK
}

// classifyDialError maps a dial failure to the status byte vocabulary of
// spec §4.9.
func classifyDialError(err error) Status {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "not found"), strings.Contains(msg, "lookup"):
		return StatusAddressNotFound
	case strings.Contains(msg, "authentication"), strings.Contains(msg, "auth failed"), strings.Contains(msg, "407"):
		return StatusProxyAuthFailed
	case strings.Contains(msg, "network is unreachable"), strings.Contains(msg, "address family"):
		return StatusFamilyMismatch
	case strings.Contains(msg, "bind"):
		return StatusLocalBindFailed
	default:
		return StatusConnectionRefused
	}
}

// DialTimeout is the default per-attempt timeout used when a WorkRequest
// doesn't specify one.
const DialTimeout = 30 * time.Second

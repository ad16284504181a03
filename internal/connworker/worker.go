package connworker

import (
	"bufio"
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/weechat/ircengine/ircerr"
)

// Result is the outcome of a successful Spawn: a live connection plus the
// worker's underlying process, kept so the caller can wait on exit.
type Result struct {
	Conn net.Conn
	cmd  *exec.Cmd
}

// Close tears down both the relayed connection and the worker process.
func (r *Result) Close() error {
	err := r.Conn.Close()
	if r.cmd != nil && r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	return err
}

// Spawn launches workerPath as a subprocess, sends it req as a single
// control line, and returns a net.Conn relaying bytes through the
// subprocess's stdin/stdout once it reports success. Per spec §4.9 this
// keeps DNS resolution, proxy handshake, and TCP connect off the main
// loop: a slow resolver blocks only the child.
func Spawn(ctx context.Context, workerPath, serverName string, req WorkRequest) (*Result, error) {
	cmd := exec.CommandContext(ctx, workerPath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("connworker: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("connworker: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, ircerr.New(ircerr.KindConnect, serverName, fmt.Errorf("connworker: start worker: %w", err))
	}

	enc := json.NewEncoder(stdin)
	if err := enc.Encode(req); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("connworker: send work request: %w", err)
	}

	statusByte := make([]byte, 1)
	if _, err := io.ReadFull(stdout, statusByte); err != nil {
		_ = cmd.Process.Kill()
		return nil, ircerr.New(ircerr.KindConnect, serverName, fmt.Errorf("connworker: read status: %w", err))
	}

	status := Status(statusByte[0])
	if status != StatusOK {
		_ = cmd.Process.Kill()
		return nil, ircerr.New(statusKind(status), serverName, fmt.Errorf("connworker: %s", status))
	}

	conn := &relayConn{r: bufio.NewReader(stdout), w: stdin}
	return &Result{Conn: conn, cmd: cmd}, nil
}

// statusKind maps a worker status byte to the closest ircerr.Kind for
// reconnect-policy purposes.
func statusKind(s Status) ircerr.Kind {
	switch s {
	case StatusAddressNotFound:
		return ircerr.KindResolve
	case StatusProxyAuthFailed:
		return ircerr.KindProxy
	default:
		return ircerr.KindConnect
	}
}

// relayConn adapts a subprocess's stdin (write side, carrying outbound
// wire bytes) and stdout (read side, carrying inbound wire bytes, already
// past the leading status byte) to net.Conn. Deadlines are accepted but
// not enforced: the underlying OS pipes block correctly without them, and
// no pack example's pipe-backed transport supports cancellable deadlines
// either.
type relayConn struct {
	r io.Reader
	w io.WriteCloser
}

func (c *relayConn) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *relayConn) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *relayConn) Close() error                { return c.w.Close() }
func (c *relayConn) LocalAddr() net.Addr         { return pipeAddr{} }
func (c *relayConn) RemoteAddr() net.Addr        { return pipeAddr{} }
func (c *relayConn) SetDeadline(time.Time) error      { return nil }
func (c *relayConn) SetReadDeadline(time.Time) error  { return nil }
func (c *relayConn) SetWriteDeadline(time.Time) error { return nil }

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "connworker-pipe" }

// TLSConfig configures the parent-side handshake performed after a
// worker reports success, per spec §4.9.
type TLSConfig struct {
	Enabled     bool
	ServerName  string
	SkipVerify  bool
	Fingerprint string // comma-separated hex digests, SHA-1/256/512, match-any
	MinVersion  uint16
}

// UpgradeTLS wraps conn in a TLS client connection using cfg, performing
// the handshake and, if cfg.Fingerprint is set, verifying the peer
// certificate against it instead of the system trust store (system
// verification is skipped whenever a fingerprint is set), per spec §4.9.
func UpgradeTLS(conn net.Conn, serverName string, cfg TLSConfig) (*tls.Conn, error) {
	tlsCfg := &tls.Config{
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.SkipVerify || cfg.Fingerprint != "",
		MinVersion:         cfg.MinVersion,
	}
	tlsConn := tls.Client(conn, tlsCfg)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return nil, ircerr.New(ircerr.KindTLS, serverName, fmt.Errorf("connworker: TLS handshake: %w", err))
	}
	if cfg.Fingerprint != "" {
		if err := verifyFingerprint(tlsConn, serverName, cfg.Fingerprint); err != nil {
			_ = tlsConn.Close()
			return nil, err
		}
	}
	return tlsConn, nil
}

// verifyFingerprint checks the leaf certificate's SHA-1/256/512 digest
// against any comma-separated entry in expected (match-any), per spec
// §4.9: 40 hex chars selects SHA-1, 64 selects SHA-256, 128 selects
// SHA-512.
func verifyFingerprint(tlsConn *tls.Conn, serverName, expected string) error {
	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return ircerr.New(ircerr.KindTLS, serverName, fmt.Errorf("connworker: no peer certificate to verify"))
	}
	leaf := state.PeerCertificates[0].Raw

	sum1 := sha1.Sum(leaf)
	sum256 := sha256.Sum256(leaf)
	sum512 := sha512.Sum512(leaf)
	digests := map[int]string{
		20: hex.EncodeToString(sum1[:]),
		32: hex.EncodeToString(sum256[:]),
		64: hex.EncodeToString(sum512[:]),
	}

	for _, want := range strings.Split(expected, ",") {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		if got, ok := digests[len(want)/2]; ok && got == want {
			return nil
		}
	}
	return ircerr.New(ircerr.KindTLS, serverName, fmt.Errorf("connworker: certificate fingerprint mismatch"))
}

// Command ircengine-worker is the connection-worker subprocess of spec
// §4.9: it reads a single JSON control line from stdin describing the
// target address and optional proxy, performs DNS resolution, the proxy
// handshake, and the TCP connect, writes one status byte to stdout, and
// then — on success — relays bytes between the connection and its own
// stdin/stdout so the parent process never blocks on a slow resolver.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"os"

	"github.com/weechat/ircengine/internal/connworker"
)

func main() {
	os.Exit(run())
}

func run() int {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		writeStatus(connworker.StatusAddressNotFound)
		return 1
	}

	var req connworker.WorkRequest
	if err := json.Unmarshal(line, &req); err != nil {
		writeStatus(connworker.StatusAddressNotFound)
		return 1
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = connworker.DialTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, status := connworker.Dial(ctx, req)
	writeStatus(status)
	if status != connworker.StatusOK {
		return 1
	}
	defer conn.Close()

	relay(conn, reader)
	return 0
}

func writeStatus(s connworker.Status) {
	_, _ = os.Stdout.Write([]byte{byte(s)})
}

// relay copies bytes bidirectionally between conn and the worker's own
// stdio: inbound wire bytes go to stdout, outbound wire bytes come from
// whatever remains buffered in stdinReader followed by the rest of stdin.
func relay(conn net.Conn, stdinReader *bufio.Reader) {
	done := make(chan struct{}, 2)

	go func() {
		_, _ = io.Copy(os.Stdout, conn)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(conn, stdinReader)
		done <- struct{}{}
	}()

	<-done
}

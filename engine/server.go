package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/weechat/ircengine/casefold"
	"github.com/weechat/ircengine/config"
	"github.com/weechat/ircengine/ctcp"
	"github.com/weechat/ircengine/dispatch"
	"github.com/weechat/ircengine/hooks"
	"github.com/weechat/ircengine/internal/connworker"
	"github.com/weechat/ircengine/ircerr"
	"github.com/weechat/ircengine/ircmsg"
	"github.com/weechat/ircengine/outqueue"
	"github.com/weechat/ircengine/serverfsm"
	"github.com/weechat/ircengine/store"
)

// errPingTimeout mirrors Travis-Britz-irc/client.go's sentinel: a lag
// check that never got a PONG back is treated as a dead transport, not a
// parse error or a protocol violation.
var errPingTimeout = errors.New("engine: server timed out waiting for a PONG")

// Server is one network connection's full runtime state: the state
// machine, buffer store, out-queue pacer, and dispatch context, plus the
// goroutines that drive them. Only the goroutines started from Connect
// ever touch a given Server's fields, per spec §5.
type Server struct {
	Name string

	cfg        config.ServerConfig
	workerPath string

	fsm   *serverfsm.Machine
	store *store.Store
	queue *outqueue.Queue
	table dispatch.Table
	ctx   *dispatch.Context

	framer ircmsg.Framer

	shared *Shared

	mu     sync.Mutex
	conn   io.ReadWriteCloser
	cancel context.CancelFunc
	wg     sync.WaitGroup
	errC   chan error

	log *zapWrap

	// dialFn, when set, replaces the connworker.Spawn+UpgradeTLS dial path
	// entirely, mirroring the teacher's Client.DialFn test seam. Tests use
	// it to hand Connect an irctest.Server instead of spawning a real
	// subprocess worker.
	dialFn func() (io.ReadWriteCloser, error)
}

// Shared is the cross-server state every Server in an Engine has access
// to: the hook registry, the CTCP reply templates, and the out-queue
// pacing policy, all configured once from the document's [engine] table.
type Shared struct {
	Hooks         *hooks.Registry
	CTCPTemplates ctcp.TemplateTable
	CTCPVars      ctcp.Vars
	CTCPUnknown   config.CTCPUnknownPolicy
	Outqueue      outqueue.Config
	WorkerPath    string
	PluginName    string

	// DebugWrap, if set, tees a connection's raw reads/writes to a debug
	// sink (package ircdebug) before Server ever sees the bytes.
	DebugWrap func(name string, rwc io.ReadWriteCloser) io.ReadWriteCloser
}

func newServer(name string, cfg config.ServerConfig, shared *Shared, logger *Logger) *Server {
	mapping := casefold.Parse("")
	s := &Server{
		Name:       name,
		cfg:        cfg,
		workerPath: shared.WorkerPath,
		fsm:        serverfsm.New(cfg.ToServerFSM()),
		store:      store.NewStore(mapping),
		table:      dispatch.New(),
		shared:     shared,
		log:        &zapWrap{l: logger, server: name},
	}
	s.ctx = &dispatch.Context{
		ServerName:       name,
		Store:            s.store,
		FSM:              s.fsm,
		Mapping:          mapping,
		ChanTypes:        "#&",
		SmartFilterModes: "",
		CTCPTemplates:    shared.CTCPTemplates,
		CTCPVars:         shared.CTCPVars,
		CTCPUnknown:      shared.CTCPUnknown,
		PluginName:       shared.PluginName,
		Proxy:            cfg.Proxy.Type,
	}
	return s
}

// zapWrap narrows *Logger to the per-server fields Server actually logs
// with, so server.go doesn't need to import zap directly.
type zapWrap struct {
	l      *Logger
	server string
}

func (z *zapWrap) Infow(msg string, kv ...any)  { z.l.server(z.server).Infow(msg, kv...) }
func (z *zapWrap) Warnw(msg string, kv ...any)  { z.l.server(z.server).Warnw(msg, kv...) }
func (z *zapWrap) Errorw(msg string, kv ...any) { z.l.server(z.server).Errorw(msg, kv...) }

// Connect dials the server through the connection worker, performs an
// optional TLS upgrade, and starts the reader/pacer/lag goroutines. It
// returns once the worker reports success (or failure); registration
// traffic and subsequent wire I/O happen on the background goroutines it
// starts, following the teacher's ConnectAndRun/mainLoop split.
func (s *Server) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return fmt.Errorf("engine: server %s already connected", s.Name)
	}
	s.mu.Unlock()

	if err := s.fsm.Connect(); err != nil {
		return err
	}
	if len(s.cfg.Addrs) == 0 && s.dialFn == nil {
		return ircerr.New(ircerr.KindConfig, s.Name, fmt.Errorf("engine: server %s has no configured addresses", s.Name))
	}

	var wrapped io.ReadWriteCloser
	if s.dialFn != nil {
		conn, err := s.dialFn()
		if err != nil {
			s.applyAction(s.fsm.WorkerFailed())
			return err
		}
		wrapped = conn
	} else {
		req := connworker.WorkRequest{
			Network: "tcp",
			Address: s.cfg.Addrs[0],
			Proxy:   s.cfg.ToProxy(),
		}
		result, err := connworker.Spawn(ctx, s.workerPath, s.Name, req)
		if err != nil {
			s.applyAction(s.fsm.WorkerFailed())
			return err
		}

		conn := result.Conn
		if s.cfg.TLS {
			tlsConn, err := connworker.UpgradeTLS(conn, s.Name, connworker.TLSConfig{
				Enabled:     true,
				ServerName:  hostOf(s.cfg.Addrs[0]),
				SkipVerify:  !s.cfg.TLSVerify,
				Fingerprint: s.cfg.TLSFingerprint,
			})
			if err != nil {
				_ = conn.Close()
				s.applyAction(s.fsm.WorkerFailed())
				return err
			}
			conn = tlsConn
		}
		wrapped = conn
	}
	if s.shared.DebugWrap != nil {
		wrapped = s.shared.DebugWrap(s.Name, wrapped)
	}

	s.mu.Lock()
	s.conn = wrapped
	s.errC = make(chan error, 1)
	s.mu.Unlock()

	s.queue = outqueue.New(s.shared.Outqueue, wrapped, s.onTransportError)

	mainctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.queue.Run()
	}()
	go func() {
		defer s.wg.Done()
		s.mainLoop(mainctx)
	}()

	s.shared.Hooks.Emit(hooks.SignalServerConnected, hooks.ServerPayload{Server: s.Name})
	s.applyAction(s.fsm.WorkerConnected())
	return nil
}

// onTransportError is outqueue's DisconnectFunc: a hard write failure
// means the transport is dead, so the FSM is driven the same way a read
// error would drive it.
func (s *Server) onTransportError(err error) {
	s.log.Warnw("transport write error", "err", err)
	s.exit(err)
}

func (s *Server) mainLoop(ctx context.Context) {
	lines := s.startReading(ctx)
	lagTicker := time.NewTicker(time.Second)
	defer lagTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-s.errC:
			s.teardown(err)
			return
		case l, ok := <-lines:
			if !ok {
				continue
			}
			s.handleLine(l)
		case now := <-lagTicker.C:
			if s.fsm.LagTimedOut(now) {
				s.exit(errPingTimeout)
				continue
			}
			if ping := s.fsm.CheckLag(now); ping != nil {
				s.queue.Enqueue(outqueue.PriorityHigh, encodeLine(ping), nil, false, nil)
			}
		}
	}
}

func (s *Server) startReading(ctx context.Context) <-chan []byte {
	lines := make(chan []byte)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(lines)

		buf := make([]byte, 4096)
		r := bufio.NewReaderSize(s.conn, 4096)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, line := range s.framer.Feed(buf[:n]) {
					select {
					case <-ctx.Done():
						return
					case lines <- append([]byte(nil), line...):
					}
				}
			}
			if s.framer.Overflowed() {
				s.exit(ircerr.New(ircerr.KindProtocol, s.Name, fmt.Errorf("engine: frame exceeds %d bytes without a terminator", ircmsg.MaxFrameBytes)))
				return
			}
			if err != nil {
				if err == io.EOF {
					s.exit(io.EOF)
				} else {
					s.exit(err)
				}
				return
			}
		}
	}()
	return lines
}

func (s *Server) handleLine(raw []byte) {
	line := s.shared.Hooks.ApplyModifiers(hooks.ModifierIn, string(raw))
	s.shared.Hooks.Emit(hooks.SignalRawIn, hooks.RawPayload{Server: s.Name, Line: line})

	m := new(ircmsg.Message)
	m.IncludePrefix()
	if err := m.UnmarshalText([]byte(line)); err != nil {
		s.log.Warnw("malformed line", "err", err)
		return
	}
	s.shared.Hooks.Emit(hooks.InCommand(m.Command), hooks.MessagePayload{Server: s.Name, Message: m})

	result := s.table.Dispatch(s.ctx, m)
	s.carryOut(result)
}

// carryOut performs the I/O a dispatch.Result asked for: dispatch itself
// never touches the socket, per spec §4.11.
func (s *Server) carryOut(result dispatch.Result) {
	for i, args := range result.Send {
		pri := outqueue.PriorityNormal
		if i < len(result.SendHighPriority) && result.SendHighPriority[i] {
			pri = outqueue.PriorityHigh
		}
		s.enqueueCommand(pri, args)
	}
	for _, d := range result.Display {
		if d.Target.Nick != "" {
			s.shared.Hooks.Emit(hooks.SignalPV, hooks.PVPayload{Server: s.Name, Nick: d.Target.Nick, Text: d.Text})
		}
		s.log.Infow("buffer line", "channel", d.Target.Channel, "nick", d.Target.Nick, "tags", d.Tags, "text", d.Text)
	}
	for _, sig := range result.Signals {
		s.shared.Hooks.Emit(sig.Name, sig.Payload)
	}
	if result.Err != nil {
		s.log.Errorw("dispatch error", "err", result.Err)
	}
	s.applyAction(result.Action)
}

func (s *Server) enqueueCommand(pri outqueue.Priority, args []string) {
	m := ircmsg.NewMessage(ircmsg.Command(args[0]), args[1:]...)
	before, err := m.MarshalText()
	if err != nil && !ircmsg.ErrTruncated(err) {
		s.log.Warnw("failed to marshal outgoing message", "command", args[0], "err", err)
		return
	}
	after := s.shared.Hooks.ApplyModifiers(hooks.OutModifier(m.Command), string(before))
	modified := after != string(before)
	s.shared.Hooks.Emit(hooks.SignalRawOut, hooks.RawPayload{Server: s.Name, Line: after})
	s.queue.Enqueue(pri, before, []byte(after), modified, nil)
}

func encodeLine(args []string) []byte {
	m := ircmsg.NewMessage(ircmsg.Command(args[0]), args[1:]...)
	b, _ := m.MarshalText()
	return b
}

// applyAction carries out a serverfsm.Action: enqueueing registration
// traffic, arming a reconnect timer, or tearing down the transport.
func (s *Server) applyAction(a serverfsm.Action) {
	for _, line := range a.SendLines {
		s.enqueueCommand(outqueue.PriorityHigh, line)
	}
	if a.ScheduleReconnect > 0 {
		delay := a.ScheduleReconnect
		time.AfterFunc(delay, func() {
			_ = s.Connect(context.Background())
		})
	}
	if a.Disconnect {
		s.teardown(nil)
	}
}

// exit requests the connection be torn down with err as the cause. Only
// the first call wins, mirroring the teacher's Client.exit.
func (s *Server) exit(err error) {
	s.mu.Lock()
	ch := s.errC
	s.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- err:
	default:
	}
}

func (s *Server) teardown(err error) {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if s.queue != nil {
		s.queue.Stop()
	}
	s.framer.Reset()

	action := s.fsm.TransportLost()
	s.shared.Hooks.Emit(hooks.SignalServerDisconnect, hooks.ServerPayload{Server: s.Name})
	if err != nil && err != io.EOF {
		s.log.Infow("disconnected", "err", err)
	}
	// The transport is already down, so the Disconnect that TransportLost
	// requests under autoreconnect is dropped; only its reconnect timer,
	// if any, still applies.
	action.Disconnect = false
	s.applyAction(action)
}

// Disconnect requests a graceful shutdown: QUIT is enqueued high priority
// and the transport is torn down when the server closes the link or after
// a 3-second grace period, whichever comes first, mirroring the teacher's
// ctx.Done() QUIT-then-wait path in ConnectAndRun. The out-queue draining
// does not by itself end the connection.
func (s *Server) Disconnect(reason string) {
	s.enqueueCommand(outqueue.PriorityHigh, []string{"QUIT", reason})
	action := s.fsm.ManualDisconnect()
	action.Disconnect = false // handled below, once QUIT has had a chance to flush
	s.applyAction(action)
	time.AfterFunc(3*time.Second, func() { s.exit(nil) })
}

// Wait blocks until the server's goroutines have exited.
func (s *Server) Wait() { s.wg.Wait() }

// Store exposes the per-server buffer collection, for snapshotting and
// UI-facing infolist queries.
func (s *Server) Store() *store.Store { return s.store }

// FSM exposes the state machine, for snapshotting and infolist queries.
func (s *Server) FSM() *serverfsm.Machine { return s.fsm }

// Queue exposes the out-queue pacer, for snapshotting.
func (s *Server) Queue() *outqueue.Queue { return s.queue }

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

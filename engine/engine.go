// Package engine wires serverfsm, store, outqueue, dispatch, hooks, and
// internal/connworker into the running multi-server client spec.md
// describes: one Server per configured network, sharing a single hook
// registry and CTCP reply policy, generalizing Travis-Britz-irc/client.go's
// single-connection Client into a supervised collection.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/weechat/ircengine/config"
	"github.com/weechat/ircengine/ctcp"
	"github.com/weechat/ircengine/hooks"
	"github.com/weechat/ircengine/ircdebug"
	"github.com/weechat/ircengine/snapshot"
)

// Engine owns every configured Server plus the process-wide hook registry
// and CTCP policy they share.
type Engine struct {
	mu      sync.Mutex
	servers map[string]*Server

	shared *Shared
	logger *Logger

	// DebugLog, if set, receives a copy of every raw line sent and
	// received on every server's connection, via package ircdebug.
	DebugLog io.Writer
}

// New builds an Engine from a loaded configuration document. workerPath is
// the path to the cmd/ircengine-worker binary each Server spawns to dial
// its connection.
func New(doc *config.Document, workerPath string, logger *Logger) *Engine {
	if logger == nil {
		logger = NewNopLogger()
	}
	e := &Engine{
		servers: make(map[string]*Server),
		logger:  logger,
		shared: &Shared{
			Hooks:         hooks.NewRegistry(),
			CTCPTemplates: doc.Engine.ToCTCPTemplates(),
			CTCPUnknown:   doc.Engine.CTCPUnknown,
			Outqueue:      doc.Engine.ToOutqueue(),
			WorkerPath:    workerPath,
			PluginName:    "irc",
		},
	}
	e.shared.DebugWrap = e.wrapDebug
	return e
}

// Hooks returns the shared hook registry, for plugins to attach
// signal/modifier/infolist hooks before servers start connecting.
func (e *Engine) Hooks() *hooks.Registry { return e.shared.Hooks }

// AddServer registers a Server for cfg without connecting it. Use Connect
// to start the connection.
func (e *Engine) AddServer(cfg config.ServerConfig) (*Server, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.servers[cfg.Name]; exists {
		return nil, fmt.Errorf("engine: server %q already registered", cfg.Name)
	}
	s := newServer(cfg.Name, cfg, e.shared, e.logger)
	e.servers[cfg.Name] = s
	return s, nil
}

// LoadDocument registers every [[server]] entry of doc, skipping any name
// already registered.
func (e *Engine) LoadDocument(doc *config.Document) []error {
	var errs []error
	for _, sc := range doc.Server {
		if _, err := e.AddServer(sc); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Server looks up a registered server by name.
func (e *Engine) Server(name string) (*Server, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.servers[name]
	return s, ok
}

// Servers returns every registered server, in no particular order.
func (e *Engine) Servers() []*Server {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Server, 0, len(e.servers))
	for _, s := range e.servers {
		out = append(out, s)
	}
	return out
}

// ConnectAll dials every registered server concurrently, matching
// WeeChat's "autoconnect" startup behavior. It returns once every dial
// attempt has completed (successfully or not); ongoing registration and
// traffic continue on each Server's own goroutines.
func (e *Engine) ConnectAll(ctx context.Context) map[string]error {
	servers := e.Servers()
	results := make(map[string]error, len(servers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, s := range servers {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Connect(ctx)
			mu.Lock()
			results[s.Name] = err
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// Shutdown sends QUIT to every connected server and waits for their
// goroutines to exit.
func (e *Engine) Shutdown(reason string) {
	for _, s := range e.Servers() {
		if s.Queue() == nil {
			continue // never connected: no queue to send QUIT through
		}
		s.Disconnect(reason)
	}
	for _, s := range e.Servers() {
		s.Wait()
	}
}

// SetCTCPVars fills in the CTCP template substitution values (version
// string, etc.) shared servers use when answering CTCP requests. Normally
// called once, right after New.
func (e *Engine) SetCTCPVars(vars ctcp.Vars) {
	e.shared.CTCPVars = vars
}

// WriteSnapshot serializes every server's resumable state to w, per spec
// §6's upgrade-file layout: one Server record followed by its Channel
// records, for each registered server.
func (e *Engine) WriteSnapshot(w io.Writer) error {
	sw := snapshot.NewWriter(w)
	for _, s := range e.Servers() {
		fsm := s.FSM()
		srv := snapshot.Server{
			Name:             s.Name,
			Status:           fsm.Status.String(),
			CurrentNick:      fsm.CurrentNick,
			Addresses:        s.cfg.Addrs,
			OutQueueRemnants: snapshot.FromQueue(s.Queue()),
		}
		for _, ch := range s.Store().Channels() {
			srv.Channels = append(srv.Channels, ch.Name)
		}
		if err := sw.WriteServer(srv); err != nil {
			return err
		}
		for _, ch := range s.Store().Channels() {
			if err := sw.WriteChannel(snapshot.FromChannel(s.Name, ch)); err != nil {
				return err
			}
		}
	}
	return sw.Flush()
}

// wrapDebug tees rwc's reads/writes through e.DebugLog, when configured,
// using the same prefixing convention as the teacher's ircdebug package.
func (e *Engine) wrapDebug(name string, rwc io.ReadWriteCloser) io.ReadWriteCloser {
	if e.DebugLog == nil {
		return rwc
	}
	return ircdebug.WriteTo(e.DebugLog, rwc, fmt.Sprintf("%s >> ", name), fmt.Sprintf("%s << ", name))
}

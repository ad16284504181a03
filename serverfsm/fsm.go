// Package serverfsm implements the central per-server state machine of
// spec §4.10: the disconnected/connecting/authenticating/registered
// lifecycle, nick-collision handling during registration, reconnect
// backoff, and lag measurement. It owns no I/O itself — dispatch and
// engine drive it from parsed messages and connworker/outqueue events,
// the way Travis-Britz-irc's clientState is driven by its handler chain.
package serverfsm

import (
	"fmt"
	"time"
)

// Status is one of the five states of spec §4.10's transition table.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusAuthenticating
	StatusRegistered
	StatusDisconnecting
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusAuthenticating:
		return "authenticating"
	case StatusRegistered:
		return "registered"
	case StatusDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Config is the static, user-configured per-server registration and
// reconnect policy.
type Config struct {
	Nicks    []string // tried in order, then numeric-suffixed
	Username string
	Realname string
	Password string

	Caps []string // desired capability names, triggers CAP LS if non-empty
	SASL *SASLConfig

	Autoreconnect     bool
	ReconnectDelay    time.Duration // base delay
	ReconnectMaxMult  int           // cap, in multiples of base; spec default 10
	ConnectionTimeout time.Duration

	LagCheckInterval time.Duration
	LagReconnect     time.Duration
}

// SASLConfig names the SASL mechanism and credentials to use during
// capability negotiation.
type SASLConfig struct {
	Mechanism string // "PLAIN", "EXTERNAL", "SCRAM-SHA-256", ...
	Username  string
	Password  string
	// OnFailure is "reconnect" or "continue", per spec §4.11's AUTHENTICATE contract.
	OnFailure string
}

// Action is an instruction the caller must carry out after a transition:
// FSM methods never perform I/O themselves.
type Action struct {
	// SendLines are messages the caller should enqueue (high priority for
	// registration/auth lines, matching spec §4.10/§4.7's priority rules).
	SendLines [][]string // each entry is (command, args...)
	// ScheduleReconnect is non-zero when a reconnect timer should be armed.
	ScheduleReconnect time.Duration
	// Disconnect is true when the caller should tear down the transport.
	Disconnect bool
}

// Machine is one server's state machine instance.
type Machine struct {
	Status Status

	cfg Config

	nickIndex   int
	nickSuffix  int
	CurrentNick string
	// CurrentUserModes holds the client's own user-mode letters (the "+i"
	// etc. string from a self-targeted MODE), maintained by dispatch.
	CurrentUserModes string

	cap  capState
	sasl saslState

	consecutiveFailures int

	lag lagState
}

// Config returns a copy of the static configuration this Machine was
// built with, for infolist rendering.
func (m *Machine) Config() Config { return m.cfg }

// New constructs a Machine in StatusDisconnected for cfg.
func New(cfg Config) *Machine {
	m := &Machine{cfg: cfg, Status: StatusDisconnected}
	if len(cfg.Nicks) > 0 {
		m.CurrentNick = cfg.Nicks[0]
	}
	return m
}

// Connect transitions disconnected -> connecting, per spec §4.10's
// `connect` event.
func (m *Machine) Connect() error {
	if m.Status != StatusDisconnected {
		return fmt.Errorf("serverfsm: connect is only valid from disconnected, was %s", m.Status)
	}
	m.Status = StatusConnecting
	return nil
}

// WorkerConnected transitions connecting -> authenticating once the
// connection worker (and TLS, if configured) has succeeded, and returns
// the registration lines to send per spec §4.10's "on entering
// authenticating" sequence: optional PASS, optional CAP LS 302, then
// NICK/USER.
func (m *Machine) WorkerConnected() Action {
	m.Status = StatusAuthenticating
	m.consecutiveFailures = 0
	m.nickIndex = 0
	m.nickSuffix = 0
	m.CurrentNick = m.cfg.Nicks[0]

	var lines [][]string
	if m.cfg.Password != "" {
		lines = append(lines, []string{"PASS", m.cfg.Password})
	}
	if len(m.cfg.Caps) > 0 || m.cfg.SASL != nil {
		m.cap.start(m.cfg.Caps, m.cfg.SASL != nil)
		lines = append(lines, []string{"CAP", "LS", "302"})
	}
	lines = append(lines, []string{"NICK", m.CurrentNick})
	lines = append(lines, []string{"USER", m.cfg.Username, "0", "*", m.cfg.Realname})
	return Action{SendLines: lines}
}

// WorkerFailed transitions connecting -> disconnected and schedules a
// reconnect, per spec §4.10's worker-failure/TLS-failure row.
func (m *Machine) WorkerFailed() Action {
	return m.failAndMaybeReconnect()
}

// Welcome transitions authenticating -> registered on numeric 001.
func (m *Machine) Welcome() {
	m.Status = StatusRegistered
	m.consecutiveFailures = 0
}

// AuthFailed transitions authenticating -> disconnected on ERROR or a
// registration timeout.
func (m *Machine) AuthFailed() Action {
	return m.failAndMaybeReconnect()
}

// TransportLost transitions registered -> disconnected on a transport
// error or remote close, scheduling reconnect only if autoreconnect is
// configured.
func (m *Machine) TransportLost() Action {
	if !m.cfg.Autoreconnect {
		m.Status = StatusDisconnected
		return Action{}
	}
	return m.failAndMaybeReconnect()
}

// ManualDisconnect transitions any non-disconnected state to
// disconnecting then disconnected, clearing the reconnect-backoff
// counter per spec §4.10.
func (m *Machine) ManualDisconnect() Action {
	m.Status = StatusDisconnecting
	m.consecutiveFailures = 0
	m.Status = StatusDisconnected
	return Action{Disconnect: true}
}

func (m *Machine) failAndMaybeReconnect() Action {
	m.Status = StatusDisconnected
	if !m.cfg.Autoreconnect {
		return Action{Disconnect: true}
	}
	m.consecutiveFailures++
	delay := NextDelay(m.consecutiveFailures, m.cfg.ReconnectDelay, m.cfg.ReconnectMaxMult)
	return Action{Disconnect: true, ScheduleReconnect: delay}
}

// NickCollisionNumerics are the numerics that trigger nick-advance during
// authentication, per spec §4.10.
var NickCollisionNumerics = map[string]bool{
	"432": true, "433": true, "436": true, "437": true,
}

// AdvanceNick handles a 432/433/436/437 numeric during authenticating:
// it advances to the next configured nick, or appends a numeric suffix
// once the list is exhausted, per spec §4.10. It returns the NICK command
// to send.
func (m *Machine) AdvanceNick() []string {
	m.nickIndex++
	if m.nickIndex < len(m.cfg.Nicks) {
		m.CurrentNick = m.cfg.Nicks[m.nickIndex]
	} else {
		m.nickSuffix++
		base := m.cfg.Nicks[len(m.cfg.Nicks)-1]
		m.CurrentNick = fmt.Sprintf("%s%d", base, m.nickSuffix)
	}
	return []string{"NICK", m.CurrentNick}
}

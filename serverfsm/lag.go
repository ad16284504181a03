package serverfsm

import (
	"fmt"
	"time"
)

// lagState tracks the outstanding "PING LAG<epoch>" round trip used to
// measure lag and detect a stalled transport, per spec §4.10: every
// LagCheckInterval seconds while authenticating or registered, send a
// high-priority PING carrying the check time as a nonce; on the matching
// PONG compute LastLagMillis; if no PONG arrives within LagReconnect
// seconds of the check, treat the transport as dead.
type lagState struct {
	pending       bool
	token         string
	sentAt        time.Time
	LastLagMillis int64
}

// CheckLag returns the PING line to send if LagCheckInterval has elapsed
// since the last check (or none has ever run) and the connection is in a
// state where lag checks apply; it returns nil otherwise. now is supplied
// by the caller rather than read from time.Now so the FSM stays easy to
// test deterministically.
func (m *Machine) CheckLag(now time.Time) []string {
	if m.Status != StatusAuthenticating && m.Status != StatusRegistered {
		return nil
	}
	if m.cfg.LagCheckInterval <= 0 {
		return nil
	}
	if m.lag.pending {
		return nil
	}
	if !m.lag.sentAt.IsZero() && now.Sub(m.lag.sentAt) < m.cfg.LagCheckInterval {
		return nil
	}

	m.lag.pending = true
	m.lag.sentAt = now
	m.lag.token = fmt.Sprintf("LAG%d", now.UnixNano())
	return []string{"PING", m.lag.token}
}

// LagPong matches an incoming PONG argument against the outstanding lag
// token; on a match it records the round-trip time and clears the
// pending flag. It returns false for PONGs that don't match (e.g. a
// server-initiated PING's echo), which the caller should ignore for lag
// purposes.
func (m *Machine) LagPong(arg string, now time.Time) bool {
	if !m.lag.pending || arg != m.lag.token {
		return false
	}
	m.lag.pending = false
	m.lag.LastLagMillis = now.Sub(m.lag.sentAt).Milliseconds()
	return true
}

// LagTimedOut reports whether the outstanding lag check has gone
// unanswered past LagReconnect, meaning the caller should treat the
// transport as dead and invoke TransportLost.
func (m *Machine) LagTimedOut(now time.Time) bool {
	if !m.lag.pending || m.cfg.LagReconnect <= 0 {
		return false
	}
	return now.Sub(m.lag.sentAt) >= m.cfg.LagReconnect
}

// LastLagMillis returns the most recently measured round-trip lag.
func (m *Machine) LastLagMillis() int64 { return m.lag.LastLagMillis }

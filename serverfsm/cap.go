package serverfsm

import "strings"

// capState tracks the CAP LS 302 / REQ / ACK / NAK dialog of spec §4.10
// step 2.
type capState struct {
	active     bool
	wanted     map[string]bool
	acked      map[string]bool
	saslWanted bool
	lsDone     bool
}

func (c *capState) start(wanted []string, sasl bool) {
	c.active = true
	c.wanted = make(map[string]bool, len(wanted)+1)
	for _, w := range wanted {
		c.wanted[strings.ToLower(w)] = true
	}
	if sasl {
		c.wanted["sasl"] = true
	}
	c.acked = map[string]bool{}
	c.saslWanted = sasl
}

// HandleCapLS processes the offered capability list from a CAP LS
// (possibly multi-line with 302's trailing "LS * :" continuation), and
// returns a CAP REQ line for the intersection with the wanted set, or nil
// if nothing to request.
func (c *capState) HandleCapLS(offered []string, more bool) []string {
	if c.wanted == nil {
		return nil
	}
	var req []string
	for _, tok := range offered {
		name := strings.SplitN(tok, "=", 2)[0]
		if c.wanted[strings.ToLower(name)] {
			req = append(req, name)
		}
	}
	if !more {
		c.lsDone = true
	}
	if len(req) == 0 {
		return nil
	}
	return []string{"CAP", "REQ", strings.Join(req, " ")}
}

// HandleCapAck records acknowledged capabilities. SASL's AUTHENTICATE
// dialog is started separately via Machine.StartSASL once the caller has
// confirmed "sasl" was acked, since mechanism choice lives in cfg.SASL.
func (c *capState) HandleCapAck(acked []string) {
	for _, name := range acked {
		c.acked[strings.ToLower(name)] = true
	}
}

// SASLAcked reports whether the server acked the sasl capability.
func (c *capState) SASLAcked() bool { return c.acked["sasl"] }

// ReadyForEnd reports whether the CAP dialog has nothing left pending and
// CAP END should be sent (no SASL wanted, or SASL already finished).
func (c *capState) ReadyForEnd(saslDone bool) bool {
	if !c.active {
		return false
	}
	if c.saslWanted {
		return saslDone
	}
	return c.lsDone
}

// HandleCapLS forwards to the machine's capState, per capState.HandleCapLS.
func (m *Machine) HandleCapLS(offered []string, more bool) []string {
	return m.cap.HandleCapLS(offered, more)
}

// HandleCapAck forwards to the machine's capState, per capState.HandleCapAck.
func (m *Machine) HandleCapAck(acked []string) {
	m.cap.HandleCapAck(acked)
}

// SASLAcked reports whether the server acked the sasl capability.
func (m *Machine) SASLAcked() bool { return m.cap.SASLAcked() }

// saslState tracks the AUTHENTICATE mechanism dialog.
type saslState struct {
	mechanism string
	done      bool
	succeeded bool
}

// SASLPayloadPlain builds the raw (unencoded) SASL PLAIN payload from the
// configured credentials, or "" if SASL isn't configured.
func (m *Machine) SASLPayloadPlain() string {
	if m.cfg.SASL == nil {
		return ""
	}
	return SASLPlainPayload(m.cfg.SASL.Username, m.cfg.SASL.Password)
}

// StartSASL returns the AUTHENTICATE line naming the mechanism.
func (m *Machine) StartSASL() []string {
	if m.cfg.SASL == nil {
		return nil
	}
	m.sasl.mechanism = m.cfg.SASL.Mechanism
	return []string{"AUTHENTICATE", m.cfg.SASL.Mechanism}
}

// SASLPlainPayload builds the base64-less raw PLAIN payload
// ("authzid\x00authcid\x00password"); base64-encoding it for the wire is
// the caller's job (AUTHENTICATE payloads are base64 chunks, handled by
// dispatch).
func SASLPlainPayload(username, password string) string {
	return username + "\x00" + username + "\x00" + password
}

// SASLResult finalizes the SASL dialog on 903 (success) or 904-907
// (failure), returning whether to proceed with CAP END (continue) or
// schedule a reconnect.
func (m *Machine) SASLResult(success bool) (proceedAction Action, done bool) {
	m.sasl.done = true
	m.sasl.succeeded = success
	if success {
		return Action{}, true
	}
	if m.cfg.SASL != nil && m.cfg.SASL.OnFailure == "reconnect" {
		return m.failAndMaybeReconnect(), true
	}
	return Action{}, true
}

// CapEnd returns the CAP END line once the dialog is ready, per
// ReadyForEnd.
func (m *Machine) CapEnd() []string {
	if !m.cap.ReadyForEnd(m.sasl.done || !m.cap.saslWanted) {
		return nil
	}
	return []string{"CAP", "END"}
}

// Package ctcp implements CTCP frame extraction and reply-template
// evaluation (spec §4.7), plus DCC rendezvous parsing (spec §4.7.1).
package ctcp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/weechat/ircengine/ircmsg"
)

// Frame is an extracted CTCP request or reply.
type Frame struct {
	Type string // uppercased, e.g. "VERSION"
	Args string
}

// Extract strips at most one \x01...\x01 pair from body and parses the
// inner "TYPE [SP args]" content. ok is false when body is not
// CTCP-wrapped.
func Extract(body string) (Frame, bool) {
	if len(body) < 2 || body[0] != ircmsg.CTCPDelim {
		return Frame{}, false
	}
	end := strings.IndexByte(body[1:], ircmsg.CTCPDelim)
	var inner string
	if end < 0 {
		// Unterminated CTCP; be lenient and take the rest of the line, as
		// most clients do when a peer forgets the trailing delimiter.
		inner = body[1:]
	} else {
		inner = body[1 : end+1]
	}
	sp := strings.IndexByte(inner, ' ')
	if sp < 0 {
		return Frame{Type: strings.ToUpper(inner)}, true
	}
	return Frame{Type: strings.ToUpper(inner[:sp]), Args: inner[sp+1:]}, true
}

// TemplateTable is a user-editable CTCP reply template table, keyed by
// lowercase CTCP type and optionally scoped to "<server>.<type>".
type TemplateTable map[string]string

// Lookup resolves the reply template for ctype on server, preferring a
// server-scoped entry over the global one. found is false when neither
// exists (the "respond unknown / silently ignore" case of spec §4.7).
func (t TemplateTable) Lookup(server, ctype string) (template string, found bool) {
	ctype = strings.ToLower(ctype)
	if v, ok := t[server+"."+ctype]; ok {
		return v, true
	}
	v, ok := t[ctype]
	return v, ok
}

// Vars supplies the reply-template substitution values of spec §4.7.
type Vars struct {
	ClientInfo  string
	Version     string
	Git         string
	Compilation string
	OSInfo      string
	Site        string
	Download    string
	TimeFormat  string
	Username    string
	Realname    string
	Now         time.Time
}

// Expand evaluates template against vars, substituting each
// ${name} placeholder. Unknown placeholders are left verbatim.
func Expand(template string, vars Vars) string {
	repl := strings.NewReplacer(
		"${clientinfo}", vars.ClientInfo,
		"${version}", vars.Version,
		"${git}", vars.Git,
		"${versiongit}", vars.Version+" "+vars.Git,
		"${compilation}", vars.Compilation,
		"${osinfo}", vars.OSInfo,
		"${site}", vars.Site,
		"${download}", vars.Download,
		"${time}", formatTime(vars),
		"${username}", vars.Username,
		"${realname}", vars.Realname,
	)
	return repl.Replace(template)
}

func formatTime(vars Vars) string {
	layout := vars.TimeFormat
	if layout == "" {
		layout = time.RFC1123
	}
	at := vars.Now
	if at.IsZero() {
		at = time.Now()
	}
	return at.Format(layout)
}

// SanitizeReply replaces any \x01 byte in a reply body with a space, the
// firewall-ALG mitigation required by spec §4.7.
func SanitizeReply(body string) string {
	out := make([]byte, len(body))
	for i := 0; i < len(body); i++ {
		if body[i] == ircmsg.CTCPDelim {
			out[i] = ' '
		} else {
			out[i] = body[i]
		}
	}
	return string(out)
}

// BuiltinKind classifies the three request types spec §4.7 handles before
// consulting the template table.
type BuiltinKind int

const (
	BuiltinNone BuiltinKind = iota
	BuiltinAction
	BuiltinPing
	BuiltinDCC
)

// Classify reports which built-in handling (if any) applies to a request
// frame's type.
func Classify(ctype string) BuiltinKind {
	switch strings.ToUpper(ctype) {
	case "ACTION":
		return BuiltinAction
	case "PING":
		return BuiltinPing
	case "DCC":
		return BuiltinDCC
	default:
		return BuiltinNone
	}
}

// DCCKind is the DCC rendezvous sub-command, per spec §4.7.1.
type DCCKind int

const (
	DCCUnknown DCCKind = iota
	DCCSend
	DCCResume
	DCCAccept
	DCCChat
)

// DCCRequest is the structured payload emitted to the xfer collaborator on
// a successful DCC parse.
type DCCRequest struct {
	Kind       DCCKind
	RemoteNick string
	Filename   string // unwrapped: quotes stripped if the source was quoted
	IP         string
	Port       int
	Size       int64
	StartOffset int64
	Token      string
}

// ParseDCC parses the argument string of a "DCC <sub> ..." CTCP frame
// (everything after "DCC "), per the shapes enumerated in spec §4.7.1.
// A non-nil error is a user-visible parse failure; it never indicates a
// disconnect.
func ParseDCC(args string) (DCCRequest, error) {
	fields, err := splitDCCFields(args)
	if err != nil {
		return DCCRequest{}, err
	}
	if len(fields) == 0 {
		return DCCRequest{}, errDCC("empty DCC command")
	}

	sub := strings.ToUpper(fields[0])
	rest := fields[1:]

	switch sub {
	case "SEND":
		if len(rest) < 4 {
			return DCCRequest{}, errDCC("DCC SEND requires filename, ip, port, size")
		}
		size, err := strconv.ParseInt(rest[3], 10, 64)
		if err != nil {
			return DCCRequest{}, errDCC("DCC SEND: invalid size %q", rest[3])
		}
		port, err := strconv.Atoi(rest[2])
		if err != nil {
			return DCCRequest{}, errDCC("DCC SEND: invalid port %q", rest[2])
		}
		req := DCCRequest{Kind: DCCSend, Filename: unquote(rest[0]), IP: rest[1], Port: port, Size: size}
		if len(rest) > 4 {
			req.Token = rest[4]
		}
		return req, nil

	case "RESUME", "ACCEPT":
		kind := DCCResume
		if sub == "ACCEPT" {
			kind = DCCAccept
		}
		if len(rest) < 3 {
			return DCCRequest{}, errDCC("DCC %s requires filename, port, start_offset", sub)
		}
		port, err := strconv.Atoi(rest[1])
		if err != nil {
			return DCCRequest{}, errDCC("DCC %s: invalid port %q", sub, rest[1])
		}
		off, err := strconv.ParseInt(rest[2], 10, 64)
		if err != nil {
			return DCCRequest{}, errDCC("DCC %s: invalid start offset %q", sub, rest[2])
		}
		req := DCCRequest{Kind: kind, Filename: unquote(rest[0]), Port: port, StartOffset: off}
		if len(rest) > 3 {
			req.Token = rest[3]
		}
		return req, nil

	case "CHAT":
		if len(rest) < 3 || !strings.EqualFold(rest[0], "chat") {
			return DCCRequest{}, errDCC("DCC CHAT requires \"chat\", ip, port")
		}
		port, err := strconv.Atoi(rest[2])
		if err != nil {
			return DCCRequest{}, errDCC("DCC CHAT: invalid port %q", rest[2])
		}
		return DCCRequest{Kind: DCCChat, IP: rest[1], Port: port}, nil

	default:
		return DCCRequest{}, errDCC("unknown DCC sub-command %q", sub)
	}
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// splitDCCFields splits on spaces, treating a "quoted filename" as one
// field (quotes retained, per spec §4.7.1 — they're stripped later by
// unquote for the handoff payload, not during splitting).
func splitDCCFields(s string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	hasCur := false

	flush := func() {
		if hasCur {
			fields = append(fields, cur.String())
			cur.Reset()
			hasCur = false
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
			hasCur = true
		case c == ' ' && !inQuotes:
			flush()
		default:
			cur.WriteByte(c)
			hasCur = true
		}
	}
	flush()

	if inQuotes {
		return nil, errDCC("unterminated quoted filename")
	}
	return fields, nil
}

// NewDCCToken mints an opaque token to correlate an outgoing DCC offer
// with its eventual connection-worker handoff, since the wire protocol's
// own token parameter is optional and many peers omit it.
func NewDCCToken() string {
	return uuid.New().String()
}

// XferSignal is the structured payload handed to the xfer collaborator's
// signal hook on a successful DCC parse, per spec §4.7.1's enumerated
// field list.
type XferSignal struct {
	PluginName string
	ServerName string
	RemoteNick string
	LocalNick  string
	Type       string // "file_recv_passive", "file_recv_active", "chat_recv", ...
	Filename   string
	IP         string
	Port       int
	Size       int64
	Token      string
	Proxy      string
}

// NewXferSignal builds the xfer signal payload for req, filling the
// connection-derived fields the parser itself doesn't know about.
func NewXferSignal(req DCCRequest, pluginName, serverName, remoteNick, localNick, proxy string) XferSignal {
	var typ string
	switch req.Kind {
	case DCCSend:
		typ = "file_recv_passive"
	case DCCResume:
		typ = "file_resume"
	case DCCAccept:
		typ = "file_accept_resume"
	case DCCChat:
		typ = "chat_recv"
	}
	return XferSignal{
		PluginName: pluginName,
		ServerName: serverName,
		RemoteNick: remoteNick,
		LocalNick:  localNick,
		Type:       typ,
		Filename:   req.Filename,
		IP:         req.IP,
		Port:       req.Port,
		Size:       req.Size,
		Token:      req.Token,
		Proxy:      proxy,
	}
}

type dccError struct{ msg string }

func (e *dccError) Error() string { return e.msg }

func errDCC(format string, args ...any) error {
	if len(args) == 0 {
		return &dccError{msg: format}
	}
	return &dccError{msg: fmt.Sprintf(format, args...)}
}

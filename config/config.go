// Package config loads the durable, user-edited TOML document that
// materializes serverfsm.Config, outqueue.Config, and the engine's
// CTCP/smart-filter policy. CLI and interactive option-store parsing are
// out of scope (spec.md §1's Non-goals), but something concrete has to
// turn a saved file into a running Server, and TOML is how both
// foxcpp-infinitychat and presbrey-pkg in the retrieval pack do it.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Document is the top-level shape of an engine configuration file: one
// [[server]] array-of-tables entry per network plus a single [engine]
// table of cross-server policy.
type Document struct {
	Server []ServerConfig `toml:"server"`
	Engine EngineConfig   `toml:"engine"`
}

// ServerConfig mirrors the Server entity of spec §3: identity,
// addresses, registration nicks, SASL, and reconnect/lag policy.
type ServerConfig struct {
	Name     string   `toml:"name"`
	Addrs    []string `toml:"addresses"`
	Username string   `toml:"username"`
	Realname string   `toml:"realname"`
	Password string   `toml:"password"`
	Nicks    []string `toml:"nicknames"`

	TLS            bool   `toml:"tls"`
	TLSVerify      bool   `toml:"tls_verify"`
	TLSFingerprint string `toml:"tls_fingerprint"`

	Proxy ProxyConfig `toml:"proxy"`
	Caps  []string    `toml:"capabilities"`
	SASL  *SASLConfig `toml:"sasl"`

	Autoreconnect    bool          `toml:"autoreconnect"`
	ReconnectDelay   time.Duration `toml:"reconnect_delay"`
	ReconnectMaxMult int           `toml:"reconnect_max_multiplier"`

	LagCheckInterval time.Duration `toml:"lag_check_interval"`
	LagReconnect     time.Duration `toml:"lag_reconnect_timeout"`

	Autojoin []string `toml:"autojoin"`
}

// ProxyConfig names an optional SOCKS4/SOCKS5/HTTP proxy the connection
// worker dials through (spec §4.9).
type ProxyConfig struct {
	Type     string `toml:"type"` // "socks4", "socks5", "http", or "" for direct
	Address  string `toml:"address"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// SASLConfig names the mechanism, credentials, and failure policy of
// spec §4.11's AUTHENTICATE dialog.
type SASLConfig struct {
	Mechanism string `toml:"mechanism"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	// OnFailure is a SASLFailPolicy value: "reconnect" or "continue".
	OnFailure SASLFailPolicy `toml:"on_failure"`
}

// SASLFailPolicy is irc-server.c's irc_server_sasl_fail option,
// generalized from a WeeChat config enum to a typed Go string.
type SASLFailPolicy string

const (
	SASLFailReconnect SASLFailPolicy = "reconnect"
	SASLFailContinue  SASLFailPolicy = "continue"
)

// CTCPUnknownPolicy governs handleCTCP's behavior for a CTCP query with no
// configured or built-in reply, per spec §4.7.
type CTCPUnknownPolicy string

const (
	CTCPUnknownIgnore  CTCPUnknownPolicy = "ignore"
	CTCPUnknownRespond CTCPUnknownPolicy = "respond"
)

// EngineConfig holds cross-server policy: anti-flood pacing, CTCP reply
// templates, and the smart-filter mode-letter set.
type EngineConfig struct {
	AntiFloodPrioHigh time.Duration     `toml:"anti_flood_prio_high"`
	AntiFloodPrioLow  time.Duration     `toml:"anti_flood_prio_low"`
	SmartFilterModes  string            `toml:"smart_filter_modes"`
	HighlightWords    []string          `toml:"highlight_words"`
	CTCPTemplates     map[string]string `toml:"ctcp_templates"`
	CTCPClientInfo    string            `toml:"ctcp_client_info"`
	CTCPVersion       string            `toml:"ctcp_version"`
	CTCPSite          string            `toml:"ctcp_site"`
	// CTCPUnknown selects the reply for a CTCP query with no configured
	// template: CTCPUnknownRespond sends an ERRMSG-style "unknown query"
	// NOTICE, CTCPUnknownIgnore (the default) drops it silently.
	CTCPUnknown CTCPUnknownPolicy `toml:"ctcp_unknown"`
}

// Load decodes path into a Document, applying the package defaults to
// any zero-valued field Default fills in.
func Load(path string) (*Document, error) {
	var doc Document
	meta, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	_ = meta // keys present in the file but unknown to Document are ignored
	Default(&doc)
	return &doc, nil
}

// Default fills the engine-wide defaults spec.md's component sections
// name: a 2s/mean(2s,1.2s) anti-flood pair, the standard ChanServ/common
// smart-filter letters, and a 10x reconnect backoff cap.
func Default(doc *Document) {
	if doc.Engine.AntiFloodPrioHigh <= 0 {
		doc.Engine.AntiFloodPrioHigh = 2 * time.Second
	}
	if doc.Engine.AntiFloodPrioLow <= 0 {
		doc.Engine.AntiFloodPrioLow = 1200 * time.Millisecond
	}
	if doc.Engine.SmartFilterModes == "" {
		doc.Engine.SmartFilterModes = "ovh"
	}
	if doc.Engine.CTCPUnknown == "" {
		doc.Engine.CTCPUnknown = CTCPUnknownIgnore
	}
	for i := range doc.Server {
		s := &doc.Server[i]
		if s.ReconnectMaxMult <= 0 {
			s.ReconnectMaxMult = 10
		}
		if s.ReconnectDelay <= 0 {
			s.ReconnectDelay = time.Second
		}
		if s.LagCheckInterval <= 0 {
			s.LagCheckInterval = 60 * time.Second
		}
		if s.LagReconnect <= 0 {
			s.LagReconnect = 5 * time.Minute
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleDoc = `
[engine]
smart_filter_modes = "ov"
highlight_words = ["claude", "alert"]

[engine.ctcp_templates]
version = "testclient 1.0"

[[server]]
name = "libera"
addresses = ["irc.libera.chat:6697"]
username = "alice"
realname = "Alice"
nicknames = ["alice", "alice_"]
tls = true
autoreconnect = true

[server.sasl]
mechanism = "PLAIN"
username = "alice"
password = "hunter2"
on_failure = "reconnect"

[server.proxy]
type = "socks5"
address = "127.0.0.1:1080"
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ircengine.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadParsesServerAndEngineSections(t *testing.T) {
	path := writeTemp(t, sampleDoc)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Server) != 1 {
		t.Fatalf("expected one server, got %d", len(doc.Server))
	}
	s := doc.Server[0]
	if s.Name != "libera" || s.Username != "alice" {
		t.Errorf("server = %+v", s)
	}
	if s.SASL == nil || s.SASL.OnFailure != SASLFailReconnect {
		t.Fatalf("expected SASL on_failure = reconnect, got %+v", s.SASL)
	}
	if s.Proxy.Type != "socks5" {
		t.Errorf("Proxy.Type = %q, want socks5", s.Proxy.Type)
	}
	if doc.Engine.SmartFilterModes != "ov" {
		t.Errorf("SmartFilterModes = %q, want ov", doc.Engine.SmartFilterModes)
	}
}

func TestDefaultFillsReconnectAndAntiFlood(t *testing.T) {
	doc := &Document{Server: []ServerConfig{{}}}
	Default(doc)
	if doc.Engine.AntiFloodPrioHigh != 2*time.Second {
		t.Errorf("AntiFloodPrioHigh = %v, want 2s", doc.Engine.AntiFloodPrioHigh)
	}
	if doc.Server[0].ReconnectMaxMult != 10 {
		t.Errorf("ReconnectMaxMult = %d, want 10", doc.Server[0].ReconnectMaxMult)
	}
	if doc.Engine.SmartFilterModes != "ovh" {
		t.Errorf("SmartFilterModes = %q, want ovh", doc.Engine.SmartFilterModes)
	}
	if doc.Engine.CTCPUnknown != CTCPUnknownIgnore {
		t.Errorf("CTCPUnknown = %q, want %q", doc.Engine.CTCPUnknown, CTCPUnknownIgnore)
	}
}

func TestDefaultDoesNotOverrideExplicitValues(t *testing.T) {
	doc := &Document{
		Engine: EngineConfig{AntiFloodPrioHigh: 5 * time.Second},
		Server: []ServerConfig{{ReconnectMaxMult: 3}},
	}
	Default(doc)
	if doc.Engine.AntiFloodPrioHigh != 5*time.Second {
		t.Errorf("AntiFloodPrioHigh overridden: %v", doc.Engine.AntiFloodPrioHigh)
	}
	if doc.Server[0].ReconnectMaxMult != 3 {
		t.Errorf("ReconnectMaxMult overridden: %d", doc.Server[0].ReconnectMaxMult)
	}
}

func TestToServerFSMCarriesSASLAndReconnectPolicy(t *testing.T) {
	path := writeTemp(t, sampleDoc)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fsmCfg := doc.Server[0].ToServerFSM()
	if fsmCfg.SASL == nil || fsmCfg.SASL.OnFailure != "reconnect" {
		t.Fatalf("fsmCfg.SASL = %+v", fsmCfg.SASL)
	}
	if !fsmCfg.Autoreconnect {
		t.Errorf("expected Autoreconnect to carry through")
	}
}

func TestToProxyReturnsNilWhenUnconfigured(t *testing.T) {
	s := ServerConfig{}
	if s.ToProxy() != nil {
		t.Errorf("expected nil proxy for an unconfigured server")
	}
}

func TestToCTCPTemplatesPrefersConfiguredVersionEntry(t *testing.T) {
	e := EngineConfig{CTCPTemplates: map[string]string{"version": "explicit"}, CTCPVersion: "fallback"}
	tbl := e.ToCTCPTemplates()
	if tbl["version"] != "explicit" {
		t.Errorf("version = %q, want explicit", tbl["version"])
	}
}

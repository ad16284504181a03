package config

import (
	"github.com/weechat/ircengine/ctcp"
	"github.com/weechat/ircengine/internal/connworker"
	"github.com/weechat/ircengine/outqueue"
	"github.com/weechat/ircengine/serverfsm"
)

// ToServerFSM materializes s into the serverfsm.Config the Server state
// machine is built from: the one concrete place a saved document becomes
// a running Machine.
func (s ServerConfig) ToServerFSM() serverfsm.Config {
	cfg := serverfsm.Config{
		Nicks:            s.Nicks,
		Username:         s.Username,
		Realname:         s.Realname,
		Password:         s.Password,
		Caps:             s.Caps,
		Autoreconnect:    s.Autoreconnect,
		ReconnectDelay:   s.ReconnectDelay,
		ReconnectMaxMult: s.ReconnectMaxMult,
		LagCheckInterval: s.LagCheckInterval,
		LagReconnect:     s.LagReconnect,
	}
	if s.SASL != nil {
		cfg.SASL = &serverfsm.SASLConfig{
			Mechanism: s.SASL.Mechanism,
			Username:  s.SASL.Username,
			Password:  s.SASL.Password,
			OnFailure: string(s.SASL.OnFailure),
		}
	}
	return cfg
}

// ToProxy materializes s.Proxy into the connworker request shape, or nil
// for a direct connection.
func (s ServerConfig) ToProxy() *connworker.ProxyConfig {
	if s.Proxy.Type == "" {
		return nil
	}
	return &connworker.ProxyConfig{
		Type:     connworker.ProxyType(s.Proxy.Type),
		Address:  s.Proxy.Address,
		Username: s.Proxy.Username,
		Password: s.Proxy.Password,
	}
}

// ToOutqueue materializes EngineConfig's anti-flood settings into the
// out-queue pacer configuration, shared by every server.
func (e EngineConfig) ToOutqueue() outqueue.Config {
	return outqueue.Config{
		AntiFloodPrioHigh: e.AntiFloodPrioHigh,
		AntiFloodPrioLow:  e.AntiFloodPrioLow,
	}
}

// ToCTCPTemplates materializes EngineConfig's configured reply templates
// plus its clientinfo/version presets into a ctcp.TemplateTable:
// CTCPVersion and CTCPClientInfo fill the "version" and "clientinfo"
// entries only when the document's own templates leave them unset.
// CTCPSite is not copied into the table, and no built-in reply is added
// for any type the document does not configure.
func (e EngineConfig) ToCTCPTemplates() ctcp.TemplateTable {
	t := ctcp.TemplateTable{}
	for k, v := range e.CTCPTemplates {
		t[k] = v
	}
	if _, ok := t["version"]; !ok && e.CTCPVersion != "" {
		t["version"] = e.CTCPVersion
	}
	if _, ok := t["clientinfo"]; !ok && e.CTCPClientInfo != "" {
		t["clientinfo"] = e.CTCPClientInfo
	}
	return t
}

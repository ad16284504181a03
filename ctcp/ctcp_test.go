package ctcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRoundTrip(t *testing.T) {
	f, ok := Extract("\x01VERSION\x01")
	require.True(t, ok)
	assert.Equal(t, "VERSION", f.Type)
	assert.Empty(t, f.Args)

	f, ok = Extract("\x01PING 12345\x01")
	require.True(t, ok)
	assert.Equal(t, "PING", f.Type)
	assert.Equal(t, "12345", f.Args)
}

func TestExtractCaseInsensitiveType(t *testing.T) {
	f, ok := Extract("\x01action waves\x01")
	require.True(t, ok)
	assert.Equal(t, "ACTION", f.Type)
	assert.Equal(t, "waves", f.Args)
}

func TestExtractNotCTCP(t *testing.T) {
	_, ok := Extract("hello there")
	assert.False(t, ok, "expected not-CTCP for plain text")
}

func TestClassifyBuiltins(t *testing.T) {
	cases := map[string]BuiltinKind{
		"ACTION":  BuiltinAction,
		"ping":    BuiltinPing,
		"Dcc":     BuiltinDCC,
		"VERSION": BuiltinNone,
	}
	for in, want := range cases {
		assert.Equal(t, want, Classify(in), "Classify(%q)", in)
	}
}

func TestTemplateLookupPrefersServerScoped(t *testing.T) {
	table := TemplateTable{
		"version":        "generic",
		"libera.version": "scoped",
	}
	v, ok := table.Lookup("libera", "VERSION")
	require.True(t, ok)
	assert.Equal(t, "scoped", v)

	v, ok = table.Lookup("oftc", "VERSION")
	require.True(t, ok)
	assert.Equal(t, "generic", v)
}

func TestExpandSubstitutesKnownVars(t *testing.T) {
	out := Expand("${version} (${username})", Vars{Version: "weechat-clone 1.0", Username: "alice"})
	assert.Equal(t, "weechat-clone 1.0 (alice)", out)
}

func TestSanitizeReplyStripsDelim(t *testing.T) {
	assert.Equal(t, "hi there", SanitizeReply("hi\x01there"))
}

func TestParseDCCSend(t *testing.T) {
	req, err := ParseDCC(`SEND file.txt 3232235777 1234 5000`)
	require.NoError(t, err)
	assert.Equal(t, DCCSend, req.Kind)
	assert.Equal(t, "file.txt", req.Filename)
	assert.Equal(t, "3232235777", req.IP)
	assert.EqualValues(t, 1234, req.Port)
	assert.EqualValues(t, 5000, req.Size)
}

func TestParseDCCSendQuotedFilename(t *testing.T) {
	req, err := ParseDCC(`SEND "my file.txt" 3232235777 1234 5000 tok1`)
	require.NoError(t, err)
	assert.Equal(t, "my file.txt", req.Filename, "want unwrapped quoted name")
	assert.Equal(t, "tok1", req.Token)
}

func TestParseDCCResumeAndAccept(t *testing.T) {
	r, err := ParseDCC(`RESUME file.txt 1234 2048`)
	require.NoError(t, err)
	assert.Equal(t, DCCResume, r.Kind)
	assert.EqualValues(t, 2048, r.StartOffset)

	a, err := ParseDCC(`ACCEPT file.txt 1234 2048`)
	require.NoError(t, err)
	assert.Equal(t, DCCAccept, a.Kind)
}

func TestParseDCCChat(t *testing.T) {
	req, err := ParseDCC(`CHAT chat 3232235777 5000`)
	require.NoError(t, err)
	assert.Equal(t, DCCChat, req.Kind)
	assert.EqualValues(t, 5000, req.Port)
}

func TestParseDCCUnknownSubcommand(t *testing.T) {
	_, err := ParseDCC("BOGUS foo")
	assert.Error(t, err, "expected error for unknown sub-command")
}

func TestParseDCCBadParamCount(t *testing.T) {
	_, err := ParseDCC("SEND file.txt 1.2.3.4")
	assert.Error(t, err, "expected error for missing params")
}

package ircmsg

// Commands a client may send or receive. Kept as typed Command constants
// so dispatch tables can key on them directly.
const (
	CmdCap     Command = "CAP"
	CmdError   Command = "ERROR"
	CmdInvite  Command = "INVITE"
	CmdJoin    Command = "JOIN"
	CmdKick    Command = "KICK"
	CmdMode    Command = "MODE"
	CmdNick    Command = "NICK"
	CmdNotice  Command = "NOTICE"
	CmdPart    Command = "PART"
	CmdPass    Command = "PASS"
	CmdPing    Command = "PING"
	CmdPong    Command = "PONG"
	CmdPrivmsg Command = "PRIVMSG"
	CmdQuit    Command = "QUIT"
	CmdTagMsg  Command = "TAGMSG"
	CmdTopic   Command = "TOPIC"
	CmdUser    Command = "USER"
	CmdWho     Command = "WHO"
	CmdAuth    Command = "AUTHENTICATE"
)

// Numeric replies referenced by the server state machine and dispatch
// table. Not exhaustive; see dispatch.Table for the full set this engine
// recognizes.
const (
	RplWelcome       Command = "001"
	RplYourHost      Command = "002"
	RplCreated       Command = "003"
	RplMyInfo        Command = "004"
	RplISupport      Command = "005"
	RplAway          Command = "301"
	RplUnAway        Command = "305"
	RplNowAway       Command = "306"
	RplWhoReply      Command = "352"
	RplEndOfWho      Command = "315"
	RplNamReply      Command = "353"
	RplEndOfNames    Command = "366"
	RplTopic         Command = "332"
	RplTopicWhoTime  Command = "333"
	RplNoTopic       Command = "331"
	RplChannelModeIs Command = "324"
	RplBanList       Command = "367"
	RplEndOfBanList  Command = "368"
	RplInviteList    Command = "346"
	RplEndOfInvite   Command = "347"
	RplExceptList    Command = "348"
	RplEndOfExcept   Command = "349"
	RplQuietList     Command = "728"
	RplEndOfQuiet    Command = "729"
	RplLoggedIn      Command = "900"
	RplSaslSuccess   Command = "903"
	ErrSaslFail      Command = "904"
	ErrSaslTooLong   Command = "905"
	ErrSaslAborted   Command = "906"
	ErrSaslAlready   Command = "907"
	ErrNoNickGiven   Command = "431"
	ErrErroneousNick Command = "432"
	ErrNicknameInUse Command = "433"
	ErrNickCollision Command = "436"
	ErrUnavailRsrc   Command = "437"
)

// CTCP delimiter byte, per §4.7: at most one pair per message body.
const CTCPDelim = '\x01'

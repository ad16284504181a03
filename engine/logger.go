package engine

import "go.uber.org/zap"

// Logger wraps a *zap.SugaredLogger, replacing the teacher's
// *log.Logger/ErrorLog field with structured logging: every call site
// that used to call c.log(err) now logs with server/component/err
// fields instead of a formatted string.
type Logger struct {
	*zap.SugaredLogger
}

// NewLogger builds a production Logger, or a no-op one if zap
// construction fails (it practically never does, but the teacher's own
// "ErrorLog nil -> log.Println" fallback contract is preserved here as
// "logger nil -> discard").
func NewLogger() *Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return &Logger{SugaredLogger: zap.NewNop().Sugar()}
	}
	return &Logger{SugaredLogger: l.Sugar()}
}

// NewNopLogger returns a Logger that discards everything, for tests.
func NewNopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) server(name string) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l.With("server", name)
}

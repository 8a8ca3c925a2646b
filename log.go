package bpgsql

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// LogLevel is the verbosity threshold configured on a connection.
type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

func (ll LogLevel) String() string {
	switch ll {
	case LogLevelNone:
		return "none"
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelTrace:
		return "trace"
	}
	return fmt.Sprintf("LogLevel(%d)", int(ll))
}

// ParseLogLevel converts a level name, as used in configuration, into a
// LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "none":
		return LogLevelNone, nil
	case "error":
		return LogLevelError, nil
	case "warn":
		return LogLevelWarn, nil
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	case "trace":
		return LogLevelTrace, nil
	}
	return 0, interfaceErrorf("invalid log level %q", s)
}

// Logger is the interface connection logging is written against.
type Logger interface {
	Log(ctx context.Context, level LogLevel, msg string, data map[string]interface{})
}

type zerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter returns a Logger that forwards to a zerolog logger.
func NewZerologAdapter(logger zerolog.Logger) Logger {
	return &zerologAdapter{logger: logger}
}

func (a *zerologAdapter) Log(ctx context.Context, level LogLevel, msg string, data map[string]interface{}) {
	var evt *zerolog.Event
	switch level {
	case LogLevelTrace:
		evt = a.logger.Trace()
	case LogLevelDebug:
		evt = a.logger.Debug()
	case LogLevelInfo:
		evt = a.logger.Info()
	case LogLevelWarn:
		evt = a.logger.Warn()
	case LogLevelError:
		evt = a.logger.Error()
	default:
		return
	}
	evt.Fields(data).Msg(msg)
}

func (cn *Conn) shouldLog(lvl LogLevel) bool {
	return cn.cfg.Logger != nil && cn.cfg.LogLevel >= lvl
}

func (cn *Conn) log(lvl LogLevel, msg string, data map[string]interface{}) {
	if !cn.shouldLog(lvl) {
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	if cn.processID != 0 {
		data["pid"] = cn.processID
	}
	cn.cfg.Logger.Log(context.Background(), lvl, msg, data)
}
